package rc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kolkov/ownrt/internal/diag"
	"github.com/kolkov/ownrt/refcell"
)

func TestMain(m *testing.M) {
	diag.SetLogger(zap.NewNop())
	m.Run()
}

func TestCloneMovesCountByOne(t *testing.T) {
	h := New("payload")
	assert.Equal(t, 1, h.StrongCount())

	h2 := h.Clone()
	assert.Equal(t, 2, h.StrongCount())
	assert.Equal(t, 2, h2.StrongCount())

	h2.Drop()
	assert.Equal(t, 1, h.StrongCount())
	h.Drop()
}

func TestHandlesShareOnePayload(t *testing.T) {
	h := New([]int{1})
	h2 := h.Clone()
	defer h.Drop()
	defer h2.Drop()

	*h.Value() = append(*h.Value(), 2)
	assert.Equal(t, []int{1, 2}, *h2.Value())
	assert.Same(t, h.Value(), h2.Value())
}

// TestScenario is the documented end-to-end scenario: three strong
// handles, one weak, drop the strong ones in an arbitrary order, observe
// exactly one finalization and a failed upgrade.
func TestScenario(t *testing.T) {
	finalized := 0
	h := NewWithFinalizer(42, func(v int) {
		finalized++
		assert.Equal(t, 42, v)
	})

	c1 := h.Clone()
	c2 := h.Clone()
	require.Equal(t, 3, h.StrongCount())

	w := h.Downgrade()
	require.Equal(t, 1, h.WeakCount())

	c2.Drop()
	h.Drop()
	assert.Equal(t, 0, finalized, "payload must outlive the first two drops")
	c1.Drop()
	assert.Equal(t, 1, finalized, "last drop finalizes exactly once")

	_, ok := w.Upgrade()
	assert.False(t, ok, "upgrade after the payload is gone must be empty")
	assert.Equal(t, 0, w.StrongCount())
	assert.Equal(t, 1, w.WeakCount())
	w.Drop()
	assert.Equal(t, 0, w.WeakCount())
}

// TestDropOrderPermutations drops three strong handles in every order;
// the finalizer must fire exactly once each time, on the final drop.
func TestDropOrderPermutations(t *testing.T) {
	orders := [][3]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2},
		{1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	}
	for _, order := range orders {
		finalized := 0
		h := NewWithFinalizer(1, func(int) { finalized++ })
		handles := [3]*Counted[int]{h, h.Clone(), h.Clone()}

		for i, idx := range order {
			handles[idx].Drop()
			want := 0
			if i == 2 {
				want = 1
			}
			require.Equal(t, want, finalized, "order %v step %d", order, i)
		}
	}
}

func TestUpgradeWhileAlive(t *testing.T) {
	h := New(7)
	w := h.Downgrade()

	u, ok := w.Upgrade()
	require.True(t, ok)
	assert.Equal(t, 2, h.StrongCount())
	assert.Equal(t, 7, *u.Value())

	u.Drop()
	h.Drop()
	w.Drop()
}

func TestWeakDoesNotExtendPayload(t *testing.T) {
	finalized := false
	h := NewWithFinalizer("x", func(string) { finalized = true })
	w := h.Downgrade()

	h.Drop()
	assert.True(t, finalized, "weak handles must not delay finalization")

	_, ok := w.Upgrade()
	assert.False(t, ok)
	w.Drop()
}

func TestDropIdempotentPerHandle(t *testing.T) {
	finalized := 0
	h := NewWithFinalizer(1, func(int) { finalized++ })
	h2 := h.Clone()

	h.Drop()
	h.Drop() // no-op: this handle already gave up its reference
	assert.Equal(t, 0, finalized)

	h2.Drop()
	assert.Equal(t, 1, finalized)
}

func TestUseAfterDropIsFatal(t *testing.T) {
	h := New(1)
	keep := h.Clone()
	defer keep.Drop()
	h.Drop()

	require.Panics(t, func() { h.Clone() })
	require.Panics(t, func() { h.Downgrade() })
	require.Panics(t, func() { h.Value() })
	require.Panics(t, func() { h.StrongCount() })
}

// TestSharedMutationThroughTrackedCell composes rc with refcell the way
// the package documentation prescribes.
func TestSharedMutationThroughTrackedCell(t *testing.T) {
	h := NewWithFinalizer(refcell.New(0), nil)
	h2 := h.Clone()
	defer h.Drop()
	defer h2.Drop()

	g := (*h.Value()).BorrowMut()
	g.Set(10)

	// The other handle sees the exclusive borrow as a conflict.
	_, err := (*h2.Value()).TryBorrow()
	require.ErrorIs(t, err, refcell.ErrConflict)
	g.Release()

	r := (*h2.Value()).Borrow()
	defer r.Release()
	assert.Equal(t, 10, *r.Value())
}

// TestStrongCycleLeaks pins the documented non-goal: two control blocks
// holding strong handles to each other are never finalized.
func TestStrongCycleLeaks(t *testing.T) {
	finalized := 0
	a := NewWithFinalizer("a", func(string) { finalized++ })
	b := NewWithFinalizer("b", func(string) { finalized++ })

	// Each side stores a strong clone of the other, forming the cycle.
	aHolds := b.Clone()
	bHolds := a.Clone()

	a.Drop()
	b.Drop()
	assert.Equal(t, 0, finalized, "cycle of strong handles must leak")

	// Breaking the cycle by hand drains it.
	aHolds.Drop()
	bHolds.Drop()
	assert.Equal(t, 2, finalized)
}
