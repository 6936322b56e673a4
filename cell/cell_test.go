package cell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kolkov/ownrt/internal/diag"
)

func TestMain(m *testing.M) {
	diag.SetLogger(zap.NewNop())
	m.Run()
}

func TestGetSet(t *testing.T) {
	c := New(41)
	assert.Equal(t, 41, c.Get())

	c.Set(42)
	assert.Equal(t, 42, c.Get())
}

func TestReplace(t *testing.T) {
	c := New("old")
	old := c.Replace("new")
	assert.Equal(t, "old", old)
	assert.Equal(t, "new", c.Get())
}

func TestTakeLeavesZero(t *testing.T) {
	c := New([]int{1, 2, 3})
	taken := c.Take()
	assert.Equal(t, []int{1, 2, 3}, taken)
	assert.Nil(t, c.Get())

	// Take on an already-empty slot keeps returning the zero value.
	assert.Nil(t, c.Take())
}

func TestIntoInner(t *testing.T) {
	c := New(7)
	assert.Equal(t, 7, c.IntoInner())
}

// TestUseAfterConsumeIsFatal covers every operation against a consumed
// cell; each must panic rather than touch the dead slot.
func TestUseAfterConsumeIsFatal(t *testing.T) {
	ops := []struct {
		name string
		op   func(c *Cell[int])
	}{
		{"Get", func(c *Cell[int]) { c.Get() }},
		{"Set", func(c *Cell[int]) { c.Set(1) }},
		{"Replace", func(c *Cell[int]) { c.Replace(1) }},
		{"Take", func(c *Cell[int]) { c.Take() }},
		{"IntoInner", func(c *Cell[int]) { c.IntoInner() }},
	}

	for _, tt := range ops {
		t.Run(tt.name, func(t *testing.T) {
			c := New(1)
			_ = c.IntoInner()
			require.Panics(t, func() { tt.op(c) })
		})
	}
}

// TestGetIsShallowCopy pins down the documented copy semantics: the copy
// shares pointed-at data with the slot.
func TestGetIsShallowCopy(t *testing.T) {
	type box struct{ p *int }
	n := 1
	c := New(box{p: &n})

	got := c.Get()
	*got.p = 2

	assert.Equal(t, 2, *c.Get().p)
}
