package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// TestFatalPanicsWithError verifies that the panic payload is the exact
// error value passed in, so recovering callers can errors.As it.
func TestFatalPanicsWithError(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	v := &Violation{Op: "cell.Get", Reason: "use after consume"}

	defer func() {
		r := recover()
		require.NotNil(t, r, "Fatal must panic")
		require.Equal(t, v, r, "panic payload must be the violation error")

		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "fatal contract violation", entries[0].Message)
	}()
	Fatal(v)
}

func TestViolationError(t *testing.T) {
	v := &Violation{Op: "rc.Clone", Reason: "use after consume"}
	assert.Equal(t, "ownrt: rc.Clone: use after consume", v.Error())
}

func TestUseAfterConsumePanics(t *testing.T) {
	SetLogger(zap.NewNop())
	defer SetLogger(nil)

	require.PanicsWithError(t, "ownrt: cell.Set: use after consume", func() {
		UseAfterConsume("cell.Set")
	})
}

func TestSetLoggerNilInstallsNop(t *testing.T) {
	SetLogger(nil)
	require.NotNil(t, L())
}
