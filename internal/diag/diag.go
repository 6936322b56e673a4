// Package diag provides the runtime's diagnostics and fatal-violation path.
//
// Contract violations that the API defines as unrecoverable (a conflicting
// borrow through the non-try API, any use of a consumed cell or dropped
// handle) flow through Fatal: the violation is logged with its context and
// the offending goroutine is terminated by panicking with the typed error.
// A caller that recovers sees exactly the same error value the try-style
// API would have returned, so state is never silently corrupted.
//
// Log level is taken from the OWNRT_LOG environment variable
// (debug, info, warn, error; default warn), mirroring GORACE-style
// runtime configuration.
package diag

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kolkov/ownrt/metrics"
)

// Violation is the panic payload for fatal contract violations that are
// not borrow conflicts (those carry their own error type).
type Violation struct {
	// Op is the operation that detected the violation, e.g. "cell.Get".
	Op string

	// Reason classifies the violation, e.g. "use after consume".
	Reason string
}

// Error implements the error interface.
func (v *Violation) Error() string {
	return "ownrt: " + v.Op + ": " + v.Reason
}

var (
	loggerMu sync.RWMutex
	logger   = newDefaultLogger()
)

// newDefaultLogger builds the stderr console logger used until SetLogger
// is called. Level comes from OWNRT_LOG; parse failures fall back to warn.
func newDefaultLogger() *zap.Logger {
	lvl := zapcore.WarnLevel
	if s := os.Getenv("OWNRT_LOG"); s != "" {
		if err := lvl.Set(strings.ToLower(s)); err != nil {
			lvl = zapcore.WarnLevel
		}
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// SetLogger replaces the runtime's logger. Passing nil restores a no-op
// logger. Safe for concurrent use with Fatal and L.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	loggerMu.Lock()
	logger = l
	loggerMu.Unlock()
}

// L returns the current runtime logger.
func L() *zap.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

// Fatal reports an unrecoverable contract violation and terminates the
// offending logical unit of work by panicking with err.
//
// Fatal never returns.
func Fatal(err error, fields ...zap.Field) {
	metrics.FatalViolation()
	L().Error("fatal contract violation", append(fields, zap.Error(err))...)
	panic(err)
}

// UseAfterConsume reports use of a cell or handle after it was consumed
// or dropped. Always fatal, never recoverable by design.
func UseAfterConsume(op string) {
	Fatal(&Violation{Op: op, Reason: "use after consume"}, zap.String("op", op))
}
