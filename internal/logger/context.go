package logger

import (
	"context"
	"time"
)

type ctxKey struct{}

// LogContext carries the request-scoped fields for one frame so every
// log line emitted while serving it names the command, the caller and
// the object. The frame server attaches it; handlers log through the
// *Ctx functions.
type LogContext struct {
	Command   string
	Identity  string
	Filename  string
	ClientIP  string
	StartTime time.Time
}

// NewLogContext starts a LogContext for a connection. StartTime is
// reset per command by WithCommand's caller semantics: the server
// builds a fresh context per frame.
func NewLogContext(clientIP string) *LogContext {
	return &LogContext{ClientIP: clientIP, StartTime: time.Now()}
}

// WithContext attaches lc to ctx.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, lc)
}

// FromContext returns the attached LogContext, or nil.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(ctxKey{}).(*LogContext)
	return lc
}

// Clone returns a copy, nil-safe.
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	dup := *lc
	return &dup
}

// WithCommand returns a copy annotated with the command and its
// object. The receiver is left untouched.
func (lc *LogContext) WithCommand(command, identity, filename string) *LogContext {
	dup := lc.Clone()
	if dup != nil {
		dup.Command = command
		dup.Identity = identity
		dup.Filename = filename
	}
	return dup
}

// DurationMs is the elapsed time since StartTime in milliseconds.
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
