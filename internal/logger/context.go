package logger

import (
	"context"
	"time"
)

type contextKey struct{}

// LogContext holds request-scoped logging fields.
type LogContext struct {
	TraceID    string
	SpanID     string
	RequestID  string
	Operation  string // read, insert, rename, ...
	Mount      string // configured mount name
	RemoteAddr string
	StartTime  time.Time
}

// WithContext returns a context carrying lc.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, contextKey{}, lc)
}

// FromContext returns the LogContext of ctx, or nil.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(contextKey{}).(*LogContext)
	return lc
}

// NewLogContext starts a LogContext for a request from remoteAddr.
func NewLogContext(remoteAddr string) *LogContext {
	return &LogContext{RemoteAddr: remoteAddr, StartTime: time.Now()}
}

// Clone returns a copy of lc.
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	c := *lc
	return &c
}

// WithOperation returns a copy with the operation set.
func (lc *LogContext) WithOperation(op string) *LogContext {
	c := lc.Clone()
	if c != nil {
		c.Operation = op
	}
	return c
}

// WithMount returns a copy with the mount set.
func (lc *LogContext) WithMount(mount string) *LogContext {
	c := lc.Clone()
	if c != nil {
		c.Mount = mount
	}
	return c
}

// WithTrace returns a copy with trace identifiers set.
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	c := lc.Clone()
	if c != nil {
		c.TraceID = traceID
		c.SpanID = spanID
	}
	return c
}

// DurationMs returns milliseconds since StartTime.
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return Duration(lc.StartTime)
}
