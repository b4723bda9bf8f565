// Package logger is the process-wide structured logger.
//
// It wraps log/slog with a runtime-adjustable level and format, a colored
// text handler for terminals, and context-aware variants that prepend
// request-scoped fields carried by LogContext.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Config holds logger configuration.
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or a file path
}

const (
	FormatText = "text"
	FormatJSON = "json"
)

var (
	level = new(slog.LevelVar)

	mu       sync.RWMutex
	format   = FormatText
	output   io.Writer = os.Stdout
	closer   io.Closer
	useColor = isTerminal(os.Stdout.Fd())
	slogger  *slog.Logger
)

func init() {
	rebuild()
}

// rebuild swaps in a handler for the current format and output.
// Callers hold mu, except init.
func rebuild() {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if format == FormatJSON {
		h = slog.NewJSONHandler(output, opts)
	} else {
		h = NewColorTextHandler(output, opts, useColor)
	}
	slogger = slog.New(h)
}

// Init applies cfg. Empty fields keep their current value.
func Init(cfg Config) error {
	if cfg.Output != "" {
		w, c, color, err := openOutput(cfg.Output)
		if err != nil {
			return err
		}
		mu.Lock()
		if closer != nil {
			_ = closer.Close()
		}
		output, closer, useColor = w, c, color
		rebuild()
		mu.Unlock()
	}
	if cfg.Level != "" {
		SetLevel(cfg.Level)
	}
	if cfg.Format != "" {
		SetFormat(cfg.Format)
	}
	return nil
}

func openOutput(dest string) (io.Writer, io.Closer, bool, error) {
	switch strings.ToLower(dest) {
	case "stdout":
		return os.Stdout, nil, isTerminal(os.Stdout.Fd()), nil
	case "stderr":
		return os.Stderr, nil, isTerminal(os.Stderr.Fd()), nil
	}
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to open log file %q: %w", dest, err)
	}
	return f, f, false, nil
}

// InitWithWriter directs output to w. Used by tests.
func InitWithWriter(w io.Writer, lvl, fmtName string, enableColor bool) {
	mu.Lock()
	output, closer, useColor = w, nil, enableColor
	if fmtName != "" {
		format = strings.ToLower(fmtName)
	}
	rebuild()
	mu.Unlock()

	if lvl != "" {
		SetLevel(lvl)
	}
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToUpper(name) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	default:
		return 0, false
	}
}

// SetLevel changes the minimum level. Unknown names are ignored.
func SetLevel(name string) {
	if l, ok := ParseLevel(name); ok {
		level.Set(l)
	}
}

// SetFormat switches between text and json. Unknown names are ignored.
func SetFormat(name string) {
	name = strings.ToLower(name)
	if name != FormatText && name != FormatJSON {
		return
	}
	mu.Lock()
	format = name
	rebuild()
	mu.Unlock()
}

// Enabled reports whether records at l are emitted.
func Enabled(l slog.Level) bool { return l >= level.Level() }

func get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return slogger
}

// Debug logs at debug level: Debug("msg", "key", value, ...).
func Debug(msg string, args ...any) {
	if Enabled(slog.LevelDebug) {
		get().Debug(msg, args...)
	}
}

// Info logs at info level.
func Info(msg string, args ...any) {
	if Enabled(slog.LevelInfo) {
		get().Info(msg, args...)
	}
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	if Enabled(slog.LevelWarn) {
		get().Warn(msg, args...)
	}
}

// Error logs at error level.
func Error(msg string, args ...any) {
	get().Error(msg, args...)
}

// DebugCtx logs at debug level with the fields of ctx's LogContext.
func DebugCtx(ctx context.Context, msg string, args ...any) {
	if Enabled(slog.LevelDebug) {
		get().Debug(msg, withContextFields(ctx, args)...)
	}
}

// InfoCtx logs at info level with context fields.
func InfoCtx(ctx context.Context, msg string, args ...any) {
	if Enabled(slog.LevelInfo) {
		get().Info(msg, withContextFields(ctx, args)...)
	}
}

// WarnCtx logs at warn level with context fields.
func WarnCtx(ctx context.Context, msg string, args ...any) {
	if Enabled(slog.LevelWarn) {
		get().Warn(msg, withContextFields(ctx, args)...)
	}
}

// ErrorCtx logs at error level with context fields.
func ErrorCtx(ctx context.Context, msg string, args ...any) {
	get().Error(msg, withContextFields(ctx, args)...)
}

// withContextFields prepends LogContext fields so they lead the line.
func withContextFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}
	out := make([]any, 0, 12+len(args))
	if lc.TraceID != "" {
		out = append(out, KeyTraceID, lc.TraceID)
	}
	if lc.SpanID != "" {
		out = append(out, KeySpanID, lc.SpanID)
	}
	if lc.RequestID != "" {
		out = append(out, KeyRequestID, lc.RequestID)
	}
	if lc.Operation != "" {
		out = append(out, KeyOperation, lc.Operation)
	}
	if lc.Mount != "" {
		out = append(out, KeyMount, lc.Mount)
	}
	if lc.RemoteAddr != "" {
		out = append(out, KeyRemoteAddr, lc.RemoteAddr)
	}
	return append(out, args...)
}

// With returns a logger with pre-bound attributes.
func With(args ...any) *slog.Logger {
	return get().With(args...)
}

// Duration returns the milliseconds elapsed since start.
func Duration(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

// Debugf logs a formatted message at debug level.
func Debugf(format string, v ...any) {
	if Enabled(slog.LevelDebug) {
		get().Debug(fmt.Sprintf(format, v...))
	}
}

// Infof logs a formatted message at info level.
func Infof(format string, v ...any) {
	if Enabled(slog.LevelInfo) {
		get().Info(fmt.Sprintf(format, v...))
	}
}

// Warnf logs a formatted message at warn level.
func Warnf(format string, v ...any) {
	if Enabled(slog.LevelWarn) {
		get().Warn(fmt.Sprintf(format, v...))
	}
}

// Errorf logs a formatted message at error level.
func Errorf(format string, v ...any) {
	get().Error(fmt.Sprintf(format, v...))
}
