package metrics

import (
	"strings"
	"time"

	"github.com/marmos91/gfs/pkg/gfs"
)

// FSMetrics records filesystem operation metrics. A nil FSMetrics is valid
// for the package helpers and records nothing.
type FSMetrics interface {
	// ObserveOperation records one operation on a mount and its outcome.
	ObserveOperation(mount, operation string, duration time.Duration, err error)

	// RecordBytes records content bytes moved in direction "read" or "write".
	RecordBytes(mount, direction string, n int)
}

// HTTPMetrics records API request metrics.
type HTTPMetrics interface {
	ObserveRequest(method, route string, status int, duration time.Duration)
}

var (
	newFSMetrics   func() FSMetrics
	newHTTPMetrics func() HTTPMetrics
)

// RegisterFSMetricsConstructor installs the FSMetrics implementation.
// Called by pkg/metrics/prometheus during package initialization, which
// keeps this package free of an import on its implementation.
func RegisterFSMetricsConstructor(constructor func() FSMetrics) {
	newFSMetrics = constructor
}

// RegisterHTTPMetricsConstructor installs the HTTPMetrics implementation.
func RegisterHTTPMetricsConstructor(constructor func() HTTPMetrics) {
	newHTTPMetrics = constructor
}

// NewFSMetrics returns the registered implementation, or nil when metrics
// are disabled or no implementation is linked in.
func NewFSMetrics() FSMetrics {
	if !IsEnabled() || newFSMetrics == nil {
		return nil
	}
	return newFSMetrics()
}

// NewHTTPMetrics returns the registered implementation, or nil.
func NewHTTPMetrics() HTTPMetrics {
	if !IsEnabled() || newHTTPMetrics == nil {
		return nil
	}
	return newHTTPMetrics()
}

// ObserveOperation is a nil-safe FSMetrics.ObserveOperation.
func ObserveOperation(m FSMetrics, mount, operation string, duration time.Duration, err error) {
	if m != nil {
		m.ObserveOperation(mount, operation, duration, err)
	}
}

// RecordBytes is a nil-safe FSMetrics.RecordBytes.
func RecordBytes(m FSMetrics, mount, direction string, n int) {
	if m != nil && n > 0 {
		m.RecordBytes(mount, direction, n)
	}
}

// ObserveRequest is a nil-safe HTTPMetrics.ObserveRequest.
func ObserveRequest(m HTTPMetrics, method, route string, status int, duration time.Duration) {
	if m != nil {
		m.ObserveRequest(method, route, status, duration)
	}
}

// StatusOf turns an operation error into a low-cardinality label value:
// "ok", a snake_case store error code, or "error".
func StatusOf(err error) string {
	if err == nil {
		return "ok"
	}
	code := gfs.CodeOf(err)
	if code == 0 {
		return "error"
	}
	return toSnake(code.String())
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
