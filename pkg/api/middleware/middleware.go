// Package middleware provides HTTP middleware for the gfs API.
package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/gfs/internal/logger"
	"github.com/marmos91/gfs/internal/telemetry"
	"github.com/marmos91/gfs/pkg/metrics"
)

// RequestLogger attaches a LogContext to the request and logs its start
// (DEBUG) and completion (INFO). Must run after chi's RequestID.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lc := logger.NewLogContext(r.RemoteAddr)
		lc.RequestID = chimw.GetReqID(r.Context())
		lc.Operation = r.Method
		if traceID := telemetry.TraceID(r.Context()); traceID != "" {
			lc = lc.WithTrace(traceID, telemetry.SpanID(r.Context()))
		}
		ctx := logger.WithContext(r.Context(), lc)
		r = r.WithContext(ctx)

		logger.DebugCtx(ctx, "API request started",
			logger.KeyMethod, r.Method,
			logger.Path(r.URL.Path))

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.InfoCtx(ctx, "API request completed",
			logger.KeyMethod, r.Method,
			logger.Path(r.URL.Path),
			logger.KeyStatus, ww.Status(),
			"bytes", ww.BytesWritten(),
			logger.DurationMs(lc.DurationMs()))
	})
}

// Metrics records request counts and latencies labelled by route pattern.
// A nil m disables recording.
func Metrics(m metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			metrics.ObserveRequest(m, r.Method, route, status, time.Since(start))
		})
	}
}
