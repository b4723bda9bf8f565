package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/marmos91/gfs/internal/logger"
)

// serviceName identifies this server in health bodies.
const serviceName = "gfs"

// HealthStatus is the verdict of a health check.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// HealthResponse is the body of every /health endpoint. Fields a check does
// not compute are omitted.
type HealthResponse struct {
	Service      string        `json:"service"`
	Status       HealthStatus  `json:"status"`
	Timestamp    time.Time     `json:"timestamp"`
	Mounts       int           `json:"mounts,omitempty"`
	DefaultMount string        `json:"default_mount,omitempty"`
	Checks       []MountHealth `json:"checks,omitempty"`
	Error        string        `json:"error,omitempty"`
}

func newHealth(status HealthStatus) *HealthResponse {
	return &HealthResponse{
		Service:   serviceName,
		Status:    status,
		Timestamp: time.Now().UTC(),
	}
}

// unhealthy returns a failed check carrying reason.
func unhealthy(reason string) *HealthResponse {
	h := newHealth(StatusUnhealthy)
	h.Error = reason
	return h
}

// write sends h with 200 when healthy and 503 otherwise. Health bodies are
// never cached.
func (h *HealthResponse) write(w http.ResponseWriter) {
	status := http.StatusOK
	if h.Status != StatusHealthy {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, status, h)
}

// writeJSON encodes v before any header is sent so an encoding failure can
// still become a problem response.
func writeJSON[T any](w http.ResponseWriter, status int, v T) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		logger.Error("Failed to encode JSON response", logger.Err(err))
		InternalServerError(w, "failed to encode response")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
