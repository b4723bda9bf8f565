package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/marmos91/gfs/pkg/gfs"
	"github.com/marmos91/gfs/pkg/registry"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	registry *registry.Registry
}

// NewHealthHandler creates a new health handler. A nil registry makes the
// readiness and mount checks report unhealthy.
func NewHealthHandler(registry *registry.Registry) *HealthHandler {
	return &HealthHandler{registry: registry}
}

// Liveness handles GET /health. It succeeds while the process serves HTTP.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	newHealth(StatusHealthy).write(w)
}

// Readiness handles GET /health/ready. The server is ready once at least
// one mount is registered.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		unhealthy("registry not initialized").write(w)
		return
	}

	mountCount := h.registry.CountMounts()
	if mountCount == 0 {
		unhealthy("no mounts configured").write(w)
		return
	}

	resp := newHealth(StatusHealthy)
	resp.Mounts = mountCount
	resp.DefaultMount = h.registry.Default()
	resp.write(w)
}

// MountHealth is the health status of a single mount.
type MountHealth struct {
	Name    string       `json:"name"`
	Type    string       `json:"type"`
	Status  HealthStatus `json:"status"`
	Error   string       `json:"error,omitempty"`
	Latency string       `json:"latency,omitempty"`
}

// Mounts handles GET /health/mounts. Each mount's store is checked; the
// response is 503 if any check fails.
func (h *HealthHandler) Mounts(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		unhealthy("registry not initialized").write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := newHealth(StatusHealthy)
	resp.Checks = make([]MountHealth, 0, h.registry.CountMounts())

	for _, name := range h.registry.ListMounts() {
		m, err := h.registry.GetMount(name)
		if err != nil {
			// Removed between listing and lookup.
			continue
		}

		start := time.Now()
		if hc, ok := m.FS.(gfs.HealthChecker); ok {
			err = hc.Healthcheck(ctx)
		}
		health := MountHealth{
			Name:    name,
			Type:    m.StoreType,
			Latency: time.Since(start).String(),
			Status:  StatusHealthy,
		}
		if err != nil {
			health.Status = StatusUnhealthy
			health.Error = err.Error()
			resp.Status = StatusUnhealthy
		}

		resp.Checks = append(resp.Checks, health)
	}
	resp.Mounts = len(resp.Checks)
	resp.write(w)
}
