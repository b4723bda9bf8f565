package handlers

import (
	"net/http"

	"github.com/marmos91/gfs/pkg/registry"
)

// MountHandler serves the mount listing.
type MountHandler struct {
	registry *registry.Registry
}

// NewMountHandler creates a new MountHandler.
func NewMountHandler(registry *registry.Registry) *MountHandler {
	return &MountHandler{registry: registry}
}

// MountInfo is the response body for mount endpoints.
type MountInfo struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Root      string `json:"root"`
	ReadOnly  bool   `json:"read_only"`
	IsDefault bool   `json:"default"`
}

func (h *MountHandler) info(m *registry.Mount) MountInfo {
	return MountInfo{
		Name:      m.Name,
		Type:      m.StoreType,
		Root:      m.FS.Root().String(),
		ReadOnly:  m.ReadOnly,
		IsDefault: m.Name == h.registry.Default(),
	}
}

// List handles GET /api/v1/mounts.
func (h *MountHandler) List(w http.ResponseWriter, r *http.Request) {
	names := h.registry.ListMounts()
	out := make([]MountInfo, 0, len(names))
	for _, name := range names {
		m, err := h.registry.GetMount(name)
		if err != nil {
			continue
		}
		out = append(out, h.info(m))
	}
	writeJSON(w, http.StatusOK, out)
}

// Get handles GET /api/v1/mounts/{mount}.
func (h *MountHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, ok := resolveMount(w, r, h.registry)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.info(m))
}
