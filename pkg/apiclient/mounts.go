package apiclient

import "context"

// MountInfo describes a mount served by the API.
type MountInfo struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Root      string `json:"root"`
	ReadOnly  bool   `json:"read_only"`
	IsDefault bool   `json:"default"`
}

// ListMounts returns every mount, sorted by name.
func (c *Client) ListMounts(ctx context.Context) ([]MountInfo, error) {
	return listResources[MountInfo](ctx, c, "/api/v1/mounts", nil)
}

// GetMount returns a mount by name.
func (c *Client) GetMount(ctx context.Context, name string) (*MountInfo, error) {
	return getResource[MountInfo](ctx, c, mountPath(name), nil)
}
