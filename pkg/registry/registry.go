// Package registry tracks the named filesystems (mounts) served by the CLI
// and the HTTP API.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/marmos91/gfs/internal/logger"
	"github.com/marmos91/gfs/pkg/attr"
	"github.com/marmos91/gfs/pkg/gfs"
)

// Mount is a named filesystem.
type Mount struct {
	Name      string
	StoreType string
	ReadOnly  bool
	FS        gfs.Filesystem[attr.Attr]
}

// Registry is the single source of truth for configured mounts.
// It is safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	mounts       map[string]*Mount
	defaultMount string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		mounts: make(map[string]*Mount),
	}
}

// AddMount registers a mount. The first mount added becomes the default
// unless SetDefault is called.
func (r *Registry) AddMount(m *Mount) error {
	if m == nil {
		return fmt.Errorf("mount cannot be nil")
	}
	if m.Name == "" {
		return fmt.Errorf("mount name cannot be empty")
	}
	if m.FS == nil {
		return fmt.Errorf("mount %q has no filesystem", m.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.mounts[m.Name]; exists {
		return fmt.Errorf("mount %q already exists", m.Name)
	}

	r.mounts[m.Name] = m
	if r.defaultMount == "" {
		r.defaultMount = m.Name
	}

	logger.Debug("Mount added", logger.Mount(m.Name), logger.KeyStoreType, m.StoreType, "read_only", m.ReadOnly)
	return nil
}

// RemoveMount unregisters a mount and closes its filesystem.
func (r *Registry) RemoveMount(name string) error {
	r.mu.Lock()
	m, exists := r.mounts[name]
	if !exists {
		r.mu.Unlock()
		return fmt.Errorf("mount %q not found", name)
	}
	delete(r.mounts, name)
	if r.defaultMount == name {
		r.defaultMount = ""
	}
	r.mu.Unlock()

	return closeFS(m)
}

// GetMount returns the mount with the given name.
func (r *Registry) GetMount(name string) (*Mount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, exists := r.mounts[name]
	if !exists {
		return nil, fmt.Errorf("mount %q not found", name)
	}
	return m, nil
}

// MountExists reports whether a mount is registered.
func (r *Registry) MountExists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.mounts[name]
	return exists
}

// ListMounts returns all mount names, sorted.
func (r *Registry) ListMounts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.mounts))
	for name := range r.mounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CountMounts returns the number of registered mounts.
func (r *Registry) CountMounts() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.mounts)
}

// SetDefault selects the mount used when Resolve is given an empty name.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.mounts[name]; !exists {
		return fmt.Errorf("mount %q not found", name)
	}
	r.defaultMount = name
	return nil
}

// Default returns the default mount name, or "" when none is set.
func (r *Registry) Default() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultMount
}

// Resolve returns the named mount, or the default mount when name is empty.
func (r *Registry) Resolve(name string) (*Mount, error) {
	if name == "" {
		name = r.Default()
		if name == "" {
			return nil, fmt.Errorf("no default mount configured")
		}
	}
	return r.GetMount(name)
}

// Healthcheck checks every mount whose filesystem supports it. The result
// maps mount names to their error, nil meaning healthy.
func (r *Registry) Healthcheck(ctx context.Context) map[string]error {
	r.mu.RLock()
	mounts := make([]*Mount, 0, len(r.mounts))
	for _, m := range r.mounts {
		mounts = append(mounts, m)
	}
	r.mu.RUnlock()

	results := make(map[string]error, len(mounts))
	for _, m := range mounts {
		var err error
		if hc, ok := m.FS.(gfs.HealthChecker); ok {
			err = hc.Healthcheck(ctx)
		}
		results[m.Name] = err
	}
	return results
}

// Close closes every mount and empties the registry.
func (r *Registry) Close() error {
	r.mu.Lock()
	mounts := r.mounts
	r.mounts = make(map[string]*Mount)
	r.defaultMount = ""
	r.mu.Unlock()

	var errs []error
	for _, m := range mounts {
		if err := closeFS(m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func closeFS(m *Mount) error {
	c, ok := m.FS.(io.Closer)
	if !ok {
		return nil
	}
	if err := c.Close(); err != nil {
		logger.Warn("Failed to close mount", logger.Mount(m.Name), logger.Err(err))
		return fmt.Errorf("close mount %q: %w", m.Name, err)
	}
	return nil
}
