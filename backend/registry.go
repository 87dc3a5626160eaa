package backend

import (
	"slices"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/tbdr"
)

// Factory creates a new backend instance.
type Factory func() tbdr.Backend

// Priority order for backend selection (first available wins).
// PM4 > Null (Null draws nothing and is the fallback).
var backends = gpucontext.NewRegistry[tbdr.Backend](
	gpucontext.WithPriority(BackendPM4, BackendNull),
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory Factory) {
	backends.Register(name, factory)
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	backends.Unregister(name)
}

// Available returns the sorted names of the registered backends.
func Available() []string {
	names := backends.Available()
	slices.Sort(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	return backends.Has(name)
}

// Get returns a backend instance by name.
// Returns nil if the backend is not registered.
func Get(name string) tbdr.Backend {
	return backends.Get(name)
}

// Default returns the best available backend based on priority.
// Returns nil if no backends are registered.
func Default() tbdr.Backend {
	return backends.Best()
}

// DefaultName returns the name of the backend Default would create.
func DefaultName() string {
	return backends.BestName()
}

// MustDefault returns the default backend or panics.
func MustDefault() tbdr.Backend {
	b := Default()
	if b == nil {
		panic("backend: no backend available")
	}
	return b
}

// NewContext creates a context of dev drawing through the default backend.
// A backend passed in opts takes precedence.
func NewContext(dev *tbdr.Device, opts ...tbdr.ContextOption) (*tbdr.Context, error) {
	b := Default()
	if b == nil {
		return nil, ErrBackendNotAvailable
	}
	tbdr.Logger().Debug("backend: selected", "name", b.Name())
	return dev.NewContext(append([]tbdr.ContextOption{tbdr.WithBackend(b)}, opts...)...)
}
