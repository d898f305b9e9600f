// Package backends provides storage providers implementing the
// fsbridge.Backend capability contract, plus a factory registry for
// constructing them from raw JSON configuration.
package backends

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/walkerlab/fsbridge"
)

// Factory builds a backend from its raw JSON configuration block.
type Factory func(raw []byte) (fsbridge.Backend, error)

// Registry maps backend type keys to factories. Registering an existing
// key replaces the previous factory.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register ties a JSON-raw factory to a type key.
func (r *Registry) Register(backendType string, f Factory) {
	r.mu.Lock()
	r.factories[backendType] = f
	r.mu.Unlock()
}

// Build picks the right factory based on the "type" field and runs it.
func (r *Registry) Build(raw []byte) (fsbridge.Backend, error) {
	var meta struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, err
	}
	r.mu.RLock()
	f, ok := r.factories[meta.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no factory for %q", meta.Type)
	}
	return f(raw)
}

var defaultRegistry = NewRegistry()

// Register adds a factory to the package-level registry. All expected
// backend types should be registered during app init, typically via
// [RegisterBuiltins].
func Register(backendType string, f Factory) {
	defaultRegistry.Register(backendType, f)
}

// FromConfig builds a backend from raw JSON using the package-level
// registry.
func FromConfig(raw []byte) (fsbridge.Backend, error) {
	return defaultRegistry.Build(raw)
}
