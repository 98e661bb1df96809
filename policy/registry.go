// Package policy maintains the registry of eviction policies by name.
//
// Built-in policies register themselves from init in their subpackages;
// importing a policy package (usually blank) makes it constructible here.
// Factories return a fresh instance per call so that every simulation run
// owns isolated metadata; no state survives from one run into the next.
package policy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cachelab/cachesim"
)

// Factory constructs a fresh policy instance.
type Factory func() cachesim.Policy

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register makes a policy constructible by name. Registering a duplicate
// name or a nil factory panics; both are programmer errors caught at init.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	if factory == nil {
		panic("policy: Register with nil factory for " + name)
	}
	if _, dup := factories[name]; dup {
		panic("policy: Register called twice for " + name)
	}
	factories[name] = factory
}

// New constructs a fresh instance of the named policy.
func New(name string) (cachesim.Policy, error) {
	mu.RLock()
	factory, ok := factories[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("policy: unknown policy %q (registered: %v)", name, Names())
	}
	return factory(), nil
}

// Names returns the registered policy names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
