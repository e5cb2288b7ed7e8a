package service

import (
	"fmt"
	"sort"
)

// AdapterRegistry maps platform names to adapters. It is built once at
// startup from an explicit list and never changes afterwards.
type AdapterRegistry struct {
	adapters map[string]PlatformAdapter
}

func NewAdapterRegistry(adapters ...PlatformAdapter) (*AdapterRegistry, error) {
	m := make(map[string]PlatformAdapter, len(adapters))
	for _, a := range adapters {
		name := a.Platform()
		if _, dup := m[name]; dup {
			return nil, fmt.Errorf("adapter for %q registered twice", name)
		}
		m[name] = a
	}
	return &AdapterRegistry{adapters: m}, nil
}

func (r *AdapterRegistry) Resolve(platform string) (PlatformAdapter, error) {
	a, ok := r.adapters[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPlatform, platform)
	}
	return a, nil
}

func (r *AdapterRegistry) Platforms() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
