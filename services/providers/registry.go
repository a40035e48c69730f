package providers

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrProviderNotFound is returned when a provider id is not registered
	ErrProviderNotFound = errors.New("provider not found")

	// ErrProviderAlreadyRegistered is returned when a catalog repeats an id
	ErrProviderAlreadyRegistered = errors.New("provider already registered")

	// ErrUnknownFamily is returned when a descriptor names a family with no adapter
	ErrUnknownFamily = errors.New("no adapter for provider family")
)

// AdapterFactory builds the adapter serving one descriptor
type AdapterFactory func(d Descriptor) Adapter

type entry struct {
	descriptor Descriptor
	adapter    Adapter
}

// Registry is the immutable set of supported providers.
// It is built once at startup and only read afterwards.
type Registry struct {
	order   []string
	entries map[string]entry
}

// NewRegistry pairs every descriptor with the adapter for its family.
// It fails on duplicate ids, incomplete descriptors, families without a factory
// and factories no descriptor uses.
func NewRegistry(descriptors []Descriptor, factories map[Family]AdapterFactory) (*Registry, error) {
	r := &Registry{
		order:   make([]string, 0, len(descriptors)),
		entries: make(map[string]entry, len(descriptors)),
	}
	used := make(map[Family]bool, len(factories))

	for _, d := range descriptors {
		if err := d.validate(); err != nil {
			return nil, err
		}
		if _, exists := r.entries[d.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrProviderAlreadyRegistered, d.ID)
		}
		factory, ok := factories[d.Family]
		if !ok || factory == nil {
			return nil, fmt.Errorf("%w: %s (provider %s)", ErrUnknownFamily, d.Family, d.ID)
		}
		used[d.Family] = true

		r.order = append(r.order, d.ID)
		r.entries[d.ID] = entry{descriptor: d, adapter: factory(d)}
	}

	var unused []string
	for family := range factories {
		if !used[family] {
			unused = append(unused, string(family))
		}
	}
	if len(unused) > 0 {
		sort.Strings(unused)
		return nil, fmt.Errorf("adapter families without providers: %v", unused)
	}

	return r, nil
}

// Get returns the descriptor and adapter for a provider id
func (r *Registry) Get(id string) (Descriptor, Adapter, error) {
	e, ok := r.entries[id]
	if !ok {
		return Descriptor{}, nil, ErrProviderNotFound
	}
	return e.descriptor, e.adapter, nil
}

// Has reports whether id is registered
func (r *Registry) Has(id string) bool {
	_, ok := r.entries[id]
	return ok
}

// List returns all descriptors in catalog order
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id].descriptor)
	}
	return out
}

// IDs returns all provider ids in catalog order
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Count returns the number of registered providers
func (r *Registry) Count() int {
	return len(r.order)
}
