package project

import (
	"fmt"
)

// Registry is an ordered, immutable list of descriptors. Detection walks the
// list in registration order and the first match wins.
type Registry struct {
	descriptors []Descriptor
}

// NewRegistry creates a registry from descriptors in detection order.
func NewRegistry(descriptors ...Descriptor) (*Registry, error) {
	seen := make(map[Type]bool, len(descriptors))
	list := make([]Descriptor, 0, len(descriptors))
	for _, d := range descriptors {
		if seen[d.Type()] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateType, d.Type())
		}
		seen[d.Type()] = true
		list = append(list, d)
	}
	return &Registry{descriptors: list}, nil
}

// Detect returns the first descriptor whose marker exists in dir.
func (r *Registry) Detect(dir string) (Descriptor, bool) {
	for _, d := range r.descriptors {
		if d.Detect(dir) {
			return d, true
		}
	}
	return nil, false
}

// DetectAll returns every descriptor whose marker exists in dir, in order.
func (r *Registry) DetectAll(dir string) []Descriptor {
	var matches []Descriptor
	for _, d := range r.descriptors {
		if d.Detect(dir) {
			matches = append(matches, d)
		}
	}
	return matches
}

// Lookup returns the descriptor registered for t.
func (r *Registry) Lookup(t Type) (Descriptor, bool) {
	for _, d := range r.descriptors {
		if d.Type() == t {
			return d, true
		}
	}
	return nil, false
}

// Types returns the registered types in detection order.
func (r *Registry) Types() []Type {
	types := make([]Type, len(r.descriptors))
	for i, d := range r.descriptors {
		types[i] = d.Type()
	}
	return types
}
