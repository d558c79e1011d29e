package provider

import (
	"fmt"
	"sort"
)

// Registry holds the ordered provider descriptors per capability class.
// It is built once at startup and read-only afterwards, so no locking is
// needed for concurrent reads.
type Registry struct {
	byClass map[Class][]Descriptor
}

// Load validates the given descriptors and builds a Registry.
//
// Two enabled providers in the same class sharing an id is a
// ConfigurationError. A class with zero enabled providers loads fine;
// callers discover it at dispatch time.
func Load(descriptors []Descriptor) (*Registry, error) {
	byClass := make(map[Class][]Descriptor)
	seen := make(map[Class]map[string]bool)

	for _, d := range descriptors {
		if d.ID == "" {
			return nil, &ConfigurationError{Class: d.Class, Detail: "provider id must not be empty"}
		}
		if d.Enabled {
			if seen[d.Class] == nil {
				seen[d.Class] = make(map[string]bool)
			}
			if seen[d.Class][d.ID] {
				return nil, &ConfigurationError{
					Class:  d.Class,
					Detail: fmt.Sprintf("duplicate enabled provider id %q", d.ID),
				}
			}
			seen[d.Class][d.ID] = true
		}
		byClass[d.Class] = append(byClass[d.Class], d)
	}

	// Ascending priority, id lexical order on ties, for deterministic
	// fallback order.
	for class := range byClass {
		ds := byClass[class]
		sort.Slice(ds, func(i, j int) bool {
			if ds[i].Priority != ds[j].Priority {
				return ds[i].Priority < ds[j].Priority
			}
			return ds[i].ID < ds[j].ID
		})
	}

	return &Registry{byClass: byClass}, nil
}

// ListProviders returns the descriptors for a class in fallback order.
// The returned slice is a copy; mutating it does not affect the registry.
func (r *Registry) ListProviders(class Class) []Descriptor {
	ds := r.byClass[class]
	out := make([]Descriptor, len(ds))
	copy(out, ds)
	return out
}

// EnabledProviders returns only the enabled descriptors for a class, in
// fallback order.
func (r *Registry) EnabledProviders(class Class) []Descriptor {
	var out []Descriptor
	for _, d := range r.byClass[class] {
		if d.Enabled {
			out = append(out, d)
		}
	}
	return out
}

// AllEnabled returns every enabled descriptor across all classes.
func (r *Registry) AllEnabled() []Descriptor {
	var out []Descriptor
	for _, class := range Classes() {
		out = append(out, r.EnabledProviders(class)...)
	}
	return out
}
