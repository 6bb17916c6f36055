package widgets

import (
	"sort"
	"strings"
	"sync"
)

// Contributor is a widget module that can be placed inside a rich content
// area. Name is the contributor directory name and doubles as the choice
// value stored on area fields.
type Contributor struct {
	Name     string
	Label    string
	Source   string
	Priority int
}

type entry struct {
	Contributor
	order int
}

// Registry collects widget contributors from discovery and manual
// registration. Higher priority sorts first; ties fall back to registration
// order. The first contributor registered under a name wins.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
	names   map[string]struct{}
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// Register adds contributors, skipping blank and duplicate names. It reports
// how many were accepted.
func (r *Registry) Register(contributors ...Contributor) int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	accepted := 0
	for _, c := range contributors {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			continue
		}
		if _, exists := r.names[c.Name]; exists {
			continue
		}
		if strings.TrimSpace(c.Label) == "" {
			c.Label = DefaultLabel(c.Name)
		}
		r.names[c.Name] = struct{}{}
		r.entries = append(r.entries, entry{Contributor: c, order: len(r.entries)})
		accepted++
	}
	return accepted
}

// Has reports whether a contributor with name is registered.
func (r *Registry) Has(name string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.names[name]
	return ok
}

// List returns the contributors in resolution order.
func (r *Registry) List() []Contributor {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	entries := append([]entry(nil), r.entries...)
	r.mu.RUnlock()

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Priority == entries[j].Priority {
			return entries[i].order < entries[j].order
		}
		return entries[i].Priority > entries[j].Priority
	})

	out := make([]Contributor, len(entries))
	for idx, e := range entries {
		out[idx] = e.Contributor
	}
	return out
}
