package fsg

import (
	"fmt"
	"sync"
)

// Registry is a mutex-guarded name→Model table, one per decoder instance.
// It mirrors the hash table of named grammars the reference FSG search
// keeps so a single decoder can hold several grammars and switch between
// utterances (mid-utterance edits are out of scope; switching only takes
// effect at the next [pkg/decoder.Decoder.Start]).
type Registry struct {
	mu       sync.RWMutex
	byName   map[string]Model
	selected string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Model)}
}

// Add registers m under m.Name(), finalizing it if it is a *Graph. Adding a
// grammar under a name that already exists replaces it; the caller must
// re-[Registry.Select] if the replaced grammar was selected.
func (r *Registry) Add(m Model) {
	if g, ok := m.(*Graph); ok {
		g.Finalize()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[m.Name()] = m
}

// Remove unregisters the grammar named name. If it was selected, no grammar
// remains selected.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byName, name)
	if r.selected == name {
		r.selected = ""
	}
}

// RemoveByName is an alias for [Registry.Remove], named to match the
// reference fsg_set_remove_byname entry point.
func (r *Registry) RemoveByName(name string) { r.Remove(name) }

// Select marks name as the grammar a subsequent decode should use. It
// returns an error if no grammar is registered under that name.
func (r *Registry) Select(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; !ok {
		return fmt.Errorf("fsg: select %q: no such grammar", name)
	}
	r.selected = name
	return nil
}

// Selected returns the currently selected grammar, or nil if none is
// selected.
func (r *Registry) Selected() Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.selected == "" {
		return nil
	}
	return r.byName[r.selected]
}

// Get returns the grammar registered under name, or nil if none.
func (r *Registry) Get(name string) Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byName[name]
}

// Iter calls fn once per registered grammar, in no particular order. fn
// must not call back into the Registry.
func (r *Registry) Iter(fn func(Model)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.byName {
		fn(m)
	}
}

// Len returns the number of registered grammars.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}
