// Package registry keeps the set of recipient ids seen so far. The set grows
// monotonically for the process lifetime and is never persisted; scheduled
// broadcasts go to whoever has messaged the bot since the last restart.
package registry

import (
	"sort"
	"sync"
)

// Registry is an append-only set of recipient identifiers.
type Registry struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{ids: make(map[string]struct{})}
}

// Remember adds id to the set. Adding an existing id is a no-op.
func (r *Registry) Remember(id string) {
	if id == "" {
		return
	}
	r.mu.Lock()
	r.ids[id] = struct{}{}
	r.mu.Unlock()
}

// Snapshot returns a sorted copy of the current membership. Ids added after
// the snapshot is taken are not reflected in it.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.ids))
	for id := range r.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len returns the current membership count.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ids)
}
