// Package recency tracks the last texts emitted per key (intent group or
// schedule slot) so generation can be steered away from repeating itself.
// State is in-memory only and rebuilt empty on every process start.
package recency

import "sync"

// DefaultMaxPerKey is the history bound used when New receives <= 0.
const DefaultMaxPerKey = 12

// Store is a bounded per-key FIFO of previously emitted texts.
// Safe for concurrent use by message handlers and the dispatcher.
type Store struct {
	maxPerKey int

	mu      sync.Mutex
	entries map[string][]string
}

// New creates an empty store keeping at most maxPerKey texts per key.
func New(maxPerKey int) *Store {
	if maxPerKey <= 0 {
		maxPerKey = DefaultMaxPerKey
	}
	return &Store{
		maxPerKey: maxPerKey,
		entries:   make(map[string][]string),
	}
}

// Remember appends text to the key's history, evicting the oldest entry when
// the bound is reached. Insertion order is emission order.
func (s *Store) Remember(key, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.entries[key], text)
	if len(history) > s.maxPerKey {
		history = history[len(history)-s.maxPerKey:]
	}
	s.entries[key] = history
}

// Recent returns up to the last limit texts for key, oldest first.
// The returned slice is a copy and safe to retain.
func (s *Store) Recent(key string, limit int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.entries[key]
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}

	out := make([]string, len(history))
	copy(out, history)
	return out
}

// Len returns the number of texts currently stored for key.
func (s *Store) Len(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries[key])
}
