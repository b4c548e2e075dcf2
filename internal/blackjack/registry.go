package blackjack

import (
	"sort"
	"sync"
)

// Registry maps a player ID to at most one entry. It is safe for concurrent
// use; Create is an atomic check-and-set so two concurrent starts for the
// same player cannot both succeed.
type Registry[T any] struct {
	mu      sync.RWMutex
	entries map[string]T
}

// NewRegistry creates an empty registry
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{entries: make(map[string]T)}
}

// Get returns the entry for a player
func (r *Registry[T]) Get(playerID string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[playerID]
	return v, ok
}

// Set stores an entry, replacing any existing one
func (r *Registry[T]) Set(playerID string, v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[playerID] = v
}

// Create builds and stores an entry only if the player has none. build runs
// under the registry lock and should be cheap. It returns
// ErrGameInProgress when the player already has an entry.
func (r *Registry[T]) Create(playerID string, build func() (T, error)) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[playerID]; exists {
		var zero T
		return zero, ErrGameInProgress
	}

	v, err := build()
	if err != nil {
		var zero T
		return zero, err
	}
	r.entries[playerID] = v
	return v, nil
}

// Delete removes a player's entry and reports whether one existed
func (r *Registry[T]) Delete(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[playerID]
	delete(r.entries, playerID)
	return ok
}

// Len returns the number of entries
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Players returns the registered player IDs in sorted order
func (r *Registry[T]) Players() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
