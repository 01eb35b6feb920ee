// Package hashindex provides the string-keyed concurrent index backing
// the name node registries. Reads take a shared lock so concurrent
// lookups never serialise behind each other.
package hashindex

import "sync"

// Index maps string keys to values of type V. The zero value is not
// usable; construct with New.
type Index[V any] struct {
	mu sync.RWMutex
	m  map[string]V
}

// New returns an empty index.
func New[V any]() *Index[V] {
	return &Index[V]{m: make(map[string]V)}
}

// Put stores value under key, replacing any previous value.
func (ix *Index[V]) Put(key string, value V) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.m[key] = value
}

// Get returns the value stored under key.
func (ix *Index[V]) Get(key string) (V, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	v, ok := ix.m[key]
	return v, ok
}

// Remove deletes key. Removing an absent key is a no-op.
func (ix *Index[V]) Remove(key string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.m, key)
}

// Contains reports whether key is present.
func (ix *Index[V]) Contains(key string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.m[key]
	return ok
}

// Len returns the number of entries.
func (ix *Index[V]) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.m)
}

// Keys returns a snapshot of all keys, in no particular order.
func (ix *Index[V]) Keys() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	keys := make([]string, 0, len(ix.m))
	for k := range ix.m {
		keys = append(keys, k)
	}
	return keys
}

// Range calls fn for each entry until fn returns false. The index lock
// is held for the duration; fn must not call back into the index.
func (ix *Index[V]) Range(fn func(key string, value V) bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	for k, v := range ix.m {
		if !fn(k, v) {
			return
		}
	}
}
