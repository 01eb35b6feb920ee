// Package lru implements the bounded least-recently-used cache the name
// node keeps in front of its file registry.
package lru

import (
	"container/list"
	"sync"
)

type entry[V any] struct {
	key   string
	value V
}

// Cache is a fixed-capacity LRU cache. Get promotes the entry to most
// recently used; Put evicts the least recently used entry on overflow.
// All methods are safe for concurrent use.
type Cache[V any] struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	items    map[string]*list.Element
}

// New returns a cache holding at most capacity entries. Capacity must be
// positive.
func New[V any](capacity int) *Cache[V] {
	if capacity <= 0 {
		panic("lru: capacity must be positive")
	}
	return &Cache[V]{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Get returns the value cached under key and marks it most recently used.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*entry[V]).value, true
	}
	var zero V
	return zero, false
}

// Put caches value under key, replacing any previous value. The least
// recently used entry is evicted if the cache is full.
func (c *Cache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*entry[V]).value = value
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*entry[V]).key)
	}

	c.items[key] = c.order.PushFront(&entry[V]{key: key, value: value})
}

// Remove drops key from the cache. Removing an absent key is a no-op.
func (c *Cache[V]) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.order.Remove(el)
		delete(c.items, key)
	}
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
