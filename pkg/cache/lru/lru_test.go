package lru

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachePutGet(t *testing.T) {
	c := New[string](2)

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Put("a", "1")
	c.Put("a", "2")
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "2", v)
	assert.Equal(t, 1, c.Len())
}

func TestCacheEvictsOldest(t *testing.T) {
	c := New[int](2)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)

	_, ok := c.Get("a")
	assert.False(t, ok, "oldest entry should be evicted")
	_, ok = c.Get("b")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestCacheGetPromotes(t *testing.T) {
	c := New[int](2)
	c.Put("a", 1)
	c.Put("b", 2)

	// Touch a so b becomes the eviction candidate.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Put("c", 3)
	_, ok = c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
}

func TestCacheRemove(t *testing.T) {
	c := New[int](2)
	c.Put("a", 1)
	c.Remove("a")
	c.Remove("a")

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestCacheBadCapacity(t *testing.T) {
	assert.Panics(t, func() { New[int](0) })
}
