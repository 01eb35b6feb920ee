package hashindex

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexBasics(t *testing.T) {
	ix := New[int]()

	_, ok := ix.Get("a")
	assert.False(t, ok)
	assert.Zero(t, ix.Len())

	ix.Put("a", 1)
	ix.Put("b", 2)
	ix.Put("a", 3)

	v, ok := ix.Get("a")
	require.True(t, ok)
	assert.Equal(t, 3, v)
	assert.Equal(t, 2, ix.Len())
	assert.True(t, ix.Contains("b"))

	ix.Remove("a")
	assert.False(t, ix.Contains("a"))
	ix.Remove("a")
	assert.Equal(t, 1, ix.Len())

	assert.ElementsMatch(t, []string{"b"}, ix.Keys())
}

func TestIndexRange(t *testing.T) {
	ix := New[string]()
	ix.Put("x", "1")
	ix.Put("y", "2")

	seen := map[string]string{}
	ix.Range(func(k, v string) bool {
		seen[k] = v
		return true
	})
	assert.Equal(t, map[string]string{"x": "1", "y": "2"}, seen)

	calls := 0
	ix.Range(func(string, string) bool {
		calls++
		return false
	})
	assert.Equal(t, 1, calls)
}

func TestIndexConcurrent(t *testing.T) {
	ix := New[int]()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n))
			for j := 0; j < 100; j++ {
				ix.Put(key, j)
				ix.Get(key)
				ix.Contains(key)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 8, ix.Len())
}
