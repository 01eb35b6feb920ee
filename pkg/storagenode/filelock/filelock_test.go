package filelock

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntriesEvictedWhenIdle(t *testing.T) {
	tbl := NewTable()

	tbl.Lock("a")
	tbl.RLock("b")
	assert.Equal(t, 2, tbl.Len())

	tbl.Unlock("a")
	tbl.RUnlock("b")
	assert.Equal(t, 0, tbl.Len())
}

func TestWriterExcludesReaders(t *testing.T) {
	tbl := NewTable()

	tbl.Lock("doc")

	done := make(chan struct{})
	var readAt atomic.Bool
	go func() {
		tbl.RLock("doc")
		readAt.Store(true)
		tbl.RUnlock("doc")
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	assert.False(t, readAt.Load(), "reader must wait for the writer")

	tbl.Unlock("doc")
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reader never ran")
	}
	assert.True(t, readAt.Load())
}

func TestDistinctNamesDoNotContend(t *testing.T) {
	tbl := NewTable()

	tbl.Lock("a")
	defer tbl.Unlock("a")

	done := make(chan struct{})
	go func() {
		tbl.Lock("b")
		tbl.Unlock("b")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different name blocked")
	}
}

func TestConcurrentReadersShareLock(t *testing.T) {
	tbl := NewTable()

	var wg sync.WaitGroup
	var peak atomic.Int32
	var current atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tbl.RLock("doc")
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			current.Add(-1)
			tbl.RUnlock("doc")
		}()
	}
	wg.Wait()

	assert.Greater(t, peak.Load(), int32(1), "readers should overlap")
	assert.Equal(t, 0, tbl.Len())
}

func TestDrain(t *testing.T) {
	tbl := NewTable()

	require.True(t, tbl.Drain("idle", 50*time.Millisecond))

	tbl.RLock("busy")
	assert.False(t, tbl.Drain("busy", 30*time.Millisecond))

	go func() {
		time.Sleep(20 * time.Millisecond)
		tbl.RUnlock("busy")
	}()
	assert.True(t, tbl.Drain("busy", time.Second))
}
