// Package filelock provides a keyed reader/writer lock table. A storage
// node takes the lock for a filename around every operation touching
// that file's blobs, so concurrent readers proceed together while
// writers get exclusive access.
package filelock

import (
	"sync"
	"time"
)

type entry struct {
	refs int
	lock sync.RWMutex
}

// Table maps filenames to reference-counted RWMutexes. Entries are
// created on first use and evicted once no caller holds or waits on
// them, so the table stays proportional to the working set.
type Table struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewTable() *Table {
	return &Table{entries: make(map[string]*entry)}
}

func (t *Table) acquire(name string) *entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[name]
	if !ok {
		e = &entry{}
		t.entries[name] = e
	}
	e.refs++
	return e
}

func (t *Table) release(name string, e *entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(t.entries, name)
	}
}

// RLock takes the shared lock for name.
func (t *Table) RLock(name string) {
	t.acquire(name).lock.RLock()
}

// RUnlock releases the shared lock for name.
func (t *Table) RUnlock(name string) {
	t.mu.Lock()
	e := t.entries[name]
	t.mu.Unlock()

	e.lock.RUnlock()
	t.release(name, e)
}

// Lock takes the exclusive lock for name.
func (t *Table) Lock(name string) {
	t.acquire(name).lock.Lock()
}

// Unlock releases the exclusive lock for name.
func (t *Table) Unlock(name string) {
	t.mu.Lock()
	e := t.entries[name]
	t.mu.Unlock()

	e.lock.Unlock()
	t.release(name, e)
}

// Len reports how many filenames currently have live lock entries.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Drain waits until no caller holds or waits on name's lock, polling
// until the deadline. It reports whether the entry drained in time.
// Callers use this after removing a file so stragglers finish before
// the name is considered gone.
func (t *Table) Drain(name string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		t.mu.Lock()
		_, live := t.entries[name]
		t.mu.Unlock()

		if !live {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(10 * time.Millisecond)
	}
}
