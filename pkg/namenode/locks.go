package namenode

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/scribefs/scribefs/pkg/metrics"
	"github.com/scribefs/scribefs/pkg/wire"
)

// SentenceLock reserves one sentence of one file for a single holder.
type SentenceLock struct {
	Filename      string
	SentenceIndex int
	Holder        string
	Acquired      time.Time
}

// LockManager arbitrates sentence locks. Locks are in-memory and
// non-persistent; a restart clears them. Each lock carries a lease:
// the failure monitor reclaims locks older than the configured TTL so
// a crashed client cannot wedge a sentence forever. Re-acquisition by
// the holder does not renew the lease.
type LockManager struct {
	mu      sync.Mutex
	locks   map[string]SentenceLock
	metrics metrics.NameNodeMetrics
	now     func() time.Time
}

// NewLockManager creates an empty lock manager.
func NewLockManager(m metrics.NameNodeMetrics) *LockManager {
	return &LockManager{
		locks:   make(map[string]SentenceLock),
		metrics: m,
		now:     time.Now,
	}
}

func lockKey(filename string, index int) string {
	return fmt.Sprintf("%s:%d", filename, index)
}

// Acquire takes the lock on (filename, index) for holder. Re-entry by
// the current holder succeeds without state change; a lock held by
// another identity fails with file-locked and is left untouched.
func (m *LockManager) Acquire(filename string, index int, holder string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := lockKey(filename, index)
	if existing, ok := m.locks[key]; ok {
		if existing.Holder == holder {
			return nil
		}
		return wire.Errorf(wire.StatusFileLocked, "sentence locked by %s", existing.Holder)
	}

	m.locks[key] = SentenceLock{
		Filename:      filename,
		SentenceIndex: index,
		Holder:        holder,
		Acquired:      m.now(),
	}
	m.updateGaugeLocked()
	return nil
}

// Release drops the lock on (filename, index). Only the holder may
// release; an absent lock fails with invalid-parameters.
func (m *LockManager) Release(filename string, index int, holder string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := lockKey(filename, index)
	existing, ok := m.locks[key]
	if !ok {
		return wire.Errorf(wire.StatusInvalidParameters, "no lock exists")
	}
	if existing.Holder != holder {
		return wire.Errorf(wire.StatusUnauthorized, "lock owned by %s", existing.Holder)
	}

	delete(m.locks, key)
	m.updateGaugeLocked()
	return nil
}

// VerifyHolder confirms that holder currently owns the lock on
// (filename, index). Used by storage nodes to revalidate a commit;
// it never creates a lock, and an absent lock fails closed.
func (m *LockManager) VerifyHolder(filename string, index int, holder string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.locks[lockKey(filename, index)]
	if !ok {
		return wire.Errorf(wire.StatusFileLocked, "no sentence lock held")
	}
	if existing.Holder != holder {
		return wire.Errorf(wire.StatusFileLocked, "sentence locked by %s", existing.Holder)
	}
	return nil
}

// ReclaimExpired drops every lock whose lease is older than ttl and
// returns the reclaimed locks. A non-positive ttl reclaims nothing.
func (m *LockManager) ReclaimExpired(ttl time.Duration) []SentenceLock {
	if ttl <= 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var expired []SentenceLock
	for key, lock := range m.locks {
		if now.Sub(lock.Acquired) > ttl {
			delete(m.locks, key)
			expired = append(expired, lock)
			if m.metrics != nil {
				m.metrics.RecordLockExpired()
			}
		}
	}
	if len(expired) > 0 {
		m.updateGaugeLocked()
	}
	return expired
}

// Count returns the number of locks currently held.
func (m *LockManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

// Snapshot returns every held lock ordered by file and index.
func (m *LockManager) Snapshot() []SentenceLock {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]SentenceLock, 0, len(m.locks))
	for _, lock := range m.locks {
		out = append(out, lock)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Filename != out[j].Filename {
			return out[i].Filename < out[j].Filename
		}
		return out[i].SentenceIndex < out[j].SentenceIndex
	})
	return out
}

func (m *LockManager) updateGaugeLocked() {
	if m.metrics != nil {
		m.metrics.SetLocks(len(m.locks))
	}
}
