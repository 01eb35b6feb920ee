package namenode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribefs/scribefs/pkg/wire"
)

func TestLockContention(t *testing.T) {
	m := NewLockManager(nil)

	require.NoError(t, m.Acquire("doc", 0, "u1"))

	// Contender is refused and the lock is untouched.
	err := m.Acquire("doc", 0, "u2")
	assert.Equal(t, wire.StatusFileLocked, statusOf(t, err))
	assert.Contains(t, err.Error(), "u1")

	// Release then hand over.
	require.NoError(t, m.Release("doc", 0, "u1"))
	require.NoError(t, m.Acquire("doc", 0, "u2"))
}

func TestLockReentryIsIdempotent(t *testing.T) {
	m := NewLockManager(nil)

	require.NoError(t, m.Acquire("doc", 0, "u1"))
	require.NoError(t, m.Acquire("doc", 0, "u1"))
	assert.Equal(t, 1, m.Count())
}

func TestLockDistinctSentencesAreIndependent(t *testing.T) {
	m := NewLockManager(nil)

	require.NoError(t, m.Acquire("doc", 0, "u1"))
	require.NoError(t, m.Acquire("doc", 1, "u2"))
	require.NoError(t, m.Acquire("other", 0, "u3"))
	assert.Equal(t, 3, m.Count())
}

func TestLockReleaseErrors(t *testing.T) {
	m := NewLockManager(nil)

	err := m.Release("doc", 0, "u1")
	assert.Equal(t, wire.StatusInvalidParameters, statusOf(t, err))

	require.NoError(t, m.Acquire("doc", 0, "u1"))
	err = m.Release("doc", 0, "u2")
	assert.Equal(t, wire.StatusUnauthorized, statusOf(t, err))
	assert.Equal(t, 1, m.Count(), "failed release leaves the lock held")
}

func TestVerifyHolderFailsClosed(t *testing.T) {
	m := NewLockManager(nil)

	// No lock at all: a commit without a prior acquire is refused.
	err := m.VerifyHolder("doc", 0, "u1")
	assert.Equal(t, wire.StatusFileLocked, statusOf(t, err))

	require.NoError(t, m.Acquire("doc", 0, "u1"))
	assert.NoError(t, m.VerifyHolder("doc", 0, "u1"))

	err = m.VerifyHolder("doc", 0, "u2")
	assert.Equal(t, wire.StatusFileLocked, statusOf(t, err))

	// Verification never creates locks.
	assert.Equal(t, 1, m.Count())
}

func TestLeaseExpiry(t *testing.T) {
	m := NewLockManager(nil)

	base := time.Now()
	m.now = func() time.Time { return base }
	require.NoError(t, m.Acquire("doc", 0, "u1"))
	require.NoError(t, m.Acquire("doc", 1, "u2"))

	// Re-acquisition does not renew the lease.
	m.now = func() time.Time { return base.Add(90 * time.Second) }
	require.NoError(t, m.Acquire("doc", 0, "u1"))

	m.now = func() time.Time { return base.Add(121 * time.Second) }
	expired := m.ReclaimExpired(120 * time.Second)
	assert.Len(t, expired, 2)
	assert.Equal(t, 0, m.Count())
}

func TestLeaseExpiryDisabled(t *testing.T) {
	m := NewLockManager(nil)

	base := time.Now()
	m.now = func() time.Time { return base }
	require.NoError(t, m.Acquire("doc", 0, "u1"))

	m.now = func() time.Time { return base.Add(24 * time.Hour) }
	assert.Empty(t, m.ReclaimExpired(-1))
	assert.Equal(t, 1, m.Count())
}

func TestLockSnapshotOrdering(t *testing.T) {
	m := NewLockManager(nil)
	require.NoError(t, m.Acquire("b.txt", 2, "u1"))
	require.NoError(t, m.Acquire("a.txt", 5, "u2"))
	require.NoError(t, m.Acquire("b.txt", 0, "u3"))

	snap := m.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "a.txt", snap[0].Filename)
	assert.Equal(t, 0, snap[1].SentenceIndex)
	assert.Equal(t, 2, snap[2].SentenceIndex)
}
