package storagenode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribefs/scribefs/pkg/sentence"
	"github.com/scribefs/scribefs/pkg/wire"
)

func TestCheckpointRevertUndoChain(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Create("alice", "doc.txt"))
	commit(t, s, "alice", "doc.txt", 0, sentence.Edit{WordIndex: 0, Word: "One."})
	require.NoError(t, s.Checkpoint("alice", "doc.txt", "v1"))

	commit(t, s, "alice", "doc.txt", 1, sentence.Edit{WordIndex: 0, Word: "Two."})
	require.Equal(t, "One. Two.", readBody(t, s, "alice", "doc.txt"))

	// The snapshot reads back without touching the live body.
	snap, err := s.ViewCheckpoint("alice", "doc.txt", "v1")
	require.NoError(t, err)
	assert.Equal(t, "One.", string(snap))
	assert.Equal(t, "One. Two.", readBody(t, s, "alice", "doc.txt"))

	require.NoError(t, s.Revert("alice", "doc.txt", "v1"))
	assert.Equal(t, "One.", readBody(t, s, "alice", "doc.txt"))

	// The revert itself is one undo away.
	require.NoError(t, s.Undo("alice", "doc.txt"))
	assert.Equal(t, "One. Two.", readBody(t, s, "alice", "doc.txt"))
}

func TestCheckpointOverwriteSameTag(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Create("alice", "doc.txt"))
	commit(t, s, "alice", "doc.txt", 0, sentence.Edit{WordIndex: 0, Word: "Old."})
	require.NoError(t, s.Checkpoint("alice", "doc.txt", "v1"))

	commit(t, s, "alice", "doc.txt", 1, sentence.Edit{WordIndex: 0, Word: "New."})
	require.NoError(t, s.Checkpoint("alice", "doc.txt", "v1"))

	snap, err := s.ViewCheckpoint("alice", "doc.txt", "v1")
	require.NoError(t, err)
	assert.Equal(t, "Old. New.", string(snap))
}

func TestCheckpointPermissions(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Create("alice", "doc.txt"))
	require.NoError(t, s.Checkpoint("alice", "doc.txt", "v1"))

	err := s.Checkpoint("mallory", "doc.txt", "v2")
	assert.Equal(t, wire.StatusUnauthorized, statusOf(t, err))

	// Readers may snapshot and inspect, but not revert.
	require.NoError(t, s.AddAccess("alice", "doc.txt", "bob", PermRead, false))
	require.NoError(t, s.Checkpoint("bob", "doc.txt", "bobs"))
	_, err = s.ViewCheckpoint("bob", "doc.txt", "v1")
	require.NoError(t, err)

	err = s.Revert("bob", "doc.txt", "v1")
	assert.Equal(t, wire.StatusUnauthorized, statusOf(t, err))
}

func TestCheckpointErrors(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Create("alice", "doc.txt"))

	_, err := s.ViewCheckpoint("alice", "doc.txt", "ghost")
	assert.Equal(t, wire.StatusFileNotFound, statusOf(t, err))

	err = s.Revert("alice", "doc.txt", "ghost")
	assert.Equal(t, wire.StatusFileNotFound, statusOf(t, err))

	for _, tag := range []string{"", "a/b", "a|b", "..", "bad..tag"} {
		err := s.Checkpoint("alice", "doc.txt", tag)
		assert.Equal(t, wire.StatusInvalidParameters, statusOf(t, err), "tag %q", tag)
	}
}

func TestListCheckpoints(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Create("alice", "doc.txt"))

	out, err := s.ListCheckpoints("alice", "doc.txt")
	require.NoError(t, err)
	assert.Equal(t, "no checkpoints found", string(out))

	require.NoError(t, s.Checkpoint("alice", "doc.txt", "v1"))
	require.NoError(t, s.Checkpoint("alice", "doc.txt", "v2"))

	// Another file's checkpoints stay out of the listing.
	require.NoError(t, s.Create("alice", "other.txt"))
	require.NoError(t, s.Checkpoint("alice", "other.txt", "v9"))

	out, err = s.ListCheckpoints("alice", "doc.txt")
	require.NoError(t, err)
	assert.Equal(t, "v1\nv2", string(out))
}

func TestCheckpointsIsolatedAcrossUnderscoreNames(t *testing.T) {
	s, backend := newTestStore(t)
	require.NoError(t, s.Create("alice", "a"))
	require.NoError(t, s.Create("alice", "a_b"))
	commit(t, s, "alice", "a_b", 0, sentence.Edit{WordIndex: 0, Word: "Secret."})
	require.NoError(t, s.Checkpoint("alice", "a_b", "x"))

	// "a_b"'s snapshot is not a tag of "a", and is not readable
	// through "a" under any tag spelling.
	out, err := s.ListCheckpoints("alice", "a")
	require.NoError(t, err)
	assert.Equal(t, "no checkpoints found", string(out))

	_, err = s.ViewCheckpoint("alice", "a", "b_x")
	assert.Equal(t, wire.StatusFileNotFound, statusOf(t, err))

	// Deleting "a" leaves "a_b"'s snapshot intact.
	require.NoError(t, s.Delete("alice", "a"))

	exists, err := backend.Exists("checkpoints/a_b/x.ckpt")
	require.NoError(t, err)
	assert.True(t, exists)

	snap, err := s.ViewCheckpoint("alice", "a_b", "x")
	require.NoError(t, err)
	assert.Equal(t, "Secret.", string(snap))
}

func TestFolders(t *testing.T) {
	s, backend := newTestStore(t)
	require.NoError(t, s.Create("alice", "doc.txt"))
	commit(t, s, "alice", "doc.txt", 0, sentence.Edit{WordIndex: 0, Word: "Body."})

	_, err := s.ViewFolder("alice", "docs")
	assert.Equal(t, wire.StatusFileNotFound, statusOf(t, err))

	require.NoError(t, s.CreateFolder("alice", "docs"))
	err = s.CreateFolder("alice", "docs")
	assert.Equal(t, wire.StatusFileExists, statusOf(t, err))

	out, err := s.ViewFolder("alice", "docs")
	require.NoError(t, err)
	assert.Equal(t, "folder is empty", string(out))

	err = s.Move("bob", "doc.txt", "docs")
	assert.Equal(t, wire.StatusUnauthorized, statusOf(t, err))

	err = s.Move("alice", "doc.txt", "ghost")
	assert.Equal(t, wire.StatusFileNotFound, statusOf(t, err))

	require.NoError(t, s.Move("alice", "doc.txt", "docs"))

	out, err = s.ViewFolder("alice", "docs")
	require.NoError(t, err)
	assert.Equal(t, "doc.txt", string(out))

	// The blobs moved with the file; the bare name no longer resolves.
	exists, err := backend.Exists("files/docs/doc.txt")
	require.NoError(t, err)
	assert.True(t, exists)
	_, err = s.Read("alice", "doc.txt")
	assert.Equal(t, wire.StatusFileNotFound, statusOf(t, err))
}
