package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribefs/scribefs/pkg/namenode"
	"github.com/scribefs/scribefs/pkg/sentence"
	"github.com/scribefs/scribefs/pkg/server"
	"github.com/scribefs/scribefs/pkg/storagenode"
	"github.com/scribefs/scribefs/pkg/storagenode/store"
	"github.com/scribefs/scribefs/pkg/wire"
)

// cluster is a full in-process deployment: a name node and one storage
// node, each on loopback ports picked by the kernel.
type cluster struct {
	nameNode    string
	storageAddr string
}

func startServer(t *testing.T, ctx context.Context, name string, h server.Handler) string {
	t.Helper()

	srv := server.New(server.Config{
		Name:            name,
		Port:            0,
		MaxConnections:  16,
		ShutdownTimeout: time.Second,
	}, h, nil)
	go func() { _ = srv.Serve(ctx) }()

	addr, err := srv.Addr(ctx)
	require.NoError(t, err)
	return addr.String()
}

func portOf(t *testing.T, addr string) int {
	t.Helper()
	_, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return port
}

func startCluster(t *testing.T) *cluster {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	registry := namenode.NewRegistry(t.TempDir(), 100, nil)
	locks := namenode.NewLockManager(nil)
	requests := namenode.NewRequestQueue(nil)
	nnAddr := startServer(t, ctx, "namenode", namenode.NewNode(registry, locks, requests))

	backend, err := store.NewFS(t.TempDir())
	require.NoError(t, err)
	st := storagenode.NewStore("ss-1", backend, storagenode.NewNameNodeVerifier(nnAddr))
	clientAddr := startServer(t, ctx, "ss-1 client", storagenode.NewClientHandler(st))
	controlAddr := startServer(t, ctx, "ss-1 control", storagenode.NewControlHandler(st))

	// Register the storage node with the ports it actually bound.
	conn, err := net.Dial("tcp", nnAddr)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, wire.WriteFrame(conn, &wire.Frame{
		Kind:     int32(wire.KindRegisterSS),
		Identity: "ss-1",
		Data:     fmt.Appendf(nil, "ss-1|127.0.0.1|%d|%d", portOf(t, controlAddr), portOf(t, clientAddr)),
	}))
	resp, err := wire.ReadFrame(conn)
	require.NoError(t, err)
	require.Equal(t, wire.StatusOK, wire.Status(resp.Status), "%s", resp.Data)

	return &cluster{nameNode: nnAddr, storageAddr: clientAddr}
}

func statusOf(t *testing.T, err error) wire.Status {
	t.Helper()
	var se *wire.StatusError
	require.True(t, errors.As(err, &se), "expected a status error, got %v", err)
	return se.Status
}

func TestEditingSession(t *testing.T) {
	cl := startCluster(t)
	ctx := context.Background()

	alice := New("alice", cl.nameNode)
	require.NoError(t, alice.Register(ctx))
	require.NoError(t, alice.Create(ctx, "doc.txt"))

	require.NoError(t, alice.Write(ctx, "doc.txt", 0, []sentence.Edit{
		{WordIndex: 0, Word: "Hello"},
		{WordIndex: 1, Word: "world."},
	}))
	require.NoError(t, alice.Write(ctx, "doc.txt", 1, []sentence.Edit{
		{WordIndex: 0, Word: "Goodbye."},
	}))

	body, err := alice.Read(ctx, "doc.txt")
	require.NoError(t, err)
	assert.Equal(t, "Hello world. Goodbye.", string(body))

	// The lock is free again after each write.
	words, err := alice.Stream(ctx, "doc.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello", "world.", "Goodbye."}, words)

	files, err := alice.View(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "doc.txt", files[0].Name)
	assert.Equal(t, "alice", files[0].Owner)

	users, err := alice.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, users)
}

func TestCommitWithoutLockIsRefused(t *testing.T) {
	cl := startCluster(t)
	ctx := context.Background()

	alice := New("alice", cl.nameNode)
	require.NoError(t, alice.Create(ctx, "doc.txt"))

	// Going straight to the storage node skips the lock acquisition;
	// the node checks with the name node and refuses.
	script := sentence.FormatScript(0, []sentence.Edit{{WordIndex: 0, Word: "sneaky."}})
	_, err := alice.call(ctx, cl.storageAddr, wire.NewCommand(wire.CmdWriteCommit, "alice", "doc.txt", script))
	require.Error(t, err)
	assert.Equal(t, wire.StatusFileLocked, statusOf(t, err))

	body, err := alice.Read(ctx, "doc.txt")
	require.NoError(t, err)
	assert.Empty(t, body)
}

func TestAccessRequestWorkflow(t *testing.T) {
	cl := startCluster(t)
	ctx := context.Background()

	alice := New("alice", cl.nameNode)
	bob := New("bob", cl.nameNode)
	require.NoError(t, alice.Create(ctx, "doc.txt"))
	require.NoError(t, alice.Write(ctx, "doc.txt", 0, []sentence.Edit{{WordIndex: 0, Word: "Secret."}}))

	_, err := bob.Read(ctx, "doc.txt")
	assert.Equal(t, wire.StatusUnauthorized, statusOf(t, err))

	require.NoError(t, bob.RequestAccess(ctx, "doc.txt"))

	pending, err := alice.ViewRequests(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Contains(t, pending[0], "bob")

	require.NoError(t, alice.ApproveRequest(ctx, "doc.txt", "bob"))

	body, err := bob.Read(ctx, "doc.txt")
	require.NoError(t, err)
	assert.Equal(t, "Secret.", string(body))

	// Approved means read, not write.
	err = bob.Write(ctx, "doc.txt", 0, []sentence.Edit{{WordIndex: 0, Word: "hijack."}})
	assert.Equal(t, wire.StatusUnauthorized, statusOf(t, err))

	pending, err = alice.ViewRequests(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestAccessGrantsAndRevocation(t *testing.T) {
	cl := startCluster(t)
	ctx := context.Background()

	alice := New("alice", cl.nameNode)
	bob := New("bob", cl.nameNode)
	require.NoError(t, alice.Create(ctx, "doc.txt"))

	require.NoError(t, alice.AddAccess(ctx, "doc.txt", "bob", true))
	require.NoError(t, bob.Write(ctx, "doc.txt", 0, []sentence.Edit{{WordIndex: 0, Word: "Bob."}}))

	require.NoError(t, alice.RemAccess(ctx, "doc.txt", "bob"))
	_, err := bob.Read(ctx, "doc.txt")
	assert.Equal(t, wire.StatusUnauthorized, statusOf(t, err))

	info, err := alice.FileInfo(ctx, "doc.txt")
	require.NoError(t, err)
	assert.Contains(t, info, "Owner: alice")
}

func TestDeleteCleansNamespaceAndBlobs(t *testing.T) {
	cl := startCluster(t)
	ctx := context.Background()

	alice := New("alice", cl.nameNode)
	require.NoError(t, alice.Create(ctx, "doc.txt"))
	require.NoError(t, alice.Delete(ctx, "doc.txt"))

	_, err := alice.Read(ctx, "doc.txt")
	assert.Equal(t, wire.StatusFileNotFound, statusOf(t, err))

	files, err := alice.View(ctx)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestCheckpointLifecycle(t *testing.T) {
	cl := startCluster(t)
	ctx := context.Background()

	alice := New("alice", cl.nameNode)
	require.NoError(t, alice.Create(ctx, "doc.txt"))
	require.NoError(t, alice.Write(ctx, "doc.txt", 0, []sentence.Edit{{WordIndex: 0, Word: "One."}}))
	require.NoError(t, alice.Checkpoint(ctx, "doc.txt", "v1"))

	require.NoError(t, alice.Write(ctx, "doc.txt", 1, []sentence.Edit{{WordIndex: 0, Word: "Two."}}))

	snap, err := alice.ViewCheckpoint(ctx, "doc.txt", "v1")
	require.NoError(t, err)
	assert.Equal(t, "One.", string(snap))

	tags, err := alice.ListCheckpoints(ctx, "doc.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"v1"}, tags)

	require.NoError(t, alice.Revert(ctx, "doc.txt", "v1"))
	body, err := alice.Read(ctx, "doc.txt")
	require.NoError(t, err)
	assert.Equal(t, "One.", string(body))

	require.NoError(t, alice.Undo(ctx, "doc.txt"))
	body, err = alice.Read(ctx, "doc.txt")
	require.NoError(t, err)
	assert.Equal(t, "One. Two.", string(body))
}

func TestFoldersAndCopy(t *testing.T) {
	cl := startCluster(t)
	ctx := context.Background()

	alice := New("alice", cl.nameNode)
	require.NoError(t, alice.Create(ctx, "doc.txt"))
	require.NoError(t, alice.Write(ctx, "doc.txt", 0, []sentence.Edit{{WordIndex: 0, Word: "Body."}}))

	require.NoError(t, alice.Copy(ctx, "doc.txt", "copy.txt"))

	require.NoError(t, alice.CreateFolder(ctx, "docs"))
	entries, err := alice.ViewFolder(ctx, "docs")
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, alice.Move(ctx, "doc.txt", "docs"))
	entries, err = alice.ViewFolder(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc.txt"}, entries)
}

func TestParseFileRows(t *testing.T) {
	entries, err := parseFileRows([]byte("a.txt|alice|2|12|b.txt|bob|0|0|"))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, FileEntry{Name: "a.txt", Owner: "alice", Words: 2, Chars: 12}, entries[0])
	assert.Equal(t, FileEntry{Name: "b.txt", Owner: "bob", Words: 0, Chars: 0}, entries[1])

	empty, err := parseFileRows(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = parseFileRows([]byte("a.txt|alice|2|"))
	assert.Error(t, err)
}
