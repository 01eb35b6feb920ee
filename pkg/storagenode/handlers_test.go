package storagenode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribefs/scribefs/pkg/sentence"
	"github.com/scribefs/scribefs/pkg/wire"
)

func handleClient(t *testing.T, h *ClientHandler, f *wire.Frame) *wire.Frame {
	t.Helper()
	resp := h.Handle(context.Background(), nil, f)
	require.NotNil(t, resp)
	return resp
}

func TestClientHandlerRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	h := NewClientHandler(s)

	resp := handleClient(t, h, wire.NewCommand(wire.CmdCreate, "alice", "doc.txt", nil))
	assert.Equal(t, wire.StatusOK, wire.Status(resp.Status))

	script := sentence.FormatScript(0, []sentence.Edit{
		{WordIndex: 0, Word: "Hello"},
		{WordIndex: 1, Word: "world."},
	})
	resp = handleClient(t, h, wire.NewCommand(wire.CmdWriteCommit, "alice", "doc.txt", script))
	assert.Equal(t, wire.StatusOK, wire.Status(resp.Status))

	resp = handleClient(t, h, wire.NewCommand(wire.CmdRead, "alice", "doc.txt", nil))
	assert.Equal(t, wire.StatusOK, wire.Status(resp.Status))
	assert.Equal(t, "Hello world.", string(resp.Data))
}

func TestClientHandlerErrors(t *testing.T) {
	s, _ := newTestStore(t)
	h := NewClientHandler(s)

	resp := handleClient(t, h, wire.NewCommand(wire.CmdRead, "alice", "ghost.txt", nil))
	assert.Equal(t, wire.StatusFileNotFound, wire.Status(resp.Status))
	assert.Contains(t, string(resp.Data), "ghost.txt")

	// Name node commands are not served here.
	resp = handleClient(t, h, wire.NewCommand(wire.CmdView, "alice", "", nil))
	assert.Equal(t, wire.StatusInvalidCommand, wire.Status(resp.Status))

	resp = handleClient(t, h, &wire.Frame{Kind: int32(wire.KindHeartbeat), Identity: "ss-9"})
	assert.Equal(t, wire.StatusInvalidCommand, wire.Status(resp.Status))
}

func TestClientHandlerPairPayloads(t *testing.T) {
	s, _ := newTestStore(t)
	h := NewClientHandler(s)

	handleClient(t, h, wire.NewCommand(wire.CmdCreate, "alice", "src.txt", nil))

	resp := handleClient(t, h, wire.NewCommand(wire.CmdCopy, "alice", "", []byte("src.txt|dst.txt")))
	assert.Equal(t, wire.StatusOK, wire.Status(resp.Status))

	resp = handleClient(t, h, wire.NewCommand(wire.CmdCopy, "alice", "", []byte("lonely")))
	assert.Equal(t, wire.StatusInvalidParameters, wire.Status(resp.Status))

	resp = handleClient(t, h, wire.NewCommand(wire.CmdCheckpoint, "alice", "", []byte("src.txt|v1")))
	assert.Equal(t, wire.StatusOK, wire.Status(resp.Status))

	resp = handleClient(t, h, wire.NewCommand(wire.CmdViewCheckpoint, "alice", "", []byte("src.txt|v1")))
	assert.Equal(t, wire.StatusOK, wire.Status(resp.Status))
}

func TestClientHandlerAccessGrants(t *testing.T) {
	s, _ := newTestStore(t)
	h := NewClientHandler(s)

	handleClient(t, h, wire.NewCommand(wire.CmdCreate, "alice", "doc.txt", nil))

	// Explicit read grant.
	resp := handleClient(t, h, wire.NewCommand(wire.CmdAddAccess, "alice", "doc.txt", []byte("-R|bob")))
	assert.Equal(t, wire.StatusOK, wire.Status(resp.Status))

	resp = handleClient(t, h, wire.NewCommand(wire.CmdRead, "bob", "doc.txt", nil))
	assert.Equal(t, wire.StatusOK, wire.Status(resp.Status))

	// Bare username defaults to write.
	resp = handleClient(t, h, wire.NewCommand(wire.CmdAddAccess, "alice", "doc.txt", []byte("carol")))
	assert.Equal(t, wire.StatusOK, wire.Status(resp.Status))

	script := sentence.FormatScript(0, []sentence.Edit{{WordIndex: 0, Word: "hi."}})
	resp = handleClient(t, h, wire.NewCommand(wire.CmdWriteCommit, "carol", "doc.txt", script))
	assert.Equal(t, wire.StatusOK, wire.Status(resp.Status))

	// Duplicates through the client path fail loudly.
	resp = handleClient(t, h, wire.NewCommand(wire.CmdAddAccess, "alice", "doc.txt", []byte("-R|bob")))
	assert.Equal(t, wire.StatusInvalidParameters, wire.Status(resp.Status))

	resp = handleClient(t, h, wire.NewCommand(wire.CmdRemAccess, "alice", "doc.txt", []byte("bob")))
	assert.Equal(t, wire.StatusOK, wire.Status(resp.Status))

	resp = handleClient(t, h, wire.NewCommand(wire.CmdRead, "bob", "doc.txt", nil))
	assert.Equal(t, wire.StatusUnauthorized, wire.Status(resp.Status))
}

func TestControlHandlerGrantIsIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Create("alice", "doc.txt"))

	h := NewControlHandler(s)
	grant := &wire.Frame{
		Kind:     int32(wire.KindSSCommand),
		Command:  int32(wire.CmdAddAccess),
		Identity: "alice",
		Filename: "doc.txt",
		Data:     []byte("-R|bob"),
	}

	resp := h.Handle(context.Background(), nil, grant)
	assert.Equal(t, wire.StatusOK, wire.Status(resp.Status))

	// A retried approval pushes the same grant again.
	resp = h.Handle(context.Background(), nil, grant)
	assert.Equal(t, wire.StatusOK, wire.Status(resp.Status))

	_, err := s.Read("bob", "doc.txt")
	require.NoError(t, err)
}

func TestControlHandlerRejectsOtherTraffic(t *testing.T) {
	s, _ := newTestStore(t)
	h := NewControlHandler(s)

	resp := h.Handle(context.Background(), nil, wire.NewCommand(wire.CmdRead, "alice", "doc.txt", nil))
	assert.Equal(t, wire.StatusInvalidCommand, wire.Status(resp.Status))

	resp = h.Handle(context.Background(), nil, &wire.Frame{
		Kind:     int32(wire.KindSSCommand),
		Command:  int32(wire.CmdDelete),
		Identity: "nn",
		Filename: "doc.txt",
	})
	assert.Equal(t, wire.StatusInvalidCommand, wire.Status(resp.Status))
}
