package storagenode

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/scribefs/scribefs/pkg/wire"
)

// ClientHandler serves the client-facing port: every content operation
// a client reaches after the name node redirects it here.
type ClientHandler struct {
	store *Store
}

func NewClientHandler(store *Store) *ClientHandler {
	return &ClientHandler{store: store}
}

func (h *ClientHandler) Handle(ctx context.Context, remote net.Addr, f *wire.Frame) *wire.Frame {
	if wire.Kind(f.Kind) != wire.KindCommand {
		return errorResponse(wire.Errorf(wire.StatusInvalidCommand, "unexpected frame kind %s", wire.Kind(f.Kind)))
	}

	switch wire.Command(f.Command) {
	case wire.CmdCreate:
		if err := h.store.Create(f.Identity, f.Filename); err != nil {
			return errorResponse(err)
		}
		return okResponse("file %s created", f.Filename)

	case wire.CmdRead:
		return dataResponse(h.store.Read(f.Identity, f.Filename))

	case wire.CmdWrite, wire.CmdWriteCommit:
		return dataResponse(h.store.WriteCommit(ctx, f.Identity, f.Filename, f.Data))

	case wire.CmdDelete:
		if err := h.store.Delete(f.Identity, f.Filename); err != nil {
			return errorResponse(err)
		}
		return okResponse("file %s deleted", f.Filename)

	case wire.CmdUndo:
		if err := h.store.Undo(f.Identity, f.Filename); err != nil {
			return errorResponse(err)
		}
		return okResponse("undo applied to %s", f.Filename)

	case wire.CmdInfo:
		return dataResponse(h.store.Info(f.Identity, f.Filename))

	case wire.CmdFileInfo:
		return dataResponse(h.store.FileInfo(f.Identity, f.Filename))

	case wire.CmdStream:
		return dataResponse(h.store.Stream(f.Identity, f.Filename))

	case wire.CmdAddAccess:
		target, perm, err := parseGrant(f.Data)
		if err != nil {
			return errorResponse(err)
		}
		if err := h.store.AddAccess(f.Identity, f.Filename, target, perm, false); err != nil {
			return errorResponse(err)
		}
		return okResponse("access granted to %s", target)

	case wire.CmdRemAccess:
		target := strings.TrimSpace(string(f.Data))
		if err := h.store.RemAccess(f.Identity, f.Filename, target); err != nil {
			return errorResponse(err)
		}
		return okResponse("access revoked for %s", target)

	case wire.CmdCopy:
		src, dst, err := wire.ParsePair(f.Data)
		if err != nil {
			return errorResponse(wire.Errorf(wire.StatusInvalidParameters, "%v", err))
		}
		if err := h.store.Copy(f.Identity, src, dst); err != nil {
			return errorResponse(err)
		}
		return okResponse("file %s copied to %s", src, dst)

	case wire.CmdCreateFolder:
		if err := h.store.CreateFolder(f.Identity, f.Filename); err != nil {
			return errorResponse(err)
		}
		return okResponse("folder %s created", f.Filename)

	case wire.CmdMove:
		name, folder, err := wire.ParsePair(f.Data)
		if err != nil {
			return errorResponse(wire.Errorf(wire.StatusInvalidParameters, "%v", err))
		}
		if err := h.store.Move(f.Identity, name, folder); err != nil {
			return errorResponse(err)
		}
		return okResponse("file %s moved to %s", name, folder)

	case wire.CmdViewFolder:
		return dataResponse(h.store.ViewFolder(f.Identity, f.Filename))

	case wire.CmdCheckpoint:
		name, tag, err := wire.ParsePair(f.Data)
		if err != nil {
			return errorResponse(wire.Errorf(wire.StatusInvalidParameters, "%v", err))
		}
		if err := h.store.Checkpoint(f.Identity, name, tag); err != nil {
			return errorResponse(err)
		}
		return okResponse("checkpoint %s created for %s", tag, name)

	case wire.CmdViewCheckpoint:
		name, tag, err := wire.ParsePair(f.Data)
		if err != nil {
			return errorResponse(wire.Errorf(wire.StatusInvalidParameters, "%v", err))
		}
		return dataResponse(h.store.ViewCheckpoint(f.Identity, name, tag))

	case wire.CmdRevert:
		name, tag, err := wire.ParsePair(f.Data)
		if err != nil {
			return errorResponse(wire.Errorf(wire.StatusInvalidParameters, "%v", err))
		}
		if err := h.store.Revert(f.Identity, name, tag); err != nil {
			return errorResponse(err)
		}
		return okResponse("file %s reverted to checkpoint %s", name, tag)

	case wire.CmdListCheckpoints:
		return dataResponse(h.store.ListCheckpoints(f.Identity, f.Filename))

	default:
		return errorResponse(wire.Errorf(wire.StatusInvalidCommand, "command %s not served here", wire.Command(f.Command)))
	}
}

// ControlHandler serves the control port the name node dials: today
// that is the access grant pushed when an owner approves a request.
// Grants through this path are idempotent, so a retried approval does
// not fail on the duplicate.
type ControlHandler struct {
	store *Store
}

func NewControlHandler(store *Store) *ControlHandler {
	return &ControlHandler{store: store}
}

func (h *ControlHandler) Handle(ctx context.Context, remote net.Addr, f *wire.Frame) *wire.Frame {
	if wire.Kind(f.Kind) != wire.KindSSCommand {
		return errorResponse(wire.Errorf(wire.StatusInvalidCommand, "unexpected frame kind %s", wire.Kind(f.Kind)))
	}

	switch wire.Command(f.Command) {
	case wire.CmdAddAccess:
		target, perm, err := parseGrant(f.Data)
		if err != nil {
			return errorResponse(err)
		}
		if err := h.store.AddAccess(f.Identity, f.Filename, target, perm, true); err != nil {
			return errorResponse(err)
		}
		return okResponse("access granted to %s", target)

	default:
		return errorResponse(wire.Errorf(wire.StatusInvalidCommand, "unexpected control command %s", wire.Command(f.Command)))
	}
}

// parseGrant decodes an access grant payload: "-R|<user>" or
// "-W|<user>", or a bare username which defaults to write access.
func parseGrant(data []byte) (target string, perm Perm, err error) {
	payload := strings.TrimSpace(string(data))
	if payload == "" {
		return "", 0, wire.Errorf(wire.StatusInvalidParameters, "empty grant payload")
	}
	if !strings.Contains(payload, "|") {
		return payload, PermWrite, nil
	}

	permStr, user, err := wire.ParsePair([]byte(payload))
	if err != nil {
		return "", 0, wire.Errorf(wire.StatusInvalidParameters, "%v", err)
	}
	perm, err = ParsePerm(permStr)
	if err != nil {
		return "", 0, err
	}
	return user, perm, nil
}

func dataResponse(data []byte, err error) *wire.Frame {
	if err != nil {
		return errorResponse(err)
	}
	return wire.NewResponse(wire.StatusOK, data)
}

func okResponse(format string, args ...any) *wire.Frame {
	return wire.NewResponse(wire.StatusOK, fmt.Appendf(nil, format, args...))
}

// errorResponse renders err into a response frame, preserving its
// protocol status.
func errorResponse(err error) *wire.Frame {
	return wire.NewResponse(wire.StatusOf(err), []byte(err.Error()))
}
