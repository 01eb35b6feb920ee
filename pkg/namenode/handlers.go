package namenode

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/scribefs/scribefs/internal/logger"
	"github.com/scribefs/scribefs/pkg/wire"
)

// controlTimeout bounds name node to storage node control exchanges.
const controlTimeout = 5 * time.Second

// Node is the name node request handler. It owns no sockets itself:
// pkg/server drives it with one frame at a time, and all state lives
// in the injected registry, lock manager, and request queue.
type Node struct {
	registry *Registry
	locks    *LockManager
	requests *RequestQueue

	// dial opens control sessions to storage nodes. Swappable in tests.
	dial func(ctx context.Context, addr string) (net.Conn, error)
}

// NewNode creates a handler over the given state.
func NewNode(registry *Registry, locks *LockManager, requests *RequestQueue) *Node {
	dialer := &net.Dialer{Timeout: controlTimeout}
	return &Node{
		registry: registry,
		locks:    locks,
		requests: requests,
		dial: func(ctx context.Context, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, "tcp", addr)
		},
	}
}

// Handle dispatches one request frame.
func (n *Node) Handle(ctx context.Context, remote net.Addr, f *wire.Frame) *wire.Frame {
	switch wire.Kind(f.Kind) {
	case wire.KindRegisterSS:
		return n.handleRegisterNode(remote, f)
	case wire.KindRegisterUser:
		return n.handleRegisterUser(remote, f)
	case wire.KindHeartbeat:
		return n.handleHeartbeat(f)
	case wire.KindSSCommand:
		return n.handleControl(f)
	case wire.KindCommand:
		return n.handleCommand(ctx, f)
	default:
		return errorResponse(wire.Errorf(wire.StatusInvalidCommand, "unexpected frame kind %s", wire.Kind(f.Kind)))
	}
}

func (n *Node) handleCommand(ctx context.Context, f *wire.Frame) *wire.Frame {
	switch wire.Command(f.Command) {
	case wire.CmdView:
		return n.handleView()
	case wire.CmdList:
		return n.handleList()
	case wire.CmdCreate:
		return n.handleCreate(f)
	case wire.CmdDelete:
		return n.handleDelete(f)
	case wire.CmdExec:
		// Running user content on the coordinator is a remote code
		// execution surface. The command stays on the wire so old
		// clients get a clean error instead of invalid-command.
		return errorResponse(wire.Errorf(wire.StatusExecFailed, "exec is disabled on this server"))
	case wire.CmdLockAcquire:
		return n.handleLockAcquire(f)
	case wire.CmdLockRelease:
		return n.handleLockRelease(f)
	case wire.CmdRequestAccess:
		return n.handleRequestAccess(f)
	case wire.CmdViewRequests:
		return n.handleViewRequests(f)
	case wire.CmdApproveRequest:
		return n.handleApproveRequest(ctx, f)
	case wire.CmdDenyRequest:
		return n.handleDenyRequest(f)
	case wire.CmdRead, wire.CmdWrite, wire.CmdWriteCommit, wire.CmdInfo, wire.CmdFileInfo,
		wire.CmdStream, wire.CmdUndo, wire.CmdAddAccess, wire.CmdRemAccess, wire.CmdMove,
		wire.CmdCheckpoint, wire.CmdViewCheckpoint, wire.CmdRevert, wire.CmdListCheckpoints:
		return n.handleRedirect(f)
	case wire.CmdCopy:
		return n.handleCopyRedirect(f)
	case wire.CmdCreateFolder, wire.CmdViewFolder:
		return n.handleFolderRedirect(f)
	default:
		return errorResponse(wire.Errorf(wire.StatusInvalidCommand, "command not implemented"))
	}
}

// handleRegisterNode parses "id|host|control-port|client-port". An
// empty or wildcard host falls back to the connection's source address.
func (n *Node) handleRegisterNode(remote net.Addr, f *wire.Frame) *wire.Frame {
	parts := strings.Split(string(f.Data), "|")
	if len(parts) != 4 || parts[0] == "" {
		return errorResponse(wire.Errorf(wire.StatusInvalidParameters, "malformed registration payload"))
	}
	controlPort, err := strconv.Atoi(parts[2])
	if err != nil {
		return errorResponse(wire.Errorf(wire.StatusInvalidParameters, "malformed control port %q", parts[2]))
	}
	clientPort, err := strconv.Atoi(parts[3])
	if err != nil {
		return errorResponse(wire.Errorf(wire.StatusInvalidParameters, "malformed client port %q", parts[3]))
	}

	id := parts[0]
	host := parts[1]
	if host == "" || host == "0.0.0.0" {
		host = remoteHost(remote)
	}

	peer := n.registry.RegisterNode(id, host, controlPort, clientPort)
	logger.Info("storage node registered",
		logger.NodeID(id),
		logger.Addr(fmt.Sprintf("%s:%d", host, clientPort)),
		"replica", peerOrNone(peer),
	)
	return okResponse("storage node %s registered", id)
}

func (n *Node) handleRegisterUser(remote net.Addr, f *wire.Frame) *wire.Frame {
	if f.Identity == "" {
		return errorResponse(wire.Errorf(wire.StatusInvalidParameters, "missing identity"))
	}

	host := remoteHost(remote)
	port := 0
	if len(f.Data) > 0 {
		if h, p, err := wire.ParseAddr(f.Data); err == nil {
			host, port = h, p
		}
	}

	n.registry.RegisterUser(f.Identity, host, port)
	logger.Info("user registered", logger.Identity(f.Identity), logger.Addr(host))
	return okResponse("user %s registered", f.Identity)
}

func (n *Node) handleHeartbeat(f *wire.Frame) *wire.Frame {
	if !n.registry.Heartbeat(f.Identity) {
		logger.Warn("heartbeat from unregistered node", logger.NodeID(f.Identity))
		return &wire.Frame{
			Kind:   int32(wire.KindAck),
			Status: int32(wire.StatusUserNotFound),
			Data:   []byte("unknown storage node, re-register"),
		}
	}
	return &wire.Frame{Kind: int32(wire.KindAck), Status: int32(wire.StatusOK)}
}

// handleControl serves storage-node-originated control requests. The
// only one today is lock verification before a write commit.
func (n *Node) handleControl(f *wire.Frame) *wire.Frame {
	if wire.Command(f.Command) != wire.CmdLockAcquire {
		return errorResponse(wire.Errorf(wire.StatusInvalidCommand, "unexpected control command %s", wire.Command(f.Command)))
	}
	index, err := parseIndex(f.Data)
	if err != nil {
		return errorResponse(err)
	}
	if err := n.locks.VerifyHolder(f.Filename, index, f.Identity); err != nil {
		return errorResponse(err)
	}
	return okResponse("lock held")
}

func (n *Node) handleView() *wire.Frame {
	var b strings.Builder
	for _, rec := range n.registry.Files() {
		row := fmt.Sprintf("%s|%s|%d|%d|", rec.Filename, rec.Owner, rec.Words, rec.Chars)
		if b.Len()+len(row) > wire.MaxData {
			break
		}
		b.WriteString(row)
	}
	return wire.NewResponse(wire.StatusOK, []byte(b.String()))
}

func (n *Node) handleList() *wire.Frame {
	var b strings.Builder
	for _, user := range n.registry.Users() {
		row := user.Name + "|"
		if b.Len()+len(row) > wire.MaxData {
			break
		}
		b.WriteString(row)
	}
	return wire.NewResponse(wire.StatusOK, []byte(b.String()))
}

func (n *Node) handleCreate(f *wire.Frame) *wire.Frame {
	node, err := n.registry.CreateFile(f.Filename, f.Identity)
	if err != nil {
		return errorResponse(err)
	}
	logger.Info("file created",
		logger.Filename(f.Filename),
		logger.Identity(f.Identity),
		logger.NodeID(node.ID),
		"files", node.FileCount,
	)
	return wire.NewResponse(wire.StatusOK, wire.FormatAddr(node.Host, node.ClientPort))
}

func (n *Node) handleDelete(f *wire.Frame) *wire.Frame {
	if err := n.registry.DeleteFile(f.Filename, f.Identity); err != nil {
		return errorResponse(err)
	}
	logger.Info("file deleted", logger.Filename(f.Filename), logger.Identity(f.Identity))
	return okResponse("file %s deleted", f.Filename)
}

// handleRedirect resolves a content operation to its home node address.
func (n *Node) handleRedirect(f *wire.Frame) *wire.Frame {
	_, node, err := n.registry.ResolveHome(f.Filename)
	if err != nil {
		return errorResponse(err)
	}
	logger.Debug("redirecting",
		logger.Command(wire.Command(f.Command).String()),
		logger.Filename(f.Filename),
		logger.Identity(f.Identity),
		logger.NodeID(node.ID),
	)
	return wire.NewResponse(wire.StatusOK, wire.FormatAddr(node.Host, node.ClientPort))
}

// handleCopyRedirect resolves the source of a "src|dst" copy payload.
// The destination is created on the same node; its namespace entry is
// the storage node's business, not ours.
func (n *Node) handleCopyRedirect(f *wire.Frame) *wire.Frame {
	src := f.Filename
	if src == "" {
		first, _, err := wire.ParsePair(f.Data)
		if err != nil {
			return errorResponse(wire.Errorf(wire.StatusInvalidParameters, "malformed copy payload"))
		}
		src = first
	}
	_, node, err := n.registry.ResolveHome(src)
	if err != nil {
		return errorResponse(err)
	}
	return wire.NewResponse(wire.StatusOK, wire.FormatAddr(node.Host, node.ClientPort))
}

// handleFolderRedirect points folder commands at the least-loaded
// connected node. Folders are node-local, so clients keep talking to
// whichever node the name node hands out here.
func (n *Node) handleFolderRedirect(f *wire.Frame) *wire.Frame {
	node, err := n.registry.PlacementNode()
	if err != nil {
		return errorResponse(err)
	}
	return wire.NewResponse(wire.StatusOK, wire.FormatAddr(node.Host, node.ClientPort))
}

func (n *Node) handleLockAcquire(f *wire.Frame) *wire.Frame {
	index, err := parseIndex(f.Data)
	if err != nil {
		return errorResponse(err)
	}
	if _, ok := n.registry.LookupFile(f.Filename); !ok {
		return errorResponse(wire.Errorf(wire.StatusFileNotFound, "file %s not found", f.Filename))
	}

	if err := n.locks.Acquire(f.Filename, index, f.Identity); err != nil {
		logger.Info("lock denied",
			logger.Filename(f.Filename),
			logger.SentenceIndex(index),
			logger.Identity(f.Identity),
		)
		return errorResponse(err)
	}
	logger.Info("lock acquired",
		logger.Filename(f.Filename),
		logger.SentenceIndex(index),
		logger.Identity(f.Identity),
	)

	// The lock stays held even when the home node is down: the client
	// owns it until release or lease expiry.
	_, node, err := n.registry.ResolveHome(f.Filename)
	if err != nil {
		return errorResponse(err)
	}
	return wire.NewResponse(wire.StatusOK, wire.FormatAddr(node.Host, node.ClientPort))
}

func (n *Node) handleLockRelease(f *wire.Frame) *wire.Frame {
	index, err := parseIndex(f.Data)
	if err != nil {
		return errorResponse(err)
	}
	if err := n.locks.Release(f.Filename, index, f.Identity); err != nil {
		return errorResponse(err)
	}
	logger.Info("lock released",
		logger.Filename(f.Filename),
		logger.SentenceIndex(index),
		logger.Identity(f.Identity),
	)
	return okResponse("lock released")
}

func (n *Node) handleRequestAccess(f *wire.Frame) *wire.Frame {
	rec, ok := n.registry.LookupFile(f.Filename)
	if !ok {
		return errorResponse(wire.Errorf(wire.StatusFileNotFound, "file %s not found", f.Filename))
	}
	if rec.Owner == f.Identity {
		return errorResponse(wire.Errorf(wire.StatusInvalidParameters, "you own this file"))
	}

	n.requests.Submit(f.Filename, f.Identity, rec.Owner)
	logger.Info("access requested",
		logger.Filename(f.Filename),
		logger.Identity(f.Identity),
		"owner", rec.Owner,
	)
	return okResponse("access request sent to %s", rec.Owner)
}

func (n *Node) handleViewRequests(f *wire.Frame) *wire.Frame {
	pending := n.requests.PendingFor(f.Identity)
	if len(pending) == 0 {
		return wire.NewResponse(wire.StatusOK, []byte("no pending access requests"))
	}

	lines := make([]string, 0, len(pending))
	for _, req := range pending {
		lines = append(lines, fmt.Sprintf("%s requested access to %s", req.Requester, req.Filename))
	}
	body := strings.Join(lines, "\n")
	if len(body) > wire.MaxData {
		body = body[:wire.MaxData]
	}
	return wire.NewResponse(wire.StatusOK, []byte(body))
}

func (n *Node) handleApproveRequest(ctx context.Context, f *wire.Frame) *wire.Frame {
	filename, requester, err := wire.ParsePair(f.Data)
	if err != nil {
		return errorResponse(wire.Errorf(wire.StatusInvalidParameters, "invalid parameters"))
	}

	req, ok := n.requests.Get(filename, requester)
	if !ok || !req.Pending {
		return errorResponse(wire.Errorf(wire.StatusFileNotFound, "request not found"))
	}

	rec, node, err := n.registry.ResolveHome(filename)
	if err != nil {
		return errorResponse(err)
	}
	if rec.Owner != f.Identity {
		return errorResponse(wire.Errorf(wire.StatusUnauthorized, "not file owner"))
	}

	// The storage node owns the ACL: the request flips to resolved only
	// once the grant is acknowledged, so a failed push can be retried.
	if err := n.pushAccessGrant(ctx, node, filename, f.Identity, requester); err != nil {
		logger.Error("access grant push failed",
			logger.Filename(filename),
			logger.NodeID(node.ID),
			logger.Err(err),
		)
		return errorResponse(err)
	}

	n.requests.Resolve(filename, requester)
	logger.Info("access approved",
		logger.Filename(filename),
		logger.Identity(f.Identity),
		"requester", requester,
	)
	return okResponse("access granted to %s", requester)
}

func (n *Node) handleDenyRequest(f *wire.Frame) *wire.Frame {
	filename, requester, err := wire.ParsePair(f.Data)
	if err != nil {
		return errorResponse(wire.Errorf(wire.StatusInvalidParameters, "invalid parameters"))
	}

	req, ok := n.requests.Get(filename, requester)
	if !ok || !req.Pending {
		return errorResponse(wire.Errorf(wire.StatusFileNotFound, "request not found"))
	}

	rec, ok := n.registry.LookupFile(filename)
	if !ok {
		return errorResponse(wire.Errorf(wire.StatusFileNotFound, "file %s not found", filename))
	}
	if rec.Owner != f.Identity {
		return errorResponse(wire.Errorf(wire.StatusUnauthorized, "not file owner"))
	}

	n.requests.Resolve(filename, requester)
	logger.Info("access denied",
		logger.Filename(filename),
		logger.Identity(f.Identity),
		"requester", requester,
	)
	return okResponse("access denied to %s", requester)
}

// pushAccessGrant opens a control session to the node and adds a read
// ACL entry for requester. Duplicate adds through this path are
// idempotent on the node side.
func (n *Node) pushAccessGrant(ctx context.Context, node StorageNodeRecord, filename, owner, requester string) error {
	addr := fmt.Sprintf("%s:%d", node.Host, node.ControlPort)
	conn, err := n.dial(ctx, addr)
	if err != nil {
		return wire.Errorf(wire.StatusStorageServerDown, "cannot connect to storage server")
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(controlTimeout))

	grant := &wire.Frame{
		Kind:     int32(wire.KindSSCommand),
		Command:  int32(wire.CmdAddAccess),
		Identity: owner,
		Filename: filename,
		Data:     []byte("-R|" + requester),
	}
	if err := wire.WriteFrame(conn, grant); err != nil {
		return wire.Errorf(wire.StatusInternal, "failed to grant access")
	}

	resp, err := wire.ReadFrame(conn)
	if err != nil {
		return wire.Errorf(wire.StatusInternal, "failed to grant access")
	}
	if status := wire.Status(resp.Status); status != wire.StatusOK {
		return wire.Errorf(status, "storage node refused grant: %s", resp.Data)
	}
	return nil
}

// parseIndex reads a sentence index payload.
func parseIndex(data []byte) (int, error) {
	index, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || index < 0 {
		return 0, wire.Errorf(wire.StatusInvalidParameters, "malformed sentence index %q", data)
	}
	return index, nil
}

func okResponse(format string, args ...any) *wire.Frame {
	return wire.NewResponse(wire.StatusOK, fmt.Appendf(nil, format, args...))
}

// errorResponse renders err into a response frame, preserving its
// protocol status.
func errorResponse(err error) *wire.Frame {
	return wire.NewResponse(wire.StatusOf(err), []byte(err.Error()))
}

func remoteHost(remote net.Addr) string {
	if remote == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(remote.String())
	if err != nil {
		return remote.String()
	}
	return host
}

func peerOrNone(peer string) string {
	if peer == "" {
		return "none"
	}
	return peer
}
