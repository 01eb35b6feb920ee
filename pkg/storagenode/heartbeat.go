package storagenode

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/scribefs/scribefs/internal/logger"
	"github.com/scribefs/scribefs/pkg/config"
	"github.com/scribefs/scribefs/pkg/wire"
)

const rpcTimeout = 5 * time.Second

// Heartbeat maintains the node's registration with the name node: one
// long-lived connection carrying an initial registration frame and then
// periodic liveness reports. A broken connection, or an ack telling the
// node it is unknown, tears the session down and re-registers after a
// backoff.
type Heartbeat struct {
	nodeID        string
	nameNodeAddr  string
	advertiseHost string
	controlPort   int
	clientPort    int
	interval      time.Duration
	backoff       time.Duration

	dialer net.Dialer
}

func NewHeartbeat(cfg config.StorageNodeConfig) *Heartbeat {
	h := &Heartbeat{
		nodeID:        cfg.ID,
		nameNodeAddr:  cfg.NameNodeAddr,
		advertiseHost: cfg.AdvertiseHost,
		controlPort:   cfg.ControlPort,
		clientPort:    cfg.ClientPort,
		interval:      cfg.HeartbeatInterval,
		backoff:       cfg.ReconnectBackoff,
	}
	if h.interval <= 0 {
		h.interval = 30 * time.Second
	}
	if h.backoff <= 0 {
		h.backoff = 5 * time.Second
	}
	return h
}

// Run keeps the registration session alive until ctx is cancelled.
func (h *Heartbeat) Run(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		err := h.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		logger.Warn("name node session lost",
			logger.Addr(h.nameNodeAddr),
			logger.Attempt(attempt),
			logger.Err(err),
		)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(h.backoff):
		}
	}
}

func (h *Heartbeat) session(ctx context.Context) error {
	conn, err := h.dialer.DialContext(ctx, "tcp", h.nameNodeAddr)
	if err != nil {
		return fmt.Errorf("connecting to name node: %w", err)
	}
	defer conn.Close()

	host := h.advertiseHost
	if host == "" {
		host, _, _ = net.SplitHostPort(conn.LocalAddr().String())
	}

	payload := fmt.Sprintf("%s|%s|%d|%d", h.nodeID, host, h.controlPort, h.clientPort)
	resp, err := h.exchange(conn, &wire.Frame{
		Kind:     int32(wire.KindRegisterSS),
		Identity: h.nodeID,
		Data:     []byte(payload),
	})
	if err != nil {
		return fmt.Errorf("registering: %w", err)
	}
	if wire.Status(resp.Status) != wire.StatusOK {
		return fmt.Errorf("registration refused: %s", resp.Data)
	}
	logger.Info("registered with name node",
		logger.NodeID(h.nodeID),
		logger.Addr(h.nameNodeAddr),
		"advertise_host", host,
	)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			ack, err := h.exchange(conn, &wire.Frame{
				Kind:     int32(wire.KindHeartbeat),
				Identity: h.nodeID,
			})
			if err != nil {
				return fmt.Errorf("heartbeat: %w", err)
			}
			if wire.Status(ack.Status) != wire.StatusOK {
				// The name node restarted and lost us; registering
				// again on a fresh session brings us back.
				return fmt.Errorf("heartbeat rejected: %s", ack.Data)
			}
		}
	}
}

func (h *Heartbeat) exchange(conn net.Conn, f *wire.Frame) (*wire.Frame, error) {
	if err := conn.SetDeadline(time.Now().Add(rpcTimeout)); err != nil {
		return nil, err
	}
	if err := wire.WriteFrame(conn, f); err != nil {
		return nil, err
	}
	return wire.ReadFrame(conn)
}

// nameNodeVerifier asks the name node whether a caller holds the
// sentence lock it claims. Any failure to get a positive answer,
// including not reaching the name node at all, refuses the commit.
type nameNodeVerifier struct {
	addr   string
	dialer net.Dialer
}

// NewNameNodeVerifier builds the LockVerifier used before commits.
func NewNameNodeVerifier(addr string) LockVerifier {
	return &nameNodeVerifier{addr: addr}
}

func (v *nameNodeVerifier) Verify(ctx context.Context, identity, filename string, sentenceIndex int) error {
	conn, err := v.dialer.DialContext(ctx, "tcp", v.addr)
	if err != nil {
		return wire.Errorf(wire.StatusInternal, "lock verification unavailable: %v", err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(rpcTimeout)); err != nil {
		return wire.Errorf(wire.StatusInternal, "lock verification unavailable: %v", err)
	}
	req := &wire.Frame{
		Kind:     int32(wire.KindSSCommand),
		Command:  int32(wire.CmdLockAcquire),
		Identity: identity,
		Filename: filename,
		Data:     []byte(strconv.Itoa(sentenceIndex)),
	}
	if err := wire.WriteFrame(conn, req); err != nil {
		return wire.Errorf(wire.StatusInternal, "lock verification unavailable: %v", err)
	}
	resp, err := wire.ReadFrame(conn)
	if err != nil {
		return wire.Errorf(wire.StatusInternal, "lock verification unavailable: %v", err)
	}
	if wire.Status(resp.Status) != wire.StatusOK {
		return wire.Errorf(wire.Status(resp.Status), "%s", resp.Data)
	}
	return nil
}
