// Package client is the Go library for talking to a ScribeFS cluster.
//
// Every operation starts at the name node. Namespace operations are
// answered there directly; content operations come back as a
// redirection to the file's home storage node, which the client then
// dials for the actual work. Word-level writes take the three-hop
// path: acquire the sentence lock at the name node, commit the edit
// script at the storage node, release the lock.
//
// Connections are per-request. Dials retry a few times before giving
// up, and every exchange runs under an I/O deadline.
package client

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/scribefs/scribefs/internal/logger"
	"github.com/scribefs/scribefs/pkg/wire"
)

const (
	connectAttempts = 3
	connectBackoff  = 2 * time.Second
	rpcTimeout      = 5 * time.Second
)

// Client issues operations against a cluster on behalf of one identity.
// Safe for concurrent use.
type Client struct {
	identity string
	nameNode string
	dialer   net.Dialer
}

// New builds a client for identity against the name node at addr.
func New(identity, nameNodeAddr string) *Client {
	return &Client{identity: identity, nameNode: nameNodeAddr}
}

// Identity returns the identity the client operates as.
func (c *Client) Identity() string { return c.identity }

// FileEntry is one row of the cluster-wide file listing.
type FileEntry struct {
	Name  string `json:"name" yaml:"name"`
	Owner string `json:"owner" yaml:"owner"`
	Words int    `json:"words" yaml:"words"`
	Chars int    `json:"chars" yaml:"chars"`
}

func (c *Client) dial(ctx context.Context, addr string) (net.Conn, error) {
	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		conn, err := c.dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		logger.Debug("connect failed",
			logger.Addr(addr),
			logger.Attempt(attempt),
			logger.Err(err),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(connectBackoff):
		}
	}
	return nil, fmt.Errorf("connecting to %s: %w", addr, lastErr)
}

// roundTrip sends one frame to addr and reads the response.
func (c *Client) roundTrip(ctx context.Context, addr string, f *wire.Frame) (*wire.Frame, error) {
	conn, err := c.dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	deadline := time.Now().Add(rpcTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, err
	}

	if err := wire.WriteFrame(conn, f); err != nil {
		return nil, fmt.Errorf("sending %s: %w", wire.Command(f.Command), err)
	}
	resp, err := wire.ReadFrame(conn)
	if err != nil {
		return nil, fmt.Errorf("awaiting %s response: %w", wire.Command(f.Command), err)
	}
	return resp, nil
}

// call round-trips a frame and folds a non-OK status into an error.
func (c *Client) call(ctx context.Context, addr string, f *wire.Frame) ([]byte, error) {
	resp, err := c.roundTrip(ctx, addr, f)
	if err != nil {
		return nil, err
	}
	if status := wire.Status(resp.Status); status != wire.StatusOK {
		return nil, wire.Errorf(status, "%s", resp.Data)
	}
	return resp.Data, nil
}

func (c *Client) nameNodeCall(ctx context.Context, f *wire.Frame) ([]byte, error) {
	return c.call(ctx, c.nameNode, f)
}

// resolve asks the name node where a content command should go and
// returns the storage node address.
func (c *Client) resolve(ctx context.Context, cmd wire.Command, filename string, data []byte) (string, error) {
	payload, err := c.nameNodeCall(ctx, wire.NewCommand(cmd, c.identity, filename, data))
	if err != nil {
		return "", err
	}
	host, port, err := wire.ParseAddr(payload)
	if err != nil {
		return "", fmt.Errorf("bad redirection from name node: %w", err)
	}
	return joinAddr(host, port), nil
}

// forward resolves a content command and replays it at the home node.
func (c *Client) forward(ctx context.Context, cmd wire.Command, filename string, data []byte) ([]byte, error) {
	addr, err := c.resolve(ctx, cmd, filename, data)
	if err != nil {
		return nil, err
	}
	return c.call(ctx, addr, wire.NewCommand(cmd, c.identity, filename, data))
}

// Register introduces the client's identity to the name node.
// Registration upserts, so reconnecting under the same name just
// refreshes the record.
func (c *Client) Register(ctx context.Context) error {
	_, err := c.call(ctx, c.nameNode, &wire.Frame{
		Kind:     int32(wire.KindRegisterUser),
		Identity: c.identity,
	})
	return err
}

// View lists every file in the cluster.
func (c *Client) View(ctx context.Context) ([]FileEntry, error) {
	data, err := c.nameNodeCall(ctx, wire.NewCommand(wire.CmdView, c.identity, "", nil))
	if err != nil {
		return nil, err
	}
	return parseFileRows(data)
}

// Users lists every registered identity.
func (c *Client) Users(ctx context.Context) ([]string, error) {
	data, err := c.nameNodeCall(ctx, wire.NewCommand(wire.CmdList, c.identity, "", nil))
	if err != nil {
		return nil, err
	}
	return splitRows(data), nil
}

// parseFileRows decodes the view payload: flattened groups of
// "name|owner|words|chars|".
func parseFileRows(data []byte) ([]FileEntry, error) {
	fields := splitRows(data)
	if len(fields)%4 != 0 {
		return nil, fmt.Errorf("malformed file listing %q", data)
	}

	entries := make([]FileEntry, 0, len(fields)/4)
	for i := 0; i+3 < len(fields); i += 4 {
		words, err := strconv.Atoi(fields[i+2])
		if err != nil {
			return nil, fmt.Errorf("malformed file listing %q", data)
		}
		chars, err := strconv.Atoi(fields[i+3])
		if err != nil {
			return nil, fmt.Errorf("malformed file listing %q", data)
		}
		entries = append(entries, FileEntry{
			Name:  fields[i],
			Owner: fields[i+1],
			Words: words,
			Chars: chars,
		})
	}
	return entries, nil
}

// splitRows breaks a pipe-delimited payload, dropping the trailing
// separator's empty field.
func splitRows(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	var rows []string
	start := 0
	for i, b := range data {
		if b == '|' {
			rows = append(rows, string(data[start:i]))
			start = i + 1
		}
	}
	if start < len(data) {
		rows = append(rows, string(data[start:]))
	}
	return rows
}
