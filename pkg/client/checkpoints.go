package client

import (
	"context"
	"strings"

	"github.com/scribefs/scribefs/pkg/wire"
)

// Checkpoint snapshots the file's current body under tag.
func (c *Client) Checkpoint(ctx context.Context, name, tag string) error {
	pair := wire.FormatPair(name, tag)
	addr, err := c.resolve(ctx, wire.CmdCheckpoint, name, pair)
	if err != nil {
		return err
	}
	_, err = c.call(ctx, addr, wire.NewCommand(wire.CmdCheckpoint, c.identity, name, pair))
	return err
}

// ViewCheckpoint fetches a snapshot's body without touching the file.
func (c *Client) ViewCheckpoint(ctx context.Context, name, tag string) ([]byte, error) {
	pair := wire.FormatPair(name, tag)
	addr, err := c.resolve(ctx, wire.CmdViewCheckpoint, name, pair)
	if err != nil {
		return nil, err
	}
	return c.call(ctx, addr, wire.NewCommand(wire.CmdViewCheckpoint, c.identity, name, pair))
}

// Revert restores the file body from a snapshot.
func (c *Client) Revert(ctx context.Context, name, tag string) error {
	pair := wire.FormatPair(name, tag)
	addr, err := c.resolve(ctx, wire.CmdRevert, name, pair)
	if err != nil {
		return err
	}
	_, err = c.call(ctx, addr, wire.NewCommand(wire.CmdRevert, c.identity, name, pair))
	return err
}

// ListCheckpoints returns the file's snapshot tags.
func (c *Client) ListCheckpoints(ctx context.Context, name string) ([]string, error) {
	data, err := c.forward(ctx, wire.CmdListCheckpoints, name, nil)
	if err != nil {
		return nil, err
	}
	if string(data) == "no checkpoints found" {
		return nil, nil
	}
	return strings.Split(string(data), "\n"), nil
}
