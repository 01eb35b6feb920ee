package client

import (
	"context"
	"strings"

	"github.com/scribefs/scribefs/pkg/wire"
)

// RequestAccess asks the file's owner for access. The request sits in
// the name node queue until the owner approves or denies it.
func (c *Client) RequestAccess(ctx context.Context, name string) error {
	_, err := c.nameNodeCall(ctx, wire.NewCommand(wire.CmdRequestAccess, c.identity, name, nil))
	return err
}

// ViewRequests lists pending access requests for files the client owns.
func (c *Client) ViewRequests(ctx context.Context) ([]string, error) {
	data, err := c.nameNodeCall(ctx, wire.NewCommand(wire.CmdViewRequests, c.identity, "", nil))
	if err != nil {
		return nil, err
	}
	if string(data) == "no pending access requests" {
		return nil, nil
	}
	return strings.Split(string(data), "\n"), nil
}

// ApproveRequest grants a pending request. The name node pushes a read
// grant to the file's home node before the request resolves.
func (c *Client) ApproveRequest(ctx context.Context, name, requester string) error {
	_, err := c.nameNodeCall(ctx, wire.NewCommand(wire.CmdApproveRequest, c.identity, "", wire.FormatPair(name, requester)))
	return err
}

// DenyRequest refuses a pending request. The requester may ask again.
func (c *Client) DenyRequest(ctx context.Context, name, requester string) error {
	_, err := c.nameNodeCall(ctx, wire.NewCommand(wire.CmdDenyRequest, c.identity, "", wire.FormatPair(name, requester)))
	return err
}
