package client

import (
	"context"
	"strings"

	"github.com/scribefs/scribefs/pkg/wire"
)

// CreateFolder makes a folder on the node the name node picks.
func (c *Client) CreateFolder(ctx context.Context, folder string) error {
	_, err := c.forward(ctx, wire.CmdCreateFolder, folder, nil)
	return err
}

// ViewFolder lists a folder's entries. Folders are node-local, so the
// name node decides which node answers.
func (c *Client) ViewFolder(ctx context.Context, folder string) ([]string, error) {
	data, err := c.forward(ctx, wire.CmdViewFolder, folder, nil)
	if err != nil {
		return nil, err
	}
	if string(data) == "folder is empty" {
		return nil, nil
	}
	return strings.Split(string(data), "\n"), nil
}

// Move relocates a file into a folder on its home node.
func (c *Client) Move(ctx context.Context, name, folder string) error {
	pair := wire.FormatPair(name, folder)
	addr, err := c.resolve(ctx, wire.CmdMove, name, pair)
	if err != nil {
		return err
	}
	_, err = c.call(ctx, addr, wire.NewCommand(wire.CmdMove, c.identity, name, pair))
	return err
}
