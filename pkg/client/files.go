package client

import (
	"context"
	"strconv"
	"strings"

	"github.com/scribefs/scribefs/pkg/sentence"
	"github.com/scribefs/scribefs/pkg/wire"
)

// Create makes an empty file. The name node picks the home storage
// node and the client creates the blobs there.
func (c *Client) Create(ctx context.Context, name string) error {
	payload, err := c.nameNodeCall(ctx, wire.NewCommand(wire.CmdCreate, c.identity, name, nil))
	if err != nil {
		return err
	}
	host, port, err := wire.ParseAddr(payload)
	if err != nil {
		return err
	}

	addr := joinAddr(host, port)
	if _, err := c.call(ctx, addr, wire.NewCommand(wire.CmdCreate, c.identity, name, nil)); err != nil {
		// The namespace entry exists but the blobs do not; undo the
		// registration so a retry starts clean.
		_, _ = c.nameNodeCall(ctx, wire.NewCommand(wire.CmdDelete, c.identity, name, nil))
		return err
	}
	return nil
}

// Read fetches the file body from its home node.
func (c *Client) Read(ctx context.Context, name string) ([]byte, error) {
	return c.forward(ctx, wire.CmdRead, name, nil)
}

// Write commits a batch of word insertions into one sentence: the
// sentence lock is acquired at the name node, the edit script committed
// at the home node, and the lock released whatever the commit said.
func (c *Client) Write(ctx context.Context, name string, sentenceIndex int, edits []sentence.Edit) error {
	if sentenceIndex < 0 {
		return wire.Errorf(wire.StatusInvalidParameters, "negative sentence index")
	}
	for _, e := range edits {
		if err := sentence.ValidateWord(e.Word); err != nil {
			return err
		}
	}

	indexPayload := []byte(strconv.Itoa(sentenceIndex))
	payload, err := c.nameNodeCall(ctx, wire.NewCommand(wire.CmdLockAcquire, c.identity, name, indexPayload))
	if err != nil {
		return err
	}
	host, port, err := wire.ParseAddr(payload)
	if err != nil {
		return err
	}

	script := sentence.FormatScript(sentenceIndex, edits)
	_, commitErr := c.call(ctx, joinAddr(host, port), wire.NewCommand(wire.CmdWriteCommit, c.identity, name, script))

	_, releaseErr := c.nameNodeCall(ctx, wire.NewCommand(wire.CmdLockRelease, c.identity, name, indexPayload))
	if commitErr != nil {
		return commitErr
	}
	return releaseErr
}

// Delete removes the file everywhere: blobs at the home node first,
// then the namespace entry.
func (c *Client) Delete(ctx context.Context, name string) error {
	addr, err := c.resolve(ctx, wire.CmdRead, name, nil)
	if err != nil {
		return err
	}
	if _, err := c.call(ctx, addr, wire.NewCommand(wire.CmdDelete, c.identity, name, nil)); err != nil {
		return err
	}
	_, err = c.nameNodeCall(ctx, wire.NewCommand(wire.CmdDelete, c.identity, name, nil))
	return err
}

// Undo swaps the file body with its undo slot.
func (c *Client) Undo(ctx context.Context, name string) error {
	_, err := c.forward(ctx, wire.CmdUndo, name, nil)
	return err
}

// Info returns the short metadata block.
func (c *Client) Info(ctx context.Context, name string) (string, error) {
	data, err := c.forward(ctx, wire.CmdInfo, name, nil)
	return string(data), err
}

// FileInfo returns the extended metadata block.
func (c *Client) FileInfo(ctx context.Context, name string) (string, error) {
	data, err := c.forward(ctx, wire.CmdFileInfo, name, nil)
	return string(data), err
}

// Stream fetches the body word by word and returns the words in order.
func (c *Client) Stream(ctx context.Context, name string) ([]string, error) {
	data, err := c.forward(ctx, wire.CmdStream, name, nil)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	var words []string
	for _, w := range strings.Split(string(data), "|WORD|") {
		if w != "" {
			words = append(words, w)
		}
	}
	return words, nil
}

// AddAccess grants user access to the file. Owner only. A write grant
// implies read.
func (c *Client) AddAccess(ctx context.Context, name, user string, write bool) error {
	perm := "-R"
	if write {
		perm = "-W"
	}
	_, err := c.forward(ctx, wire.CmdAddAccess, name, wire.FormatPair(perm, user))
	return err
}

// RemAccess revokes user's access to the file. Owner only.
func (c *Client) RemAccess(ctx context.Context, name, user string) error {
	_, err := c.forward(ctx, wire.CmdRemAccess, name, []byte(user))
	return err
}

// Copy duplicates src into dst on src's home node. The copy belongs to
// the caller.
func (c *Client) Copy(ctx context.Context, src, dst string) error {
	pair := wire.FormatPair(src, dst)
	addr, err := c.resolve(ctx, wire.CmdCopy, src, pair)
	if err != nil {
		return err
	}
	_, err = c.call(ctx, addr, wire.NewCommand(wire.CmdCopy, c.identity, src, pair))
	return err
}

func joinAddr(host string, port int) string {
	return host + ":" + strconv.Itoa(port)
}
