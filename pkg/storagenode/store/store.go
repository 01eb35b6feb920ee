// Package store defines the blob backend a storage node keeps its
// artifacts in: file bodies, metadata records, undo slots, and
// checkpoints, all keyed by slash-separated relative names.
//
// Two implementations exist: one file per blob on the local filesystem,
// and an embedded BadgerDB store for nodes that prefer a single on-disk
// database. Which one a node runs is configuration.
package store

import "errors"

// ErrNotFound is returned when a key or directory does not exist.
var ErrNotFound = errors.New("store: not found")

// Backend is an opaque blob store. Implementations must be safe for
// concurrent use; callers serialise per-file access above this layer.
type Backend interface {
	// Load returns the blob stored under key, or ErrNotFound.
	Load(key string) ([]byte, error)

	// Save stores data under key, replacing any previous blob. The
	// write is atomic: readers observe the old or new blob, never a
	// partial one.
	Save(key string, data []byte) error

	// Delete removes key. Deleting an absent key is a no-op.
	Delete(key string) error

	// Exists reports whether key holds a blob.
	Exists(key string) (bool, error)

	// Rename moves the blob at oldKey to newKey.
	Rename(oldKey, newKey string) error

	// List returns the immediate child names under dir: blob names and
	// sub-directory names, without the dir prefix. ErrNotFound if dir
	// does not exist.
	List(dir string) ([]string, error)

	// MkDir creates an empty directory.
	MkDir(dir string) error

	// DirExists reports whether dir exists.
	DirExists(dir string) (bool, error)

	// Close releases backend resources.
	Close() error
}
