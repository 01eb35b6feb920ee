package storagenode

import (
	"errors"
	"strings"

	"github.com/scribefs/scribefs/internal/logger"
	"github.com/scribefs/scribefs/pkg/storagenode/store"
	"github.com/scribefs/scribefs/pkg/wire"
)

// CreateFolder makes an empty folder in the content namespace.
func (s *Store) CreateFolder(identity, folder string) error {
	if err := validateName(folder); err != nil {
		return err
	}

	exists, err := s.backend.DirExists(contentKey(folder))
	if err != nil {
		return err
	}
	if exists {
		return wire.Errorf(wire.StatusFileExists, "folder %s already exists", folder)
	}
	if err := s.backend.MkDir(contentKey(folder)); err != nil {
		return err
	}

	logger.Info("folder created", logger.Filename(folder), logger.Identity(identity))
	return nil
}

// Move relocates a file's blobs into a folder. Owner only. The file
// keeps its bare name in the coordinator's registry, so callers address
// it at its old name until the move is reflected there.
func (s *Store) Move(identity, name, folder string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := validateName(folder); err != nil {
		return err
	}

	s.locks.Lock(name)
	defer s.locks.Unlock(name)

	meta, err := s.loadMeta(name)
	if err != nil {
		return err
	}
	if identity != meta.Owner {
		return wire.Errorf(wire.StatusUnauthorized, "only owner can move file")
	}

	exists, err := s.backend.DirExists(contentKey(folder))
	if err != nil {
		return err
	}
	if !exists {
		return wire.Errorf(wire.StatusFileNotFound, "folder %s not found", folder)
	}

	moved := folder + "/" + name
	if err := s.backend.Rename(contentKey(name), contentKey(moved)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Metadata exists but the body blob is gone; move what is
			// there and keep going.
			logger.Warn("file body missing during move", logger.Filename(name))
		} else {
			return err
		}
	}
	if err := s.backend.Rename(metaKey(name), metaKey(moved)); err != nil {
		return err
	}
	if err := s.backend.Rename(undoKey(name), undoKey(moved)); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	logger.Info("file moved", logger.Filename(name), "folder", folder, logger.Identity(identity))
	return nil
}

// ViewFolder lists the folder's entries, one per line.
func (s *Store) ViewFolder(identity, folder string) ([]byte, error) {
	if err := validateName(folder); err != nil {
		return nil, err
	}

	entries, err := s.backend.List(contentKey(folder))
	if errors.Is(err, store.ErrNotFound) {
		return nil, wire.Errorf(wire.StatusFileNotFound, "folder %s not found", folder)
	}
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return []byte("folder is empty"), nil
	}
	return []byte(strings.Join(entries, "\n")), nil
}
