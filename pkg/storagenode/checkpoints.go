package storagenode

import (
	"errors"
	"fmt"
	"strings"

	"github.com/scribefs/scribefs/internal/logger"
	"github.com/scribefs/scribefs/pkg/sentence"
	"github.com/scribefs/scribefs/pkg/storagenode/store"
	"github.com/scribefs/scribefs/pkg/wire"
)

const maxTagLength = 64

func validateTag(tag string) error {
	switch {
	case tag == "":
		return wire.Errorf(wire.StatusInvalidParameters, "empty checkpoint tag")
	case len(tag) > maxTagLength:
		return wire.Errorf(wire.StatusInvalidParameters, "checkpoint tag too long")
	case strings.ContainsAny(tag, "/\\|"):
		return wire.Errorf(wire.StatusInvalidParameters, "checkpoint tag %q contains reserved characters", tag)
	case strings.Contains(tag, ".."):
		return wire.Errorf(wire.StatusInvalidParameters, "checkpoint tag %q contains path traversal", tag)
	}
	return nil
}

// encodeCheckpoint prefixes the snapshot with its creation time, one
// line of unix seconds, so reverts can report when the snapshot was
// taken without a separate record.
func (s *Store) encodeCheckpoint(body string) []byte {
	return fmt.Appendf(nil, "%d\n%s", s.now().Unix(), body)
}

func decodeCheckpoint(blob []byte) string {
	_, body, ok := strings.Cut(string(blob), "\n")
	if !ok {
		return ""
	}
	return body
}

// Checkpoint snapshots the current body under tag, overwriting any
// previous snapshot with the same tag.
func (s *Store) Checkpoint(identity, name, tag string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := validateTag(tag); err != nil {
		return err
	}

	s.locks.Lock(name)
	defer s.locks.Unlock(name)

	meta, err := s.loadMeta(name)
	if err != nil {
		return err
	}
	if !meta.CanRead(identity) {
		return wire.Errorf(wire.StatusUnauthorized, "no read access to %s", name)
	}

	body, err := s.loadBody(name)
	if err != nil {
		return err
	}
	if err := s.backend.Save(checkpointKey(name, tag), s.encodeCheckpoint(body)); err != nil {
		return err
	}

	logger.Info("checkpoint created", logger.Filename(name), "tag", tag, logger.Identity(identity))
	return nil
}

// ViewCheckpoint returns the snapshot body without touching the file.
func (s *Store) ViewCheckpoint(identity, name, tag string) ([]byte, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateTag(tag); err != nil {
		return nil, err
	}

	s.locks.RLock(name)
	defer s.locks.RUnlock(name)

	meta, err := s.loadMeta(name)
	if err != nil {
		return nil, err
	}
	if !meta.CanRead(identity) {
		return nil, wire.Errorf(wire.StatusUnauthorized, "no read access to %s", name)
	}

	blob, err := s.backend.Load(checkpointKey(name, tag))
	if errors.Is(err, store.ErrNotFound) {
		return nil, wire.Errorf(wire.StatusFileNotFound, "checkpoint %s not found for %s", tag, name)
	}
	if err != nil {
		return nil, err
	}
	return []byte(decodeCheckpoint(blob)), nil
}

// Revert restores the body from a checkpoint. The pre-revert body
// lands in the undo slot, so an accidental revert is one undo away.
func (s *Store) Revert(identity, name, tag string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := validateTag(tag); err != nil {
		return err
	}

	s.locks.Lock(name)
	defer s.locks.Unlock(name)

	meta, err := s.loadMeta(name)
	if err != nil {
		return err
	}
	if !meta.CanWrite(identity) {
		return wire.Errorf(wire.StatusUnauthorized, "no write access to %s", name)
	}

	blob, err := s.backend.Load(checkpointKey(name, tag))
	if errors.Is(err, store.ErrNotFound) {
		return wire.Errorf(wire.StatusFileNotFound, "checkpoint %s not found for %s", tag, name)
	}
	if err != nil {
		return err
	}
	restored := decodeCheckpoint(blob)

	body, err := s.loadBody(name)
	if err != nil {
		return err
	}
	if err := s.backend.Save(undoKey(name), []byte(body)); err != nil {
		return err
	}
	if err := s.backend.Save(contentKey(name), []byte(restored)); err != nil {
		return err
	}

	meta.Modified = s.now()
	meta.Words, meta.Chars = sentence.Stats(restored)
	if err := s.saveMeta(name, meta); err != nil {
		return err
	}

	logger.Info("checkpoint restored", logger.Filename(name), "tag", tag, logger.Identity(identity))
	return nil
}

// ListCheckpoints returns the file's checkpoint tags, one per line.
func (s *Store) ListCheckpoints(identity, name string) ([]byte, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	s.locks.RLock(name)
	defer s.locks.RUnlock(name)

	meta, err := s.loadMeta(name)
	if err != nil {
		return nil, err
	}
	if !meta.CanRead(identity) {
		return nil, wire.Errorf(wire.StatusUnauthorized, "no read access to %s", name)
	}

	tags := s.checkpointTags(name)
	if len(tags) == 0 {
		return []byte("no checkpoints found"), nil
	}
	return []byte(strings.Join(tags, "\n")), nil
}

// checkpointTags lists the snapshots in name's checkpoint directory.
// Callers hold the file lock.
func (s *Store) checkpointTags(name string) []string {
	entries, err := s.backend.List(checkpointDir(name))
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		logger.Warn("listing checkpoints failed", logger.Filename(name), logger.Err(err))
		return nil
	}

	var tags []string
	for _, entry := range entries {
		if !strings.HasSuffix(entry, ".ckpt") {
			continue
		}
		tags = append(tags, strings.TrimSuffix(entry, ".ckpt"))
	}
	return tags
}
