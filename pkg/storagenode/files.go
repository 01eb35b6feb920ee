package storagenode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/scribefs/scribefs/internal/logger"
	"github.com/scribefs/scribefs/pkg/sentence"
	"github.com/scribefs/scribefs/pkg/storagenode/filelock"
	"github.com/scribefs/scribefs/pkg/storagenode/store"
	"github.com/scribefs/scribefs/pkg/wire"
)

const (
	timeFormat     = "2006-01-02 15:04:05"
	maxStreamWords = 100
	drainTimeout   = 2 * time.Second
)

// LockVerifier confirms with the name node that a caller holds the
// sentence lock it claims, before a commit is applied.
type LockVerifier interface {
	Verify(ctx context.Context, identity, filename string, sentenceIndex int) error
}

// Store executes file operations against the blob backend. All access
// is serialised per filename through the lock table: shared for pure
// reads, exclusive for anything that writes a blob.
type Store struct {
	nodeID   string
	backend  store.Backend
	locks    *filelock.Table
	verifier LockVerifier // nil trusts client lock claims

	now func() time.Time
}

// NewStore wires a Store over backend. A nil verifier disables the
// name node lock check before commits.
func NewStore(nodeID string, backend store.Backend, verifier LockVerifier) *Store {
	return &Store{
		nodeID:   nodeID,
		backend:  backend,
		locks:    filelock.NewTable(),
		verifier: verifier,
		now:      time.Now,
	}
}

func contentKey(name string) string { return "files/" + name }
func metaKey(name string) string    { return "metadata/" + name + ".meta" }
func undoKey(name string) string    { return "undo/" + name + ".undo" }

// Checkpoints live in a per-file directory. Filenames may contain any
// byte validateName allows, including '_', so a flat <name>_<tag> key
// would let distinct (file, tag) pairs collide.
func checkpointDir(name string) string { return "checkpoints/" + name }

func checkpointKey(name, tag string) string {
	return checkpointDir(name) + "/" + tag + ".ckpt"
}

// validateName rejects anything that could escape the per-kind blob
// namespaces or corrupt pipe-delimited payloads.
func validateName(name string) error {
	switch {
	case name == "":
		return wire.Errorf(wire.StatusInvalidParameters, "empty filename")
	case len(name) > wire.MaxFilename:
		return wire.Errorf(wire.StatusInvalidParameters, "filename too long")
	case strings.ContainsAny(name, "/\\|"):
		return wire.Errorf(wire.StatusInvalidParameters, "filename %q contains reserved characters", name)
	case name == "." || name == ".." || strings.Contains(name, ".."):
		return wire.Errorf(wire.StatusInvalidParameters, "filename %q contains path traversal", name)
	}
	return nil
}

// loadMeta fetches and decodes a file's metadata record. A missing
// record means the file does not exist on this node.
func (s *Store) loadMeta(name string) (*Metadata, error) {
	data, err := s.backend.Load(metaKey(name))
	if errors.Is(err, store.ErrNotFound) {
		return nil, wire.Errorf(wire.StatusFileNotFound, "file %s not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("loading metadata for %s: %w", name, err)
	}
	meta, err := DecodeMetadata(data)
	if err != nil {
		return nil, fmt.Errorf("decoding metadata for %s: %w", name, err)
	}
	return meta, nil
}

func (s *Store) saveMeta(name string, meta *Metadata) error {
	return s.backend.Save(metaKey(name), meta.Encode())
}

// loadBody returns the file content, treating a missing body blob as
// empty. Existence is tracked by the metadata record.
func (s *Store) loadBody(name string) (string, error) {
	data, err := s.backend.Load(contentKey(name))
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading content for %s: %w", name, err)
	}
	return string(data), nil
}

// Create makes an empty file owned by identity.
func (s *Store) Create(identity, name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	s.locks.Lock(name)
	defer s.locks.Unlock(name)

	if _, err := s.backend.Load(metaKey(name)); err == nil {
		return wire.Errorf(wire.StatusFileExists, "file %s already exists", name)
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	if err := s.backend.Save(contentKey(name), nil); err != nil {
		return err
	}
	if err := s.saveMeta(name, NewMetadata(identity, s.now())); err != nil {
		return err
	}

	logger.Info("file created", logger.Filename(name), logger.Identity(identity))
	return nil
}

// Read returns the file body and records the access in its metadata.
func (s *Store) Read(identity, name string) ([]byte, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	s.locks.Lock(name)
	defer s.locks.Unlock(name)

	meta, err := s.loadMeta(name)
	if err != nil {
		return nil, err
	}
	if !meta.CanRead(identity) {
		return nil, wire.Errorf(wire.StatusUnauthorized, "no read access to %s", name)
	}

	body, err := s.loadBody(name)
	if err != nil {
		return nil, err
	}

	meta.Accessed = s.now()
	meta.AccessedBy = identity
	if err := s.saveMeta(name, meta); err != nil {
		return nil, err
	}
	return []byte(body), nil
}

// WriteCommit applies an edit script to the file. The commit is
// atomic: an invalid sentence or word index aborts it entirely, and
// the pre-commit body lands in the undo slot only when the commit
// succeeds.
func (s *Store) WriteCommit(ctx context.Context, identity, name string, script []byte) ([]byte, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	sentenceIndex, edits, err := sentence.ParseScript(script)
	if err != nil {
		return nil, err
	}

	if s.verifier != nil {
		if err := s.verifier.Verify(ctx, identity, name, sentenceIndex); err != nil {
			return nil, err
		}
	}

	s.locks.Lock(name)
	defer s.locks.Unlock(name)

	meta, err := s.loadMeta(name)
	if err != nil {
		return nil, err
	}
	if !meta.CanWrite(identity) {
		return nil, wire.Errorf(wire.StatusUnauthorized, "no write access to %s", name)
	}

	body, err := s.loadBody(name)
	if err != nil {
		return nil, err
	}

	updated, err := sentence.Apply(body, sentenceIndex, edits)
	if err != nil {
		return nil, err
	}

	if err := s.backend.Save(undoKey(name), []byte(body)); err != nil {
		return nil, err
	}
	if err := s.backend.Save(contentKey(name), []byte(updated)); err != nil {
		return nil, err
	}

	meta.Modified = s.now()
	meta.Words, meta.Chars = sentence.Stats(updated)
	if err := s.saveMeta(name, meta); err != nil {
		return nil, err
	}

	logger.Debug("write committed",
		logger.Filename(name),
		logger.Identity(identity),
		logger.SentenceIndex(sentenceIndex),
		logger.Entries(len(edits)),
	)
	return fmt.Appendf(nil, "committed: %d words, %d chars", meta.Words, meta.Chars), nil
}

// Delete removes the file and every blob derived from it, including
// its checkpoints. Owner only.
func (s *Store) Delete(identity, name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	s.locks.Lock(name)

	err := func() error {
		meta, err := s.loadMeta(name)
		if err != nil {
			return err
		}
		if identity != meta.Owner {
			return wire.Errorf(wire.StatusUnauthorized, "only owner can delete file")
		}

		for _, key := range []string{contentKey(name), metaKey(name), undoKey(name)} {
			if err := s.backend.Delete(key); err != nil {
				return err
			}
		}
		for _, tag := range s.checkpointTags(name) {
			if err := s.backend.Delete(checkpointKey(name, tag)); err != nil {
				return err
			}
		}
		return nil
	}()
	s.locks.Unlock(name)
	if err != nil {
		return err
	}

	// Let in-flight operations on the old name finish before the
	// deletion is reported complete.
	if !s.locks.Drain(name, drainTimeout) {
		logger.Warn("lock entry still busy after delete", logger.Filename(name))
	}

	logger.Info("file deleted", logger.Filename(name), logger.Identity(identity))
	return nil
}

// Undo swaps the body with the undo slot, so a second undo redoes.
func (s *Store) Undo(identity, name string) error {
	if err := validateName(name); err != nil {
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

	prev, err := s.backend.Load(undoKey(name))
	if errors.Is(err, store.ErrNotFound) {
		return wire.Errorf(wire.StatusInvalidParameters, "no undo history for %s", name)
	}
	if err != nil {
		return err
	}

	body, err := s.loadBody(name)
	if err != nil {
		return err
	}

	if err := s.backend.Save(undoKey(name), []byte(body)); err != nil {
		return err
	}
	if err := s.backend.Save(contentKey(name), prev); err != nil {
		return err
	}

	meta.Modified = s.now()
	meta.Words, meta.Chars = sentence.Stats(string(prev))
	return s.saveMeta(name, meta)
}

// Info renders the short human-readable metadata block.
func (s *Store) Info(identity, name string) ([]byte, error) {
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

	var b strings.Builder
	fmt.Fprintf(&b, "File: %s\n", name)
	fmt.Fprintf(&b, "Owner: %s\n", meta.Owner)
	fmt.Fprintf(&b, "Created: %s\n", meta.Created.Format(timeFormat))
	fmt.Fprintf(&b, "Last Modified: %s\n", meta.Modified.Format(timeFormat))
	fmt.Fprintf(&b, "Last Accessed: %s by %s\n", meta.Accessed.Format(timeFormat), meta.AccessedBy)
	fmt.Fprintf(&b, "Words: %d\n", meta.Words)
	fmt.Fprintf(&b, "Characters: %d\n", meta.Chars)
	return []byte(b.String()), nil
}

// FileInfo renders the extended block, including size, the node the
// file lives on, and the access list.
func (s *Store) FileInfo(identity, name string) ([]byte, error) {
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

	body, err := s.loadBody(name)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("=== File Information ===\n")
	fmt.Fprintf(&b, "File: %s\n", name)
	fmt.Fprintf(&b, "Owner: %s\n", meta.Owner)
	fmt.Fprintf(&b, "Size: %d bytes\n", len(body))
	fmt.Fprintf(&b, "Storage Server: %s\n", s.nodeID)
	fmt.Fprintf(&b, "Created: %s\n", meta.Created.Format(timeFormat))
	fmt.Fprintf(&b, "Last Modified: %s\n", meta.Modified.Format(timeFormat))
	fmt.Fprintf(&b, "Last Accessed: %s by %s\n", meta.Accessed.Format(timeFormat), meta.AccessedBy)
	fmt.Fprintf(&b, "Words: %d\n", meta.Words)
	fmt.Fprintf(&b, "Characters: %d\n", meta.Chars)
	b.WriteString("Access List:\n")
	if len(meta.ACL) == 0 {
		b.WriteString(" (none)\n")
	}
	for _, e := range meta.ACL {
		access := "read"
		if e.Perm == PermWrite {
			access = "write"
		}
		fmt.Fprintf(&b, " - %s (%s)\n", e.User, access)
	}
	return []byte(b.String()), nil
}

// Stream returns the body framed word by word, capped at
// maxStreamWords so the payload stays bounded.
func (s *Store) Stream(identity, name string) ([]byte, error) {
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

	body, err := s.loadBody(name)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	for i, word := range strings.Fields(body) {
		if i >= maxStreamWords {
			break
		}
		b.WriteString("|WORD|")
		b.WriteString(word)
	}
	return []byte(b.String()), nil
}

// AddAccess grants target access to the file. Only the owner may
// grant. The control path from the name node sets idempotent, so a
// re-approved request does not fail on the duplicate.
func (s *Store) AddAccess(identity, name, target string, perm Perm, idempotent bool) error {
	if err := validateName(name); err != nil {
		return err
	}
	if target == "" {
		return wire.Errorf(wire.StatusInvalidParameters, "empty target user")
	}

	s.locks.Lock(name)
	defer s.locks.Unlock(name)

	meta, err := s.loadMeta(name)
	if err != nil {
		return err
	}
	if identity != meta.Owner {
		return wire.Errorf(wire.StatusUnauthorized, "only owner can modify access")
	}
	if err := meta.Grant(target, perm, idempotent); err != nil {
		return err
	}
	if err := s.saveMeta(name, meta); err != nil {
		return err
	}

	logger.Info("access granted",
		logger.Filename(name),
		logger.Identity(identity),
		"target", target,
		"perm", perm.String(),
	)
	return nil
}

// RemAccess revokes target's access. Only the owner may revoke.
func (s *Store) RemAccess(identity, name, target string) error {
	if err := validateName(name); err != nil {
		return err
	}

	s.locks.Lock(name)
	defer s.locks.Unlock(name)

	meta, err := s.loadMeta(name)
	if err != nil {
		return err
	}
	if identity != meta.Owner {
		return wire.Errorf(wire.StatusUnauthorized, "only owner can modify access")
	}
	if err := meta.Revoke(target); err != nil {
		return err
	}
	return s.saveMeta(name, meta)
}

// Copy duplicates src's body into a new file dst owned by the caller.
// The copy starts with an empty access list.
func (s *Store) Copy(identity, src, dst string) error {
	if err := validateName(src); err != nil {
		return err
	}
	if err := validateName(dst); err != nil {
		return err
	}
	if src == dst {
		return wire.Errorf(wire.StatusInvalidParameters, "source and destination are the same file")
	}

	// Lock both names in a fixed order so two crossing copies cannot
	// deadlock.
	first, second := src, dst
	if second < first {
		first, second = second, first
	}
	s.locks.Lock(first)
	defer s.locks.Unlock(first)
	s.locks.Lock(second)
	defer s.locks.Unlock(second)

	meta, err := s.loadMeta(src)
	if err != nil {
		return err
	}
	if !meta.CanRead(identity) {
		return wire.Errorf(wire.StatusUnauthorized, "no read access to %s", src)
	}

	if _, err := s.backend.Load(metaKey(dst)); err == nil {
		return wire.Errorf(wire.StatusFileExists, "file %s already exists", dst)
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	body, err := s.loadBody(src)
	if err != nil {
		return err
	}
	if err := s.backend.Save(contentKey(dst), []byte(body)); err != nil {
		return err
	}

	dstMeta := NewMetadata(identity, s.now())
	dstMeta.Words, dstMeta.Chars = sentence.Stats(body)
	if err := s.saveMeta(dst, dstMeta); err != nil {
		return err
	}

	logger.Info("file copied", logger.Filename(src), "destination", dst, logger.Identity(identity))
	return nil
}
