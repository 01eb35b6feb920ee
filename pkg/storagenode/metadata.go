// Package storagenode implements the node that holds file content.
//
// Each file is four blobs in the backing store: the body, a metadata
// record (ownership, timestamps, statistics, ACL), a single undo slot
// holding the previous body, and any number of named checkpoints. The
// node serves client file operations on one port and name node control
// commands on a second, and reports liveness to the name node over a
// heartbeat loop.
package storagenode

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/scribefs/scribefs/pkg/wire"
)

// MaxACLEntries bounds the access list per file, owner excluded.
const MaxACLEntries = 50

// Perm is an access level granted to a non-owner.
type Perm int

const (
	PermRead  Perm = iota + 1 // view content
	PermWrite                 // view and modify content
)

func (p Perm) String() string {
	switch p {
	case PermRead:
		return "R"
	case PermWrite:
		return "W"
	default:
		return "?"
	}
}

// ParsePerm decodes the wire form of a permission level ("-R"/"-W",
// with or without the flag dash).
func ParsePerm(s string) (Perm, error) {
	switch strings.TrimPrefix(s, "-") {
	case "R":
		return PermRead, nil
	case "W":
		return PermWrite, nil
	default:
		return 0, wire.Errorf(wire.StatusInvalidParameters, "unknown permission %q", s)
	}
}

// ACLEntry grants one user one access level.
type ACLEntry struct {
	User string
	Perm Perm
}

// Metadata is a file's sidecar record. The owner implicitly holds full
// access and never appears in the ACL.
type Metadata struct {
	Owner      string
	Created    time.Time
	Modified   time.Time
	Accessed   time.Time
	AccessedBy string
	Words      int
	Chars      int
	ACL        []ACLEntry
}

// NewMetadata builds the record for a freshly created, empty file.
func NewMetadata(owner string, now time.Time) *Metadata {
	return &Metadata{
		Owner:      owner,
		Created:    now,
		Modified:   now,
		Accessed:   now,
		AccessedBy: owner,
	}
}

// CanRead reports whether user may view the file's content.
func (m *Metadata) CanRead(user string) bool {
	if user == m.Owner {
		return true
	}
	for _, e := range m.ACL {
		if e.User == user {
			return true
		}
	}
	return false
}

// CanWrite reports whether user may modify the file's content.
func (m *Metadata) CanWrite(user string) bool {
	if user == m.Owner {
		return true
	}
	for _, e := range m.ACL {
		if e.User == user {
			return e.Perm == PermWrite
		}
	}
	return false
}

// Grant adds user to the ACL. A duplicate grant fails unless idempotent
// is set, in which case the existing level is left untouched.
func (m *Metadata) Grant(user string, perm Perm, idempotent bool) error {
	if user == m.Owner {
		return wire.Errorf(wire.StatusInvalidParameters, "user %s owns the file", user)
	}
	for _, e := range m.ACL {
		if e.User == user {
			if idempotent {
				return nil
			}
			return wire.Errorf(wire.StatusInvalidParameters, "user %s already has access", user)
		}
	}
	if len(m.ACL) >= MaxACLEntries {
		return wire.Errorf(wire.StatusInvalidParameters, "access list full")
	}
	m.ACL = append(m.ACL, ACLEntry{User: user, Perm: perm})
	return nil
}

// Revoke removes user from the ACL.
func (m *Metadata) Revoke(user string) error {
	for i, e := range m.ACL {
		if e.User == user {
			m.ACL = append(m.ACL[:i], m.ACL[i+1:]...)
			return nil
		}
	}
	return wire.Errorf(wire.StatusInvalidParameters, "user %s not in access list", user)
}

// Encode serialises the record as keyed lines, one field per line, with
// one acl line per grant.
func (m *Metadata) Encode() []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "owner:%s\n", m.Owner)
	fmt.Fprintf(&b, "created:%d\n", m.Created.Unix())
	fmt.Fprintf(&b, "modified:%d\n", m.Modified.Unix())
	fmt.Fprintf(&b, "accessed:%d\n", m.Accessed.Unix())
	fmt.Fprintf(&b, "accessed_by:%s\n", m.AccessedBy)
	fmt.Fprintf(&b, "words:%d\n", m.Words)
	fmt.Fprintf(&b, "chars:%d\n", m.Chars)
	for _, e := range m.ACL {
		fmt.Fprintf(&b, "acl:%s:%s\n", e.User, e.Perm)
	}
	return []byte(b.String())
}

// DecodeMetadata parses an encoded record. Unknown keys are skipped so
// records written by newer nodes still load.
func DecodeMetadata(data []byte) (*Metadata, error) {
	m := &Metadata{}
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("malformed metadata line %q", line)
		}

		var err error
		switch key {
		case "owner":
			m.Owner = value
		case "created":
			m.Created, err = parseUnix(value)
		case "modified":
			m.Modified, err = parseUnix(value)
		case "accessed":
			m.Accessed, err = parseUnix(value)
		case "accessed_by":
			m.AccessedBy = value
		case "words":
			m.Words, err = strconv.Atoi(value)
		case "chars":
			m.Chars, err = strconv.Atoi(value)
		case "acl":
			user, permStr, ok := strings.Cut(value, ":")
			if !ok {
				return nil, fmt.Errorf("malformed acl line %q", line)
			}
			perm, perr := ParsePerm(permStr)
			if perr != nil {
				return nil, fmt.Errorf("malformed acl line %q", line)
			}
			m.ACL = append(m.ACL, ACLEntry{User: user, Perm: perm})
		}
		if err != nil {
			return nil, fmt.Errorf("malformed metadata line %q: %w", line, err)
		}
	}
	if m.Owner == "" {
		return nil, fmt.Errorf("metadata record has no owner")
	}
	return m, nil
}

func parseUnix(s string) (time.Time, error) {
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(secs, 0), nil
}
