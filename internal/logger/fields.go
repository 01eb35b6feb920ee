package logger

import "log/slog"

// Standard field keys for structured logging. Use these consistently
// across all log statements so logs aggregate and query cleanly.
const (
	// Protocol & operation
	KeyCommand   = "command"    // wire command name: read, write-commit, etc.
	KeyKind      = "kind"       // frame kind: command, heartbeat, ss-command
	KeyStatus    = "status"     // wire status code
	KeyStatusMsg = "status_msg" // human-readable status message

	// Object addressing
	KeyFilename      = "filename"       // file or folder name
	KeyOwner         = "owner"          // file owner
	KeySentenceIndex = "sentence_index" // sentence index within a document
	KeyWordIndex     = "word_index"     // word index within a sentence
	KeyTag           = "tag"            // checkpoint tag

	// Identity
	KeyIdentity = "identity" // asserted caller identity
	KeyClientIP = "client_ip"

	// Topology
	KeyNodeID   = "node_id" // storage node identifier
	KeyAddr     = "addr"    // host:port
	KeyReplica  = "replica" // replica partner node id
	KeyBackend  = "backend" // blob store backend: fs, badger
	KeyFiles    = "files"   // file count on a node
	KeyLastSeen = "last_seen"

	// Operation metadata
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyAttempt    = "attempt"
	KeyEntries    = "entries"
	KeyWords      = "words"
	KeyChars      = "chars"
)

// Field constructors for the keys used on hot paths.

func Command(name string) slog.Attr {
	return slog.String(KeyCommand, name)
}

func Status(code int32) slog.Attr {
	return slog.Int(KeyStatus, int(code))
}

func Filename(name string) slog.Attr {
	return slog.String(KeyFilename, name)
}

func Identity(name string) slog.Attr {
	return slog.String(KeyIdentity, name)
}

func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

func NodeID(id string) slog.Attr {
	return slog.String(KeyNodeID, id)
}

func Addr(addr string) slog.Attr {
	return slog.String(KeyAddr, addr)
}

func SentenceIndex(idx int) slog.Attr {
	return slog.Int(KeySentenceIndex, idx)
}

func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error, or an empty attr for nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

func Entries(n int) slog.Attr {
	return slog.Int(KeyEntries, n)
}
