package wire

import (
	"fmt"
	"strconv"
	"strings"
)

// Payload sub-fields are pipe-delimited text. The pipe is reserved:
// words containing '|' cannot travel in an edit script, and the parser
// rejects them rather than corrupting field boundaries.

// FormatAddr encodes a storage node redirection target as "<ip>|<port>".
func FormatAddr(host string, port int) []byte {
	return []byte(fmt.Sprintf("%s|%d", host, port))
}

// ParseAddr decodes a "<ip>|<port>" redirection payload.
func ParseAddr(data []byte) (host string, port int, err error) {
	parts := strings.SplitN(string(data), "|", 2)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("malformed address payload %q", data)
	}
	port, err = strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, fmt.Errorf("malformed port in address payload %q: %w", data, err)
	}
	return parts[0], port, nil
}

// ParsePair splits a two-field payload such as "<src>|<dst>" or
// "<file>|<tag>". The second field may not contain a pipe.
func ParsePair(data []byte) (first, second string, err error) {
	parts := strings.SplitN(string(data), "|", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || strings.Contains(parts[1], "|") {
		return "", "", fmt.Errorf("malformed pair payload %q", data)
	}
	return parts[0], parts[1], nil
}

// FormatPair encodes a two-field payload.
func FormatPair(first, second string) []byte {
	return []byte(first + "|" + second)
}
