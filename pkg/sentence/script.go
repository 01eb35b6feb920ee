package sentence

import (
	"strconv"
	"strings"

	"github.com/scribefs/scribefs/pkg/wire"
)

// Edit is a single word insertion within the target sentence.
type Edit struct {
	WordIndex int
	Word      string
}

// FormatScript encodes a write batch as the wire edit script
// "<sentence>|<word-index>|<word>|<word-index>|<word>|...".
func FormatScript(sentenceIndex int, edits []Edit) []byte {
	var b strings.Builder
	b.WriteString(strconv.Itoa(sentenceIndex))
	for _, e := range edits {
		b.WriteByte('|')
		b.WriteString(strconv.Itoa(e.WordIndex))
		b.WriteByte('|')
		b.WriteString(e.Word)
	}
	b.WriteByte('|')
	return []byte(b.String())
}

// ParseScript decodes a wire edit script. The pipe is the field
// separator, so words containing one are rejected at format time by the
// client and can never appear here; an empty word or a non-numeric index
// fails with StatusInvalidParameters.
func ParseScript(data []byte) (sentenceIndex int, edits []Edit, err error) {
	fields := strings.Split(string(data), "|")
	if n := len(fields); n > 0 && fields[n-1] == "" {
		fields = fields[:n-1]
	}
	if len(fields) == 0 || len(fields)%2 == 0 {
		return 0, nil, wire.Errorf(wire.StatusInvalidParameters,
			"malformed edit script %q", data)
	}

	sentenceIndex, err = strconv.Atoi(fields[0])
	if err != nil {
		return 0, nil, wire.Errorf(wire.StatusInvalidParameters,
			"malformed sentence index %q", fields[0])
	}

	for i := 1; i < len(fields); i += 2 {
		wordIndex, err := strconv.Atoi(fields[i])
		if err != nil {
			return 0, nil, wire.Errorf(wire.StatusInvalidParameters,
				"malformed word index %q", fields[i])
		}
		word := fields[i+1]
		if word == "" {
			return 0, nil, wire.Errorf(wire.StatusInvalidParameters,
				"empty word in edit script")
		}
		edits = append(edits, Edit{WordIndex: wordIndex, Word: word})
	}

	return sentenceIndex, edits, nil
}

// ValidateWord reports whether a word may travel in an edit script.
func ValidateWord(word string) error {
	if word == "" {
		return wire.Errorf(wire.StatusInvalidParameters, "empty word")
	}
	if strings.Contains(word, "|") {
		return wire.Errorf(wire.StatusInvalidParameters, "word %q contains reserved separator", word)
	}
	if strings.ContainsAny(word, " \t\n") {
		return wire.Errorf(wire.StatusInvalidParameters, "word %q contains whitespace", word)
	}
	return nil
}
