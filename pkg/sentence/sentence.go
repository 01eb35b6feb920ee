// Package sentence implements the text model shared by storage nodes and
// clients: documents are sequences of sentences, sentences are sequences
// of words, and writes are word insertions addressed by (sentence index,
// word index).
//
// A sentence ends at '.', '!' or '?'. The terminator stays attached to
// its sentence, surrounding whitespace is trimmed, and whitespace-only
// runs are dropped. Text after the last terminator forms a trailing unterminated
// sentence. Rebuilding joins sentences with single spaces, so the stored
// form is always normalized regardless of how the input was spaced.
package sentence

import (
	"strings"

	"github.com/scribefs/scribefs/pkg/wire"
)

// Structural limits. Content that exceeds them is cut, not rejected:
// an over-long sentence run is broken at MaxSentenceLength and excess
// words or sentences are dropped.
const (
	MaxSentenceLength = 1024
	MaxSentences      = 1000
	MaxWordLength     = 128
	MaxWords          = 500
)

func isTerminator(c byte) bool {
	return c == '.' || c == '!' || c == '?'
}

// Split tokenises text into sentences.
func Split(text string) []string {
	var out []string
	var run strings.Builder

	for i := 0; i < len(text) && len(out) < MaxSentences; i++ {
		run.WriteByte(text[i])

		if isTerminator(text[i]) {
			if s := strings.TrimSpace(run.String()); s != "" {
				out = append(out, s)
			}
			run.Reset()
			continue
		}

		// Break an unterminated run that hits the length cap.
		if run.Len() >= MaxSentenceLength-1 {
			if s := strings.TrimSpace(run.String()); s != "" {
				out = append(out, s)
			}
			run.Reset()
		}
	}

	if run.Len() > 0 && len(out) < MaxSentences {
		if s := strings.TrimSpace(run.String()); s != "" {
			out = append(out, s)
		}
	}

	return out
}

// Words tokenises a sentence into whitespace-separated words. Words
// longer than MaxWordLength-1 bytes are truncated; words past MaxWords
// are dropped.
func Words(s string) []string {
	words := strings.Fields(s)
	if len(words) > MaxWords {
		words = words[:MaxWords]
	}
	for i, w := range words {
		if len(w) > MaxWordLength-1 {
			words[i] = w[:MaxWordLength-1]
		}
	}
	return words
}

// InsertWord inserts word before position idx in s. idx may equal the
// word count, which appends. Any other out-of-range index fails with
// StatusInvalidIndex.
func InsertWord(s string, idx int, word string) (string, error) {
	words := Words(s)
	if idx < 0 || idx > len(words) {
		return "", wire.Errorf(wire.StatusInvalidIndex,
			"word index %d out of range (max %d)", idx, len(words))
	}

	out := make([]string, 0, len(words)+1)
	out = append(out, words[:idx]...)
	out = append(out, word)
	out = append(out, words[idx:]...)
	return strings.Join(out, " "), nil
}

// Rebuild joins sentences back into document text.
func Rebuild(sentences []string) string {
	return strings.Join(sentences, " ")
}

// Stats reports the word and byte counts of text. Words are counted per
// sentence, so tokenisation limits apply the same way they do on write.
func Stats(text string) (words, chars int) {
	chars = len(text)
	for _, s := range Split(text) {
		words += len(Words(s))
	}
	return words, chars
}

// Apply runs an edit batch against content and returns the rebuilt text.
//
// sentenceIndex may equal the sentence count, which starts a new sentence
// at the end of the document. Edits apply in order against the evolving
// target sentence. If the edited sentence ends up containing terminators
// it is re-split, and the resulting sentences replace the original one in
// place, shifting the indices of everything after it.
func Apply(content string, sentenceIndex int, edits []Edit) (string, error) {
	sentences := Split(content)
	if sentenceIndex < 0 || sentenceIndex > len(sentences) {
		return "", wire.Errorf(wire.StatusInvalidIndex,
			"sentence index %d out of range (max %d)", sentenceIndex, len(sentences))
	}

	var target string
	if sentenceIndex < len(sentences) {
		target = sentences[sentenceIndex]
	}

	for _, e := range edits {
		var err error
		target, err = InsertWord(target, e.WordIndex, e.Word)
		if err != nil {
			return "", err
		}
	}

	spliced := Split(target)

	result := make([]string, 0, len(sentences)+len(spliced))
	result = append(result, sentences[:sentenceIndex]...)
	result = append(result, spliced...)
	if sentenceIndex+1 < len(sentences) {
		result = append(result, sentences[sentenceIndex+1:]...)
	}

	return Rebuild(result), nil
}
