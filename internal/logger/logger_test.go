package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture points the global logger at a buffer for the duration of a
// test. The global is restored to a quiet default afterwards.
func capture(t *testing.T, level, format string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	InitWithWriter(&buf, level, format, false)
	t.Cleanup(func() { InitWithWriter(os.Stderr, "error", "text", false) })
	return &buf
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t, "warn", "text")

	Debug("too quiet")
	Info("still too quiet")
	Warn("audible")
	Error("loud")

	out := buf.String()
	assert.NotContains(t, out, "too quiet")
	assert.Contains(t, out, "audible")
	assert.Contains(t, out, "loud")
}

func TestSetLevel(t *testing.T) {
	buf := capture(t, "info", "text")

	Debug("before")
	SetLevel("debug")
	Debug("after")
	SetLevel("nonsense") // ignored
	Debug("still after")

	out := buf.String()
	assert.NotContains(t, out, "before")
	assert.Contains(t, out, "after")
	assert.Contains(t, out, "still after")
}

func TestTextAttrs(t *testing.T) {
	buf := capture(t, "info", "text")

	Info("lock acquired", Filename("doc.txt"), SentenceIndex(3), "holder", "alice")

	out := buf.String()
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "lock acquired")
	assert.Contains(t, out, "filename=doc.txt")
	assert.Contains(t, out, "sentence_index=3")
	assert.Contains(t, out, "holder=alice")
}

func TestTextQuotesAwkwardValues(t *testing.T) {
	buf := capture(t, "info", "text")

	Info("msg", "note", "two words", "empty", "", "eq", "a=b")

	out := buf.String()
	assert.Contains(t, out, `note="two words"`)
	assert.Contains(t, out, `empty=""`)
	assert.Contains(t, out, `eq="a=b"`)
}

func TestJSONFormat(t *testing.T) {
	buf := capture(t, "info", "json")

	Info("registered", NodeID("ss-1"), "port", 7000)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "registered", rec["msg"])
	assert.Equal(t, "ss-1", rec[KeyNodeID])
	assert.Equal(t, float64(7000), rec["port"])
}

func TestContextFieldsLeadTheLine(t *testing.T) {
	buf := capture(t, "debug", "text")

	lc := NewLogContext("192.0.2.7").WithCommand("write-commit", "alice", "doc.txt")
	ctx := WithContext(context.Background(), lc)
	DebugCtx(ctx, "request served", Status(0))

	out := buf.String()
	assert.Contains(t, out, "command=write-commit")
	assert.Contains(t, out, "identity=alice")
	assert.Contains(t, out, "filename=doc.txt")
	assert.Contains(t, out, "client_ip=192.0.2.7")
	assert.Less(t, strings.Index(out, "command="), strings.Index(out, "status="))
}

func TestContextlessCtxLogging(t *testing.T) {
	buf := capture(t, "info", "text")

	InfoCtx(context.Background(), "plain", "k", "v")
	assert.Contains(t, buf.String(), "plain k=v")
}

func TestLogContextHelpers(t *testing.T) {
	lc := NewLogContext("10.0.0.1")
	assert.False(t, lc.StartTime.IsZero())

	withCmd := lc.WithCommand("read", "bob", "notes.txt")
	assert.Equal(t, "", lc.Command) // original untouched
	assert.Equal(t, "read", withCmd.Command)
	assert.Equal(t, "10.0.0.1", withCmd.ClientIP)
	assert.GreaterOrEqual(t, withCmd.DurationMs(), 0.0)

	var nilLC *LogContext
	assert.Nil(t, nilLC.Clone())
	assert.Zero(t, nilLC.DurationMs())
	assert.Nil(t, FromContext(context.Background()))
}

func TestFieldConstructors(t *testing.T) {
	tests := []struct {
		attr slog.Attr
		key  string
	}{
		{Command("view"), KeyCommand},
		{Status(4), KeyStatus},
		{Filename("a.txt"), KeyFilename},
		{Identity("alice"), KeyIdentity},
		{NodeID("ss-1"), KeyNodeID},
		{SentenceIndex(2), KeySentenceIndex},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.key, tt.attr.Key)
	}

	assert.Equal(t, KeyError, Err(assert.AnError).Key)
	assert.True(t, Err(nil).Equal(slog.Attr{}))
}

func TestInitFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scribefs.log")
	require.NoError(t, Init(Config{Level: "info", Format: "text", Output: path}))
	t.Cleanup(func() { InitWithWriter(os.Stderr, "error", "text", false) })

	Info("to file", Filename("doc.txt"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
	assert.Contains(t, string(data), "filename=doc.txt")
	// No ANSI escapes in file output.
	assert.NotContains(t, string(data), "\033[")
}

func TestInitRejectsBadConfig(t *testing.T) {
	assert.Error(t, Init(Config{Level: "chatty"}))
	assert.Error(t, Init(Config{Format: "xml"}))
}

func TestConcurrentLogging(t *testing.T) {
	buf := capture(t, "info", "text")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				Info("tick", "worker", j)
			}
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 400)
	for _, line := range lines {
		assert.Contains(t, line, "tick")
	}
}

func TestWithGroupAndBoundAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := newConsoleHandler(&buf, nil, false)
	log := slog.New(h).With("node", "ss-1").WithGroup("req")

	log.Info("served", "status", "ok")

	out := buf.String()
	assert.Contains(t, out, "node=ss-1")
	assert.Contains(t, out, "req.status=ok")
}
