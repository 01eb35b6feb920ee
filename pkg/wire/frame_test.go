package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	in := &Frame{
		Kind:     int32(KindCommand),
		Command:  int32(CmdWriteCommit),
		Identity: "alice",
		Filename: "notes.txt",
		Data:     []byte("0|1|cruel|"),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, in))

	out, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestFrameEmptyFields(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, NewResponse(StatusOK, nil)))

	out, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, int32(KindResponse), out.Kind)
	assert.Equal(t, int32(StatusOK), out.Status)
	assert.Empty(t, out.Data)
}

func TestFrameBounds(t *testing.T) {
	tests := []struct {
		name  string
		frame *Frame
	}{
		{"identity too long", &Frame{Identity: strings.Repeat("a", MaxIdentity+1)}},
		{"filename too long", &Frame{Filename: strings.Repeat("f", MaxFilename+1)}},
		{"payload too large", &Frame{Data: bytes.Repeat([]byte{'x'}, MaxData+1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			assert.Error(t, WriteFrame(&buf, tt.frame))
		})
	}
}

func TestFrameVersionMismatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(99)))

	_, err := ReadFrame(&buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported frame version")
}

func TestFrameShortRead(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, NewCommand(CmdRead, "alice", "doc", nil)))

	// Truncate mid-body: a partial read is fatal to the session.
	truncated := bytes.NewReader(buf.Bytes()[:buf.Len()-3])
	_, err := ReadFrame(truncated)
	assert.Error(t, err)
}

func TestFrameEOFOnIdleConnection(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader(nil))
	assert.True(t, errors.Is(err, io.EOF))
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, StatusOK, StatusOf(nil))
	assert.Equal(t, StatusFileLocked, StatusOf(Errorf(StatusFileLocked, "sentence locked by %s", "bob")))
	assert.Equal(t, StatusFileNotFound, StatusOf(fmt.Errorf("dispatch: %w", Errorf(StatusFileNotFound, "no such file"))))
	assert.Equal(t, StatusInternal, StatusOf(errors.New("disk on fire")))
}

func TestParseAddr(t *testing.T) {
	host, port, err := ParseAddr(FormatAddr("10.0.0.7", 7000))
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.7", host)
	assert.Equal(t, 7000, port)

	_, _, err = ParseAddr([]byte("no-port-here"))
	assert.Error(t, err)
}

func TestParsePair(t *testing.T) {
	first, second, err := ParsePair(FormatPair("src.txt", "dst.txt"))
	require.NoError(t, err)
	assert.Equal(t, "src.txt", first)
	assert.Equal(t, "dst.txt", second)

	_, _, err = ParsePair([]byte("onlyone"))
	assert.Error(t, err)
	_, _, err = ParsePair([]byte("a|b|c"))
	assert.Error(t, err)
}
