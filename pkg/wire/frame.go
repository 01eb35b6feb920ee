package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	xdr "github.com/rasky/go-xdr/xdr2"

	"github.com/scribefs/scribefs/pkg/bufpool"
)

// Version is the frame format version. It prefixes every frame as a
// big-endian uint32 so incompatible peers fail fast instead of
// misinterpreting field boundaries.
const Version uint32 = 1

// Field bounds, enforced on both encode and decode. A frame that
// exceeds them is a protocol violation and is fatal to the session.
const (
	MaxIdentity = 64
	MaxFilename = 256
	MaxData     = 8192

	// maxFrameBody bounds the XDR body read from the wire: three int32s
	// plus two length-prefixed strings and one opaque, each padded to a
	// 4-byte boundary, with headroom.
	maxFrameBody = 16 * 1024
)

// Frame is the single message exchanged on every ScribeFS hop.
//
// Identity is the asserted caller identity (authentication is out of
// scope). Filename addresses the primary object of the operation; Data
// carries the pipe-delimited variable payload. Status is meaningful only
// on KindResponse frames.
type Frame struct {
	Kind     int32
	Command  int32
	Status   int32
	Identity string
	Filename string
	Data     []byte
}

// NewCommand builds a client request frame.
func NewCommand(cmd Command, identity, filename string, data []byte) *Frame {
	return &Frame{
		Kind:     int32(KindCommand),
		Command:  int32(cmd),
		Identity: identity,
		Filename: filename,
		Data:     data,
	}
}

// NewResponse builds a reply frame for a request.
func NewResponse(status Status, data []byte) *Frame {
	return &Frame{
		Kind:   int32(KindResponse),
		Status: int32(status),
		Data:   data,
	}
}

// validate checks the field bounds shared by encode and decode.
func (f *Frame) validate() error {
	if len(f.Identity) > MaxIdentity {
		return fmt.Errorf("identity exceeds %d bytes", MaxIdentity)
	}
	if len(f.Filename) > MaxFilename {
		return fmt.Errorf("filename exceeds %d bytes", MaxFilename)
	}
	if len(f.Data) > MaxData {
		return fmt.Errorf("payload exceeds %d bytes", MaxData)
	}
	return nil
}

// WriteFrame encodes f to w: version prefix followed by the XDR body.
// The frame is assembled in a pooled scratch buffer and written with a
// single Write, so a frame never interleaves with another writer's
// bytes. The caller owns any write deadline.
func WriteFrame(w io.Writer, f *Frame) error {
	if err := f.validate(); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	buf := bufpool.Get()
	defer bufpool.Put(buf)

	if err := binary.Write(buf, binary.BigEndian, Version); err != nil {
		return fmt.Errorf("write frame version: %w", err)
	}
	if _, err := xdr.Marshal(buf, f); err != nil {
		return fmt.Errorf("write frame body: %w", err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// ReadFrame decodes one frame from r. A short read, a version mismatch,
// or an out-of-bounds field is fatal to the session: the caller must
// close the connection.
func ReadFrame(r io.Reader) (*Frame, error) {
	var version uint32
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read frame version: %w", err)
	}
	if version != Version {
		return nil, fmt.Errorf("unsupported frame version %d (want %d)", version, Version)
	}

	var f Frame
	if _, err := xdr.Unmarshal(io.LimitReader(r, maxFrameBody), &f); err != nil {
		return nil, fmt.Errorf("read frame body: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return &f, nil
}
