// Package bufpool pools the scratch buffers used to assemble wire
// frames, so the per-frame encode path does not allocate.
package bufpool

import (
	"bytes"
	"sync"
)

// maxRetained bounds the capacity of buffers returned to the pool.
// Anything a pathological frame grew beyond this is left for the GC.
const maxRetained = 32 << 10

var pool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// Get returns an empty scratch buffer. Pair with Put.
func Get() *bytes.Buffer {
	return pool.Get().(*bytes.Buffer)
}

// Put resets buf and returns it to the pool. buf must not be used
// after Put.
func Put(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > maxRetained {
		return
	}
	buf.Reset()
	pool.Put(buf)
}
