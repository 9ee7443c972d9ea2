// Package pool provides pooled byte buffers for transient decode scratch
// space; framing uses them for decompression output.
package pool

import "sync"

// FrameBufferDefaultSize is the default capacity of a pooled buffer; capture
// frames and data blocks rarely exceed it.
const (
	FrameBufferDefaultSize  = 1024 * 16  // 16KiB
	FrameBufferMaxThreshold = 1024 * 128 // 128KiB
)

// ByteBuffer is a reusable byte slice wrapper.
type ByteBuffer struct {
	// B is the underlying byte slice.
	B []byte
}

// NewByteBuffer creates a new ByteBuffer with the specified capacity.
func NewByteBuffer(defaultSize int) *ByteBuffer {
	return &ByteBuffer{
		B: make([]byte, 0, defaultSize),
	}
}

// Bytes returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Reset resets the buffer to be empty, but retains the allocated memory for
// reuse.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// Len returns the length of the buffer.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// Write appends data to the buffer, growing it if necessary. It always
// succeeds; the error return satisfies io.Writer.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.B = append(bb.B, data...)

	return len(data), nil
}

var bufferPool = sync.Pool{
	New: func() any {
		return NewByteBuffer(FrameBufferDefaultSize)
	},
}

// GetBuffer obtains an empty buffer from the pool.
func GetBuffer() *ByteBuffer {
	bb, _ := bufferPool.Get().(*ByteBuffer)
	bb.Reset()

	return bb
}

// PutBuffer returns a buffer to the pool. Oversized buffers are dropped so
// one large frame does not pin its memory for the life of the pool.
func PutBuffer(bb *ByteBuffer) {
	if cap(bb.B) > FrameBufferMaxThreshold {
		return
	}
	bufferPool.Put(bb)
}
