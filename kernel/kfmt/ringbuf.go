package kfmt

import "io"

// ringBufferSize defines the size of the ring buffer that stores early
// Printf output. It is large enough to hold the boot diagnostics of the
// memory subsystems. The ring buffer size must always be a power of 2.
const ringBufferSize = 2048

// ringBuffer models a fixed-size ring buffer which overwrites its oldest
// contents when full. It captures the output of Printf until an output sink
// is registered via SetOutputSink.
type ringBuffer struct {
	buffer         [ringBufferSize]byte
	rIndex, wIndex int
}

// Write writes len(p) bytes from p to the ring buffer, evicting the oldest
// bytes when the buffer is full.
func (rb *ringBuffer) Write(p []byte) (int, error) {
	for _, b := range p {
		rb.buffer[rb.wIndex] = b
		rb.wIndex = (rb.wIndex + 1) & (ringBufferSize - 1)
		if rb.rIndex == rb.wIndex {
			rb.rIndex = (rb.rIndex + 1) & (ringBufferSize - 1)
		}
	}

	return len(p), nil
}

// Read reads up to len(p) bytes into p, returning io.EOF once the buffered
// contents have been drained.
func (rb *ringBuffer) Read(p []byte) (int, error) {
	if rb.rIndex == rb.wIndex {
		return 0, io.EOF
	}

	var n int
	for n = 0; n < len(p) && rb.rIndex != rb.wIndex; n++ {
		p[n] = rb.buffer[rb.rIndex]
		rb.rIndex = (rb.rIndex + 1) & (ringBufferSize - 1)
	}

	return n, nil
}
