// Package ring implements the fixed-capacity byte buffer used to reassemble
// a fragmented SRPC message. It is adapted from the circular Fifo used by
// the CANopen SDO segmented transfer (samsamfire/gocanopen's internal/fifo):
// where that buffer is written and read sequentially byte-at-a-time as
// segments of unknown total length arrive, SRPC already knows the total
// message length (tlen) up front from the first fragment's data header, so
// writes land directly at each fragment's byte offset instead of wrapping.
package ring

import "fmt"

// Assembly accumulates the fragments of one multi-fragment message into a
// single contiguous buffer of the total announced length.
type Assembly struct {
	buf      []byte
	lastFrag uint8
}

// New allocates an assembly buffer sized to hold a message of total bytes.
func New(total uint16) *Assembly {
	return &Assembly{buf: make([]byte, total)}
}

// Put copies chunk into the buffer at the position fragment fnum (1-based)
// occupies when the message is split into fragSize-sized pieces, and
// records fnum as the last fragment accepted.
func (a *Assembly) Put(fragSize int, fnum uint8, chunk []byte) error {
	start := (int(fnum) - 1) * fragSize
	end := start + len(chunk)
	if start < 0 || end > len(a.buf) {
		return fmt.Errorf("ring: fragment %d out of bounds (buffer %d bytes)", fnum, len(a.buf))
	}
	copy(a.buf[start:end], chunk)
	a.lastFrag = fnum
	return nil
}

// LastFrag returns the ordinal of the most recently accepted fragment.
func (a *Assembly) LastFrag() uint8 {
	return a.lastFrag
}

// Bytes returns the full assembled buffer. It is valid once every fragment
// through the final one has been written.
func (a *Assembly) Bytes() []byte {
	return a.buf
}
