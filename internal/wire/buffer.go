// Package wire implements the request/reply framing and tagged reply
// encoding used on the engine's TCP protocol.
package wire

import (
	"encoding/binary"
	"math"
)

// MaxMsg is the largest permitted frame body, in bytes.
const MaxMsg = 4096

// Buffer is a growable byte sequence with O(1) append at the tail and O(1)
// consume at the head. Connections keep one for incoming bytes and one for
// outgoing bytes.
type Buffer struct {
	buf  []byte
	head int
}

// Len reports the number of unconsumed bytes.
func (b *Buffer) Len() int { return len(b.buf) - b.head }

// Empty reports whether there are no unconsumed bytes.
func (b *Buffer) Empty() bool { return b.Len() == 0 }

// Peek returns the first n unconsumed bytes without consuming them.
// Panics if n exceeds Len, matching the buffer's read-your-own-invariant
// contract with callers (framing code always checks Len first).
func (b *Buffer) Peek(n int) []byte {
	if n > b.Len() {
		panic("wire: Peek beyond buffer length")
	}
	return b.buf[b.head : b.head+n]
}

// Bytes returns all unconsumed bytes.
func (b *Buffer) Bytes() []byte { return b.buf[b.head:] }

// Consume drops the first n unconsumed bytes. Once the head has drifted
// far enough, the backing array is compacted so it doesn't grow without
// bound on a long-lived connection.
func (b *Buffer) Consume(n int) {
	if n > b.Len() {
		panic("wire: Consume beyond buffer length")
	}
	b.head += n
	if b.head > 0 && (b.head > len(b.buf)/2 || b.head > 64*1024) {
		remaining := copy(b.buf, b.buf[b.head:])
		b.buf = b.buf[:remaining]
		b.head = 0
	}
}

// Append adds bytes to the tail.
func (b *Buffer) Append(p []byte) {
	b.buf = append(b.buf, p...)
}

// AppendByte appends a single byte.
func (b *Buffer) AppendByte(v byte) {
	b.buf = append(b.buf, v)
}

// AppendU32 appends a little-endian uint32.
func (b *Buffer) AppendU32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
}

// AppendI64 appends a little-endian int64.
func (b *Buffer) AppendI64(v int64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(v))
	b.buf = append(b.buf, tmp[:]...)
}

// AppendF64 appends a little-endian IEEE-754 double.
func (b *Buffer) AppendF64(v float64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v))
	b.buf = append(b.buf, tmp[:]...)
}

// Mark is an opaque position handle returned by ResponseBegin/BeginArr and
// consumed by the matching End call.
type Mark int

// ResponseBegin reserves a 4-byte little-endian length placeholder at the
// tail and returns a handle to it. The frame body written after this call,
// up to the matching ResponseEnd, becomes the message length.
func (b *Buffer) ResponseBegin() Mark {
	m := Mark(len(b.buf))
	b.AppendU32(0)
	return m
}

// ResponseEnd patches the placeholder at m with the number of bytes written
// since m (not counting the 4-byte placeholder itself). If that count
// exceeds MaxMsg, the buffer is truncated back to m and a single tagged
// error reply is written in its place.
func (b *Buffer) ResponseEnd(m Mark) {
	size := len(b.buf) - int(m) - 4
	if size > MaxMsg {
		b.buf = b.buf[:m]
		mm := b.ResponseBegin()
		WriteErr(b, "response is too big")
		b.patchU32(mm, uint32(len(b.buf)-int(mm)-4))
		return
	}
	b.patchU32(m, uint32(size))
}

func (b *Buffer) patchU32(m Mark, v uint32) {
	binary.LittleEndian.PutUint32(b.buf[m:m+4], v)
}

// BeginArr writes the Arr tag and reserves a 4-byte element-count
// placeholder, returning a handle for EndArr.
func (b *Buffer) BeginArr() Mark {
	b.AppendByte(byte(TagArr))
	m := Mark(len(b.buf))
	b.AppendU32(0)
	return m
}

// EndArr patches the element count reserved by BeginArr.
func (b *Buffer) EndArr(m Mark, count uint32) {
	b.patchU32(m, count)
}
