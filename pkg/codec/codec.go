// Package codec encodes fixed width integers in big endian order, the byte
// order of every on-disk structure of the chunk store.
package codec

import "encoding/binary"

// Codec reads and writes an unsigned integer of a fixed width
type Codec interface {
	// Size of an encoded value, in bytes
	Size() int
	Put(b []byte, v uint64)
	Get(b []byte) uint64
	// Max is the largest value which can be encoded
	Max() uint64
}

var (
	// Int16 is a 2 bytes codec
	Int16 Codec = int16Codec{}
	// Int32 is a 4 bytes codec
	Int32 Codec = int32Codec{}
	// Int64 is an 8 bytes codec
	Int64 Codec = int64Codec{}
)

// BySize returns the codec for a width in bytes, or nil
func BySize(size int) Codec {
	switch size {
	case 2:
		return Int16
	case 4:
		return Int32
	case 8:
		return Int64
	default:
		return nil
	}
}

type int16Codec struct{}

func (int16Codec) Size() int              { return 2 }
func (int16Codec) Put(b []byte, v uint64) { binary.BigEndian.PutUint16(b, uint16(v)) }
func (int16Codec) Get(b []byte) uint64    { return uint64(binary.BigEndian.Uint16(b)) }
func (int16Codec) Max() uint64            { return 1<<16 - 1 }

type int32Codec struct{}

func (int32Codec) Size() int              { return 4 }
func (int32Codec) Put(b []byte, v uint64) { binary.BigEndian.PutUint32(b, uint32(v)) }
func (int32Codec) Get(b []byte) uint64    { return uint64(binary.BigEndian.Uint32(b)) }
func (int32Codec) Max() uint64            { return 1<<32 - 1 }

type int64Codec struct{}

func (int64Codec) Size() int              { return 8 }
func (int64Codec) Put(b []byte, v uint64) { binary.BigEndian.PutUint64(b, v) }
func (int64Codec) Get(b []byte) uint64    { return binary.BigEndian.Uint64(b) }
func (int64Codec) Max() uint64            { return 1<<63 - 1 }

// Buffer is a cursor over a fixed size byte slice, used to lay out headers
// and tiles field by field.
type Buffer struct {
	b   []byte
	off int
}

// NewBuffer wraps b
func NewBuffer(b []byte) *Buffer {
	return &Buffer{b: b}
}

// Offset of the cursor
func (w *Buffer) Offset() int {
	return w.off
}

// Remaining bytes after the cursor
func (w *Buffer) Remaining() int {
	return len(w.b) - w.off
}

// Put encodes v with c at the cursor
func (w *Buffer) Put(c Codec, v uint64) {
	c.Put(w.b[w.off:], v)
	w.off += c.Size()
}

// Get decodes a value with c at the cursor
func (w *Buffer) Get(c Codec) uint64 {
	v := c.Get(w.b[w.off:])
	w.off += c.Size()
	return v
}

// PutBytes copies p at the cursor
func (w *Buffer) PutBytes(p []byte) {
	w.off += copy(w.b[w.off:], p)
}

// Bytes returns the next n bytes, without copy
func (w *Buffer) Bytes(n int) []byte {
	p := w.b[w.off : w.off+n]
	w.off += n
	return p
}
