package container

import (
	"io"

	"github.com/oneconcern/chunkstore/pkg/container/status"
	"github.com/oneconcern/chunkstore/pkg/key"
)

// DataChunk locates a data chunk in a container
type DataChunk struct {
	Pointer  key.Pointer
	Position int64
	Length   int64
}

// ChunkAt returns the data chunk holding the byte at pos
func (c *Container) ChunkAt(pos int64) (DataChunk, error) {
	path, i, base, err := c.find(pos)
	if err != nil {
		return DataChunk{}, err
	}
	s := c.nodes[path[len(path)-1]].slots[i]
	return DataChunk{Pointer: s.ptr, Position: base, Length: s.length}, nil
}

// ReadChunk fetches the bytes of a data chunk and verifies them
func (c *Container) ReadChunk(dc DataChunk) ([]byte, error) {
	data, err := c.acc.GetChunk(dc.Pointer)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) != dc.Length {
		return nil, status.ErrCorruption.WrapMessage("chunk %v holds %d bytes, expected %d", dc.Pointer.Box, len(data), dc.Length)
	}
	if key.Sum(data) != dc.Pointer.Data {
		return nil, status.ErrCorruption.WrapMessage("chunk %v does not match its data hash", dc.Pointer.Box)
	}
	return data, nil
}

// Iterator walks the data chunks of a container
type Iterator struct {
	c   *Container
	pos int64
	cur DataChunk
	err error
}

// Chunks iterates over the data chunks from the one holding start
func (c *Container) Chunks(start int64) *Iterator {
	return &Iterator{c: c, pos: start}
}

// Next moves to the next chunk
func (it *Iterator) Next() bool {
	if it.err != nil || it.pos >= it.c.Len() {
		return false
	}
	dc, err := it.c.ChunkAt(it.pos)
	if err != nil {
		it.err = err
		return false
	}
	it.cur = dc
	it.pos = dc.Position + dc.Length
	return true
}

// Chunk returns the current chunk
func (it *Iterator) Chunk() DataChunk {
	return it.cur
}

// Err returns the error which stopped the iteration, if any
func (it *Iterator) Err() error {
	return it.err
}

// Reader reads the data of a container. The container must not be modified
// while reading.
type Reader struct {
	c    *Container
	pos  int64
	cur  DataChunk
	data []byte
}

var (
	_ io.ReadSeeker = &Reader{}
	_ io.ReaderAt   = &Reader{}
)

// NewReader positioned at the start of the container
func (c *Container) NewReader() *Reader {
	return &Reader{c: c}
}

func (r *Reader) chunk(pos int64) ([]byte, int64, error) {
	if r.data == nil || pos < r.cur.Position || pos >= r.cur.Position+r.cur.Length {
		dc, err := r.c.ChunkAt(pos)
		if err != nil {
			return nil, 0, err
		}
		data, err := r.c.ReadChunk(dc)
		if err != nil {
			return nil, 0, err
		}
		r.cur, r.data = dc, data
	}
	return r.data, pos - r.cur.Position, nil
}

func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.readAt(p, r.pos)
	r.pos += int64(n)
	return n, err
}

// ReadAt reads from off, without moving the position of Read
func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	n, err := r.readAt(p, off)
	if err == nil && n < len(p) {
		err = io.EOF
	}
	return n, err
}

func (r *Reader) readAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, status.ErrInvalidPosition.WrapMessage("negative offset %d", off)
	}
	size := r.c.Len()
	if off >= size {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	var n int
	for n < len(p) && off < size {
		data, start, err := r.chunk(off)
		if err != nil {
			return n, err
		}
		k := copy(p[n:], data[start:])
		n += k
		off += int64(k)
	}
	return n, nil
}

// Seek implements io.Seeker
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = r.pos + offset
	case io.SeekEnd:
		pos = r.c.Len() + offset
	default:
		return r.pos, status.ErrInvalidPosition.WrapMessage("invalid whence %d", whence)
	}
	if pos < 0 {
		return r.pos, status.ErrInvalidPosition.WrapMessage("negative position %d", pos)
	}
	r.pos = pos
	return pos, nil
}
