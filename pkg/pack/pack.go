// Package pack implements an append-only log of content records.
//
// A pack file starts with a header {version:int16, hashSize:int16}, followed
// by records {hash:hashSize bytes, length:int32, data:length bytes}. Records
// are addressed by their offset in the file and are never modified.
package pack

import (
	"bytes"
	"io"
	"math"

	"github.com/oneconcern/chunkstore/pkg/codec"
	"github.com/oneconcern/chunkstore/pkg/pack/status"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	// Version of the pack file format
	Version = 1

	headerSize = 4
	lengthSize = 4
)

// File is a pack file
type File struct {
	f        afero.File
	hashSize int
	end      int64
	l        *zap.Logger
}

// Option for pack files
type Option func(*File)

// WithLogger sets a logger
func WithLogger(l *zap.Logger) Option {
	return func(p *File) {
		if l != nil {
			p.l = l
		}
	}
}

func newFile(f afero.File, opts []Option) *File {
	p := &File{f: f, l: zap.NewNop()}
	for _, apply := range opts {
		apply(p)
	}
	return p
}

// Create initializes an empty pack file on f, discarding any previous content
func Create(f afero.File, hashSize int, opts ...Option) (*File, error) {
	if hashSize <= 0 || uint64(hashSize) > codec.Int16.Max() {
		return nil, status.ErrHashSize.WrapMessage("invalid hash size %d", hashSize)
	}
	p := newFile(f, opts)
	if err := f.Truncate(0); err != nil {
		return nil, err
	}
	header := make([]byte, headerSize)
	w := codec.NewBuffer(header)
	w.Put(codec.Int16, Version)
	w.Put(codec.Int16, uint64(hashSize))
	if _, err := f.WriteAt(header, 0); err != nil {
		return nil, err
	}
	p.hashSize = hashSize
	p.end = headerSize
	p.l.Debug("pack file created", zap.String("name", f.Name()), zap.Int("hashSize", hashSize))
	return p, nil
}

// Open an existing pack file
func Open(f afero.File, opts ...Option) (*File, error) {
	p := newFile(f, opts)
	header := make([]byte, headerSize)
	if _, err := f.ReadAt(header, 0); err != nil {
		return nil, status.ErrCorruption.WrapMessage("cannot read header").Wrap(err)
	}
	r := codec.NewBuffer(header)
	if v := r.Get(codec.Int16); v != Version {
		return nil, status.ErrVersion.WrapMessage("version %d", v)
	}
	p.hashSize = int(r.Get(codec.Int16))
	if p.hashSize == 0 {
		return nil, status.ErrCorruption.WrapMessage("zero hash size")
	}
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	p.end = info.Size()
	p.l.Debug("pack file opened", zap.String("name", f.Name()), zap.Int64("size", p.end))
	return p, nil
}

// HashSize of the records
func (p *File) HashSize() int {
	return p.hashSize
}

// Size of the pack file, in bytes
func (p *File) Size() int64 {
	return p.end
}

// Put appends a record and returns its offset
func (p *File) Put(hash, data []byte) (int64, error) {
	if len(hash) != p.hashSize {
		return 0, status.ErrHashSize.WrapMessage("got %d bytes, expected %d", len(hash), p.hashSize)
	}
	if len(data) > math.MaxInt32 {
		return 0, status.ErrTooLarge.WrapMessage("%d bytes", len(data))
	}
	record := make([]byte, p.hashSize+lengthSize+len(data))
	w := codec.NewBuffer(record)
	w.PutBytes(hash)
	w.Put(codec.Int32, uint64(len(data)))
	w.PutBytes(data)

	offset := p.end
	if _, err := p.f.WriteAt(record, offset); err != nil {
		return 0, err
	}
	p.end += int64(len(record))
	return offset, nil
}

// Get reads the record at offset.
//
// When expected is not nil, the stored hash must match it: a mismatch means
// the offset does not point to the expected record and is reported as
// status.ErrCorruption.
func (p *File) Get(offset int64, expected []byte) ([]byte, error) {
	if offset < headerSize || offset+int64(p.hashSize+lengthSize) > p.end {
		return nil, status.ErrCorruption.WrapMessage("offset %d out of bounds", offset)
	}
	head := make([]byte, p.hashSize+lengthSize)
	if err := p.readAt(head, offset); err != nil {
		return nil, err
	}
	r := codec.NewBuffer(head)
	stored := r.Bytes(p.hashSize)
	if expected != nil && !bytes.Equal(stored, expected) {
		return nil, status.ErrCorruption.WrapMessage("hash mismatch at offset %d: stored %x, expected %x", offset, stored, expected)
	}
	length := int64(r.Get(codec.Int32))
	start := offset + int64(len(head))
	if length > math.MaxInt32 || start+length > p.end {
		return nil, status.ErrCorruption.WrapMessage("record at offset %d overflows the file (length %d)", offset, length)
	}
	data := make([]byte, length)
	if err := p.readAt(data, start); err != nil {
		return nil, err
	}
	return data, nil
}

func (p *File) readAt(b []byte, offset int64) error {
	n, err := p.f.ReadAt(b, offset)
	if n == len(b) {
		return nil
	}
	if err == nil || err == io.EOF {
		return status.ErrCorruption.WrapMessage("short read at offset %d", offset).Wrap(io.ErrUnexpectedEOF)
	}
	return err
}

// Sync commits the pack file to stable storage
func (p *File) Sync() error {
	return p.f.Sync()
}

// Close the underlying file
func (p *File) Close() error {
	return p.f.Close()
}
