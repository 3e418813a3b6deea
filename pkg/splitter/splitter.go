// Package splitter finds chunk boundaries in a stream of bytes.
//
// A splitter consumes bytes one at a time and reports when a boundary was
// crossed. Once triggered, it stays triggered until Reset starts a new chunk.
package splitter

import (
	"github.com/oneconcern/chunkstore/pkg/splitter/status"
)

// Splitter detects chunk boundaries
type Splitter interface {
	// Update feeds one byte and reports whether the splitter is triggered
	Update(b byte) bool

	// Write feeds all bytes of p and reports whether the splitter is triggered
	Write(p []byte) bool

	Triggered() bool

	// Reset starts a new chunk
	Reset()

	// NewInstance returns a splitter with the same parameters and a fresh state
	NewInstance() Splitter
}

// Kind of splitter, as persisted in a container header
type Kind uint8

// Supported kinds
const (
	KindFixed Kind = 0
	KindRabin Kind = 1
)

// Params describe a splitter
type Params struct {
	Kind      Kind
	BlockSize int // fixed splitters
	Target    int // rabin splitters
	Min       int
	Max       int
}

// Describe returns the parameters of a fixed or rabin splitter
func Describe(s Splitter) (Params, error) {
	switch sp := s.(type) {
	case *Fixed:
		return Params{Kind: KindFixed, BlockSize: sp.size}, nil
	case *Rabin:
		return Params{Kind: KindRabin, Target: sp.target, Min: sp.min, Max: sp.max}, nil
	default:
		return Params{}, status.ErrUnsupported.WrapMessage("%T", s)
	}
}

// FromParams builds a splitter from its description. Rabin splitters take
// their windows from pool, which may be nil.
func FromParams(p Params, pool *WindowPool) (Splitter, error) {
	switch p.Kind {
	case KindFixed:
		if p.BlockSize <= 0 {
			return nil, status.ErrInvalidParams.WrapMessage("block size %d", p.BlockSize)
		}
		return NewFixed(p.BlockSize), nil
	case KindRabin:
		return NewRabin(p.Target, p.Min, p.Max, WithPool(pool))
	default:
		return nil, status.ErrInvalidParams.WrapMessage("unknown splitter kind %d", p.Kind)
	}
}

// Split cuts data into chunks with a fresh instance of s. The last chunk ends
// with data, triggered or not.
func Split(s Splitter, data []byte) [][]byte {
	sp := s.NewInstance()
	var chunks [][]byte
	start := 0
	for i, b := range data {
		if sp.Update(b) {
			chunks = append(chunks, data[start:i+1])
			start = i + 1
			sp.Reset()
		}
	}
	if start < len(data) {
		chunks = append(chunks, data[start:])
	}
	release(sp)
	return chunks
}

func write(s Splitter, p []byte) bool {
	for _, b := range p {
		s.Update(b)
	}
	return s.Triggered()
}

// Releaser is implemented by splitters holding pooled resources
type Releaser interface {
	Release()
}

func release(s Splitter) {
	if r, ok := s.(Releaser); ok {
		r.Release()
	}
}

// Separator triggers on every occurrence of a byte, which ends the chunk
type Separator struct {
	sep       byte
	triggered bool
}

// NewSeparator returns a splitter cutting after each sep byte
func NewSeparator(sep byte) *Separator {
	return &Separator{sep: sep}
}

// Update the splitter with one byte
func (s *Separator) Update(b byte) bool {
	if b == s.sep {
		s.triggered = true
	}
	return s.triggered
}

// Write bytes to the splitter
func (s *Separator) Write(p []byte) bool { return write(s, p) }

// Triggered since last reset
func (s *Separator) Triggered() bool { return s.triggered }

// Reset the splitter
func (s *Separator) Reset() { s.triggered = false }

// NewInstance of the splitter
func (s *Separator) NewInstance() Splitter { return NewSeparator(s.sep) }
