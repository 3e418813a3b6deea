package splitter

import (
	"github.com/oneconcern/chunkstore/pkg/splitter/status"
)

// Chunk sizes
const (
	Chunk1KB   = 1024
	Chunk2KB   = 2 * Chunk1KB
	Chunk4KB   = 4 * Chunk1KB
	Chunk8KB   = 8 * Chunk1KB
	Chunk16KB  = 16 * Chunk1KB
	Chunk32KB  = 32 * Chunk1KB
	Chunk64KB  = 64 * Chunk1KB
	Chunk128KB = 128 * Chunk1KB
)

const (
	// WindowSize of the rolling fingerprint
	WindowSize = 48

	// DefaultTarget chunk size
	DefaultTarget = Chunk8KB

	// DefaultMin chunk size
	DefaultMin = 128

	mask = 0xFFFFFFFF
)

// Rabin is a content defined splitter.
//
// It triggers when the low 32 bits of a rolling Rabin fingerprint over the
// last WindowSize bytes fall below mask/target, which happens on average
// every target bytes. Chunks are never shorter than min and never longer
// than max.
type Rabin struct {
	target int
	min    int
	max    int

	count     int
	triggered bool
	pool      *WindowPool
	w         *window
}

// RabinOption configures a rabin splitter
type RabinOption func(*Rabin)

// WithPool takes rolling windows from a shared pool
func WithPool(p *WindowPool) RabinOption {
	return func(r *Rabin) {
		if p != nil {
			r.pool = p
		}
	}
}

// NewRabin returns a rabin splitter. A zero max defaults to 2*target.
func NewRabin(target, min, max int, opts ...RabinOption) (*Rabin, error) {
	if max == 0 {
		max = 2 * target
	}
	if target <= 0 || min < 0 || max < min || max <= 0 {
		return nil, status.ErrInvalidParams.WrapMessage("target %d, min %d, max %d", target, min, max)
	}
	r := &Rabin{target: target, min: min, max: max}
	for _, apply := range opts {
		apply(r)
	}
	return r, nil
}

// DefaultRabin returns a rabin splitter with a 8KB target and a 128 bytes minimum
func DefaultRabin(opts ...RabinOption) *Rabin {
	r, _ := NewRabin(DefaultTarget, DefaultMin, 0, opts...)
	return r
}

func (r *Rabin) window() *window {
	if r.w == nil {
		r.w = r.pool.get(WindowSize)
	}
	return r.w
}

// Update the splitter with one byte
func (r *Rabin) Update(b byte) bool {
	if r.update(b) {
		r.triggered = true
	}
	return r.triggered
}

func (r *Rabin) update(b byte) bool {
	r.count++
	if r.count < r.min-WindowSize {
		return false
	}
	w := r.window()
	w.hash.Roll(b)
	if r.count < r.min {
		return false
	}
	if r.count >= r.max {
		return true
	}
	return w.hash.Sum64()&mask < mask/uint64(r.target)
}

// Write bytes to the splitter
func (r *Rabin) Write(p []byte) bool { return write(r, p) }

// Triggered since last reset
func (r *Rabin) Triggered() bool {
	return r.triggered
}

// Reset the splitter
func (r *Rabin) Reset() {
	r.count = 0
	r.triggered = false
	if r.w != nil {
		r.w.reset()
	}
}

// NewInstance of the splitter, sharing the same window pool
func (r *Rabin) NewInstance() Splitter {
	return &Rabin{target: r.target, min: r.min, max: r.max, pool: r.pool}
}

// Release hands the rolling window back to the pool. The splitter remains
// usable and picks a new window when needed.
func (r *Rabin) Release() {
	if r.w == nil {
		return
	}
	r.pool.put(r.w)
	r.w = nil
}

// Target chunk size
func (r *Rabin) Target() int { return r.target }

// Min chunk size
func (r *Rabin) Min() int { return r.min }

// Max chunk size
func (r *Rabin) Max() int { return r.max }
