package splitter

import (
	"sync"

	"github.com/chmduquesne/rollinghash/rabinkarp64"
)

// Polynomial of the rabin fingerprint
const Polynomial rabinkarp64.Pol = 9256118209264353

// WindowPool recycles rolling hash windows, keyed by window size.
//
// Building a window computes lookup tables for the polynomial: splitters
// sharing a pool reuse released windows instead. A pool is safe for
// concurrent use, splitters are not.
type WindowPool struct {
	mu   sync.Mutex
	free map[int][]*window
}

// NewWindowPool returns an empty pool
func NewWindowPool() *WindowPool {
	return &WindowPool{free: make(map[int][]*window)}
}

type window struct {
	size int
	hash *rabinkarp64.RabinKarp64
	zero []byte
}

// reset replaces the window content by zeroes. Write appends to the window,
// so the hash is emptied first.
func (w *window) reset() {
	w.hash.Reset()
	_, _ = w.hash.Write(w.zero)
}

// get a window filled with zeroes
func (p *WindowPool) get(size int) *window {
	var w *window
	if p != nil {
		p.mu.Lock()
		list := p.free[size]
		if n := len(list); n != 0 {
			w = list[n-1]
			p.free[size] = list[:n-1]
		}
		p.mu.Unlock()
	}
	if w == nil {
		w = &window{
			size: size,
			hash: rabinkarp64.NewFromPol(Polynomial),
			zero: make([]byte, size),
		}
	}
	w.reset()
	return w
}

func (p *WindowPool) put(w *window) {
	if p == nil || w == nil {
		return
	}
	p.mu.Lock()
	p.free[w.size] = append(p.free[w.size], w)
	p.mu.Unlock()
}

// Len is the number of windows available for reuse
func (p *WindowPool) Len() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	var n int
	for _, list := range p.free {
		n += len(list)
	}
	return n
}
