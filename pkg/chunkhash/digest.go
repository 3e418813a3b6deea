package chunkhash

import (
	"crypto/sha256"
	"hash"

	"github.com/oneconcern/chunkstore/pkg/key"
)

// NodeDigest computes the data hash of a tree node from the data hashes of
// the chunks below it, in order.
//
// The digest is the sha256 of the concatenated chunk hashes. A single chunk
// is its own digest and no chunk at all yields key.Zero. Grouping chunks
// differently between nodes never changes the digest of their common root.
type NodeDigest struct {
	h     hash.Hash
	first key.Hash
	n     int
}

// NewNodeDigest returns an empty digest
func NewNodeDigest() *NodeDigest {
	return &NodeDigest{h: sha256.New()}
}

// Add the data hash of the next chunk
func (d *NodeDigest) Add(h key.Hash) {
	if d.n == 0 {
		d.first = h
	}
	_, _ = d.h.Write(h[:])
	d.n++
}

// Count of chunks added
func (d *NodeDigest) Count() int {
	return d.n
}

// Sum returns the digest of the chunks added so far
func (d *NodeDigest) Sum() key.Hash {
	switch d.n {
	case 0:
		return key.Zero
	case 1:
		return d.first
	default:
		var out key.Hash
		copy(out[:], d.h.Sum(nil))
		return out
	}
}

// Reset the digest
func (d *NodeDigest) Reset() {
	d.h.Reset()
	d.first = key.Zero
	d.n = 0
}

// Digest of a sequence of chunk hashes
func Digest(hashes ...key.Hash) key.Hash {
	d := NewNodeDigest()
	for _, h := range hashes {
		d.Add(h)
	}
	return d.Sum()
}
