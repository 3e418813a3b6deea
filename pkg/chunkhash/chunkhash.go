// Package chunkhash computes the content hash of a byte stream as a chunk
// container would, without building the tree.
package chunkhash

import (
	"crypto/sha256"
	"hash"

	"github.com/oneconcern/chunkstore/pkg/errors"
	"github.com/oneconcern/chunkstore/pkg/key"
	"github.com/oneconcern/chunkstore/pkg/splitter"
	splitstatus "github.com/oneconcern/chunkstore/pkg/splitter/status"
)

// ErrNodeSplitter indicates a node splitter which may cut a node after a single child
var ErrNodeSplitter = errors.New("node splitter must not trigger within one child hash")

// CheckNodeSplitter verifies that a node splitter never cuts a node before
// its second child, which would grow the tree without bounds.
//
// Splitters without parameters are accepted as is.
func CheckNodeSplitter(s splitter.Splitter) error {
	p, err := splitter.Describe(s)
	if errors.Is(err, splitstatus.ErrUnsupported) {
		return nil
	}
	if err != nil {
		return err
	}
	switch p.Kind {
	case splitter.KindFixed:
		if p.BlockSize <= key.Size {
			return ErrNodeSplitter.WrapMessage("block size %d", p.BlockSize)
		}
	case splitter.KindRabin:
		if p.Min <= key.Size {
			return ErrNodeSplitter.WrapMessage("minimum size %d", p.Min)
		}
	}
	return nil
}

// layer groups the units of the level below into nodes
type layer struct {
	split splitter.Splitter
	cur   *NodeDigest // chunks of the node being built
	first *NodeDigest // chunks of the first node, until the layer above exists
	units int         // nodes started
}

// Hash streams bytes through a data splitter. Each chunk's sha256 feeds the
// first node layer, whose node boundaries come from a node splitter fed with
// the data hashes of its children; layers above are created once the layer
// below holds more than one node.
type Hash struct {
	data splitter.Splitter
	node splitter.Splitter

	chunk    hash.Hash
	chunkLen int
	all      *NodeDigest
	layers   []*layer
}

// New chunk hash. The splitters are used as templates and never mutated.
func New(data, node splitter.Splitter) (*Hash, error) {
	if err := CheckNodeSplitter(node); err != nil {
		return nil, err
	}
	c := &Hash{
		data:  data.NewInstance(),
		node:  node,
		chunk: sha256.New(),
	}
	c.Reset()
	return c, nil
}

// Reset the hash to its initial state
func (c *Hash) Reset() {
	c.data.Reset()
	c.chunk.Reset()
	c.chunkLen = 0
	c.all = NewNodeDigest()
	c.layers = []*layer{c.newLayer()}
}

func (c *Hash) newLayer() *layer {
	return &layer{split: c.node.NewInstance(), cur: NewNodeDigest()}
}

// Update the hash with one byte
func (c *Hash) Update(b byte) {
	_, _ = c.chunk.Write([]byte{b})
	c.chunkLen++
	if c.data.Update(b) {
		c.data.Reset()
		c.finishChunk()
	}
}

// Write implements io.Writer
func (c *Hash) Write(p []byte) (int, error) {
	start := 0
	for i, b := range p {
		if c.data.Update(b) {
			_, _ = c.chunk.Write(p[start : i+1])
			c.chunkLen += i + 1 - start
			start = i + 1
			c.data.Reset()
			c.finishChunk()
		}
	}
	_, _ = c.chunk.Write(p[start:])
	c.chunkLen += len(p) - start
	return len(p), nil
}

// Flush ends the current chunk, if any
func (c *Hash) Flush() {
	if c.chunkLen == 0 {
		return
	}
	c.data.Reset()
	c.finishChunk()
}

// Digest ends the current chunk and returns the hash of all data written
// since the last reset.
func (c *Hash) Digest() key.Hash {
	c.Flush()
	return c.all.Sum()
}

// Chunks is the number of data chunks
func (c *Hash) Chunks() int {
	return c.all.Count()
}

// Levels is the height of the tree built over the chunks so far
func (c *Hash) Levels() int {
	return len(c.layers)
}

func (c *Hash) finishChunk() {
	var h key.Hash
	copy(h[:], c.chunk.Sum(nil))
	c.chunk.Reset()
	c.chunkLen = 0
	c.addChunk(h)
}

// addChunk adds a chunk to the node being built at every layer. The chunk
// completes a child unit of the first layer; completed nodes of a layer are
// in turn children of the layer above.
func (c *Hash) addChunk(h key.Hash) {
	c.all.Add(h)

	child, complete := h, true
	for i := 0; ; i++ {
		if i == len(c.layers) {
			below := c.layers[i-1]
			if below.units < 2 {
				return
			}
			c.layers = append(c.layers, c.liftFirst(below))
		}

		l := c.layers[i]
		if l.cur.Count() == 0 {
			l.units++
		}
		l.cur.Add(h)
		if !complete || !l.split.Write(child[:]) {
			complete = false
			continue
		}

		l.split.Reset()
		child = l.cur.Sum()
		if l.units == 1 && i == len(c.layers)-1 {
			l.first = l.cur
		}
		l.cur = NewNodeDigest()
	}
}

// liftFirst starts a layer above below, whose first node holds the first node of below
func (c *Hash) liftFirst(below *layer) *layer {
	up := c.newLayer()
	first := below.first
	below.first = nil

	d := first.Sum()
	up.cur = first
	up.units = 1
	if up.split.Write(d[:]) {
		up.split.Reset()
		up.first = first
		up.cur = NewNodeDigest()
	}
	return up
}
