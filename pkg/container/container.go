// Package container represents a byte stream as a balanced tree of content
// defined chunks.
//
// Leaves are data chunks. Internal nodes list the pointers of their children
// together with the number of data bytes below each child, which makes random
// access cheap. Node boundaries are content defined too: a node splitter is
// fed with the data hashes of the children, so an edit only rewrites the nodes
// on its path and their immediate neighbours.
//
// Nodes are kept in an arena and addressed by handles. Nodes never point to
// their parent: operations carry the path from the root to the node they work
// on.
package container

import (
	"github.com/oneconcern/chunkstore/pkg/chunkhash"
	"github.com/oneconcern/chunkstore/pkg/container/status"
	"github.com/oneconcern/chunkstore/pkg/key"
	"github.com/oneconcern/chunkstore/pkg/splitter"
	"go.uber.org/zap"
)

// Accessor reads and writes the chunks of a container
type Accessor interface {
	// GetChunk returns the stored bytes of a pointer, resolved by its box hash
	GetChunk(key.Pointer) ([]byte, error)

	// PutChunk stores data. It returns the box hash and whether the chunk was already stored.
	PutChunk(data []byte) (key.Hash, bool, error)

	// ReleaseChunk tells that a chunk is no longer referenced by the container
	ReleaseChunk(key.Hash) error
}

// Container is a chunk tree. It is not safe for concurrent use.
type Container struct {
	acc   Accessor
	split splitter.Splitter

	nodes []*node
	root  handle
	ptr   key.Pointer
	gen   uint64

	pool *splitter.WindowPool
	l    *zap.Logger
}

func newContainer(acc Accessor, opts []Option) (*Container, error) {
	if acc == nil {
		return nil, status.ErrNoAccessor
	}
	c := &Container{
		acc:   acc,
		nodes: []*node{nil},
		l:     zap.NewNop(),
	}
	for _, apply := range opts {
		apply(c)
	}
	return c, nil
}

func checkNodeSplitter(s splitter.Splitter) error {
	if _, err := splitter.Describe(s); err != nil {
		return err
	}
	return chunkhash.CheckNodeSplitter(s)
}

// New empty container. Node boundaries are found with a fresh instance of
// nodeSplitter, which must be a fixed or rabin splitter.
func New(acc Accessor, nodeSplitter splitter.Splitter, opts ...Option) (*Container, error) {
	if err := checkNodeSplitter(nodeSplitter); err != nil {
		return nil, err
	}
	c, err := newContainer(acc, opts)
	if err != nil {
		return nil, err
	}
	c.split = nodeSplitter.NewInstance()
	c.root = c.add(&node{level: leafLevel})
	return c, nil
}

// Open a container from its root pointer. The node splitter is restored from
// the root node.
func Open(acc Accessor, root key.Pointer, opts ...Option) (*Container, error) {
	c, err := newContainer(acc, opts)
	if err != nil {
		return nil, err
	}
	data, err := acc.GetChunk(root)
	if err != nil {
		return nil, err
	}
	n, params, err := decodeRoot(data)
	if err != nil {
		return nil, err
	}
	if c.split, err = splitter.FromParams(params, c.pool); err != nil {
		return nil, status.ErrCorruption.Wrap(err)
	}
	if err = chunkhash.CheckNodeSplitter(c.split); err != nil {
		return nil, status.ErrCorruption.Wrap(err)
	}
	n.digest, n.hashed = root.Data, true
	c.root = c.add(n)
	c.ptr = root
	c.l.Debug("container opened", zap.Stringer("box", root.Box), zap.Int("levels", n.level), zap.Int64("length", n.length))
	return c, nil
}

// Levels of the tree, 1 when the root holds data chunks
func (c *Container) Levels() int {
	return c.nodes[c.root].level
}

// Len is the number of data bytes in the container
func (c *Container) Len() int64 {
	return c.nodes[c.root].length
}

// Pointer to the root node as of the last flush. It is zero until the first flush.
func (c *Container) Pointer() key.Pointer {
	return c.ptr
}

// Hash of the data held by the container. It only depends on the sequence of
// data chunks, not on the way they are grouped into nodes.
func (c *Container) Hash() (key.Hash, error) {
	return c.digestOf(c.root)
}

// Append a data chunk
func (c *Container) Append(data []byte) error {
	return c.Insert(data, c.Len())
}

// Insert a data chunk at pos, which must be a chunk boundary
func (c *Container) Insert(data []byte, pos int64) error {
	path, i, err := c.findInsert(pos)
	if err != nil {
		return err
	}
	box, _, err := c.acc.PutChunk(data)
	if err != nil {
		return err
	}
	c.gen++
	leaf := c.nodes[path[len(path)-1]]
	leaf.slots = append(leaf.slots, slot{})
	copy(leaf.slots[i+1:], leaf.slots[i:])
	leaf.slots[i] = slot{
		ptr:    key.Pointer{Data: key.Sum(data), Box: box},
		length: int64(len(data)),
	}
	c.touch(path)
	return c.rebalance(path)
}

// Remove the data chunk starting at pos. The chunk must be length bytes long.
func (c *Container) Remove(pos, length int64) error {
	path, i, base, err := c.find(pos)
	if err != nil {
		return err
	}
	if base != pos {
		return status.ErrInvalidPosition.WrapMessage("%d is within a chunk starting at %d", pos, base)
	}
	leaf := c.nodes[path[len(path)-1]]
	if leaf.slots[i].length != length {
		return status.ErrLengthMismatch.WrapMessage("chunk at %d holds %d bytes, not %d", pos, leaf.slots[i].length, length)
	}
	c.gen++
	leaf.slots = append(leaf.slots[:i], leaf.slots[i+1:]...)
	if len(leaf.slots) == 0 && len(path) > 1 {
		path = c.unlink(path)
	} else {
		c.touch(path)
	}
	return c.rebalance(path)
}

// findInsert returns the path to the leaf node where a chunk may be inserted
// at pos, and the index of the new slot
func (c *Container) findInsert(pos int64) ([]handle, int, error) {
	if pos < 0 || pos > c.Len() {
		return nil, 0, status.ErrInvalidPosition.WrapMessage("%d is out of [0, %d]", pos, c.Len())
	}
	h := c.root
	path := []handle{h}
	var base int64
	for {
		n := c.nodes[h]
		i := 0
		for ; i < len(n.slots); i++ {
			if base+n.slots[i].length > pos {
				break
			}
			base += n.slots[i].length
		}
		if n.level == leafLevel {
			if base != pos {
				return nil, 0, status.ErrInvalidPosition.WrapMessage("%d is not on a chunk boundary", pos)
			}
			return path, i, nil
		}
		if len(n.slots) == 0 {
			return nil, 0, status.ErrCorruption.WrapMessage("empty node at level %d", n.level)
		}
		if i == len(n.slots) {
			// appending goes to the last child
			i--
			base -= n.slots[i].length
		}
		child, err := c.load(h, i)
		if err != nil {
			return nil, 0, err
		}
		h = child
		path = append(path, h)
	}
}

// find returns the path to the leaf node holding the data at pos, the index
// of the data chunk and its position
func (c *Container) find(pos int64) ([]handle, int, int64, error) {
	if pos < 0 || pos >= c.Len() {
		return nil, 0, 0, status.ErrInvalidPosition.WrapMessage("%d is out of [0, %d)", pos, c.Len())
	}
	h := c.root
	path := []handle{h}
	var base int64
	for {
		n := c.nodes[h]
		i := 0
		for ; i < len(n.slots); i++ {
			if base+n.slots[i].length > pos {
				break
			}
			base += n.slots[i].length
		}
		if i == len(n.slots) {
			return nil, 0, 0, status.ErrCorruption.WrapMessage("node at level %d is shorter than expected", n.level)
		}
		if n.level == leafLevel {
			return path, i, base, nil
		}
		child, err := c.load(h, i)
		if err != nil {
			return nil, 0, 0, err
		}
		h = child
		path = append(path, h)
	}
}

// touch marks the nodes of a path as modified and updates their length, from
// the bottom up
func (c *Container) touch(path []handle) {
	for i := len(path) - 1; i >= 0; i-- {
		n := c.nodes[path[i]]
		n.onDisk = false
		n.hashed = false
		n.gen = c.gen
		n.length = n.sumLength()
		if i > 0 {
			parent := c.nodes[path[i-1]]
			parent.slots[c.indexOf(path[i-1], path[i])].length = n.length
		}
	}
}

// unlink removes an empty node from its parent, and then every ancestor left
// empty. It returns the path to the deepest remaining ancestor.
func (c *Container) unlink(path []handle) []handle {
	for len(path) > 1 {
		h := path[len(path)-1]
		if len(c.nodes[h].slots) > 0 {
			break
		}
		parent := c.nodes[path[len(path)-2]]
		i := c.indexOf(path[len(path)-2], h)
		parent.slots = append(parent.slots[:i], parent.slots[i+1:]...)
		c.drop(h)
		path = path[:len(path)-1]
	}
	root := c.nodes[c.root]
	if len(root.slots) == 0 {
		root.level = leafLevel
	}
	c.touch(path)
	return path
}

// Flush stores all modified nodes, from the bottom up. When childOnly is set,
// the root itself is not stored and Pointer is not updated.
func (c *Container) Flush(childOnly bool) error {
	root := c.nodes[c.root]
	for i := range root.slots {
		if err := c.flushSlot(c.root, i); err != nil {
			return err
		}
	}
	if childOnly || (root.onDisk && !c.ptr.IsZero()) {
		return nil
	}
	data, err := c.encode(root, true)
	if err != nil {
		return err
	}
	ptr, err := c.store(c.root, data, c.ptr.Box)
	if err != nil {
		return err
	}
	c.ptr = ptr
	root.onDisk = true
	c.l.Debug("container flushed",
		zap.Stringer("box", ptr.Box),
		zap.Int("levels", root.level),
		zap.Int64("length", root.length),
	)
	return nil
}

func (c *Container) flushSlot(parent handle, i int) error {
	s := &c.nodes[parent].slots[i]
	if s.child == 0 {
		return nil
	}
	n := c.nodes[s.child]
	if n.onDisk {
		return nil
	}
	for j := range n.slots {
		if err := c.flushSlot(s.child, j); err != nil {
			return err
		}
	}
	data, err := c.encode(n, false)
	if err != nil {
		return err
	}
	ptr, err := c.store(s.child, data, s.ptr.Box)
	if err != nil {
		return err
	}
	s.ptr = ptr
	n.onDisk = true
	return nil
}

// store the serialized node h, and release its previous version
func (c *Container) store(h handle, data []byte, old key.Hash) (key.Pointer, error) {
	digest, err := c.digestOf(h)
	if err != nil {
		return key.Pointer{}, err
	}
	box, _, err := c.acc.PutChunk(data)
	if err != nil {
		return key.Pointer{}, err
	}
	if box != old && !old.IsZero() {
		if err = c.acc.ReleaseChunk(old); err != nil {
			return key.Pointer{}, err
		}
	}
	return key.Pointer{Data: digest, Box: box}, nil
}
