package container

import (
	"github.com/oneconcern/chunkstore/pkg/chunkhash"
	"github.com/oneconcern/chunkstore/pkg/codec"
	"github.com/oneconcern/chunkstore/pkg/container/status"
	"github.com/oneconcern/chunkstore/pkg/key"
	"github.com/oneconcern/chunkstore/pkg/splitter"
)

const (
	dataLevel = 0
	leafLevel = dataLevel + 1

	slotSize       = 8 + 2*key.Size
	nodeHeaderSize = 4
	packedFlag     = 1
)

// handle addresses a node in the container arena. The zero handle is never
// allocated and stands for an unloaded child.
type handle int32

// slot is an edge of the tree. Slots of leaf nodes point to data chunks.
type slot struct {
	ptr    key.Pointer
	length int64
	child  handle
}

type node struct {
	level  int
	slots  []slot
	length int64

	// onDisk is set while the node matches its stored representation
	onDisk bool

	digest key.Hash
	hashed bool

	// data hashes fed into sum, kept past invalidation so that a digest
	// whose chunks only grew at the end resumes from sum
	leaves []key.Hash
	sum    *chunkhash.NodeDigest

	// operation which last modified the node
	gen uint64
}

func (n *node) sumLength() int64 {
	var total int64
	for _, s := range n.slots {
		total += s.length
	}
	return total
}

func (c *Container) add(n *node) handle {
	c.nodes = append(c.nodes, n)
	return handle(len(c.nodes) - 1)
}

func (c *Container) drop(h handle) {
	c.nodes[h] = nil
}

func (c *Container) indexOf(parent, child handle) int {
	for i, s := range c.nodes[parent].slots {
		if s.child == child {
			return i
		}
	}
	return -1
}

// load the child node behind slot i of h
func (c *Container) load(h handle, i int) (handle, error) {
	n := c.nodes[h]
	s := &n.slots[i]
	if s.child != 0 {
		return s.child, nil
	}
	if n.level <= leafLevel {
		return 0, status.ErrCorruption.WrapMessage("data chunk dereferenced as a node")
	}
	data, err := c.acc.GetChunk(s.ptr)
	if err != nil {
		return 0, err
	}
	child := &node{level: n.level - 1, onDisk: true}
	if err = decodeSlots(codec.NewBuffer(data), child); err != nil {
		return 0, err
	}
	child.length = child.sumLength()
	if child.length != s.length {
		return 0, status.ErrCorruption.WrapMessage("node %v holds %d bytes, expected %d", s.ptr.Box, child.length, s.length)
	}
	child.digest, child.hashed = s.ptr.Data, true
	s.child = c.add(child)
	return s.child, nil
}

// slotHash is the data hash fed to node splitters for some slot
func (c *Container) slotHash(s slot) (key.Hash, error) {
	if s.child == 0 {
		return s.ptr.Data, nil
	}
	return c.digestOf(s.child)
}

// digestOf computes the data hash of a node from all the data chunks below it
func (c *Container) digestOf(h handle) (key.Hash, error) {
	n := c.nodes[h]
	if n.hashed {
		return n.digest, nil
	}
	leaves, err := c.leavesOf(h, make([]key.Hash, 0, len(n.leaves)+1))
	if err != nil {
		return key.Zero, err
	}
	from := 0
	if n.sum != nil && hasPrefix(leaves, n.leaves) {
		from = len(n.leaves)
	} else {
		n.sum = chunkhash.NewNodeDigest()
	}
	for _, leaf := range leaves[from:] {
		n.sum.Add(leaf)
	}
	n.leaves = leaves
	n.digest, n.hashed = n.sum.Sum(), true
	return n.digest, nil
}

// leavesOf appends the data hashes of all the chunks below h
func (c *Container) leavesOf(h handle, leaves []key.Hash) ([]key.Hash, error) {
	n := c.nodes[h]
	if n.hashed && n.leaves != nil {
		return append(leaves, n.leaves...), nil
	}
	if n.level == leafLevel {
		for _, s := range n.slots {
			leaves = append(leaves, s.ptr.Data)
		}
		return leaves, nil
	}
	for i := range n.slots {
		child, err := c.load(h, i)
		if err != nil {
			return nil, err
		}
		if leaves, err = c.leavesOf(child, leaves); err != nil {
			return nil, err
		}
	}
	return leaves, nil
}

func hasPrefix(leaves, prefix []key.Hash) bool {
	if len(prefix) > len(leaves) {
		return false
	}
	for i := range prefix {
		if leaves[i] != prefix[i] {
			return false
		}
	}
	return true
}

// encode serializes a node. The root is prefixed by the tree level and the
// node splitter parameters.
func (c *Container) encode(n *node, root bool) ([]byte, error) {
	size := nodeHeaderSize + len(n.slots)*slotSize
	var params splitter.Params
	if root {
		var err error
		if params, err = splitter.Describe(c.split); err != nil {
			return nil, err
		}
		size += rootHeaderSize(params.Kind)
	}

	data := make([]byte, size)
	w := codec.NewBuffer(data)
	if root {
		w.PutBytes([]byte{byte(n.level), byte(params.Kind)})
		switch params.Kind {
		case splitter.KindFixed:
			w.Put(codec.Int32, uint64(params.BlockSize))
		case splitter.KindRabin:
			w.Put(codec.Int32, uint64(params.Target))
			w.Put(codec.Int32, uint64(params.Min))
			w.Put(codec.Int32, uint64(params.Max))
		}
	}
	w.Put(codec.Int32, uint64(len(n.slots)))
	for _, s := range n.slots {
		// the low bit flags packed chunks, which are never produced here
		w.Put(codec.Int64, uint64(s.length<<1))
		w.PutBytes(s.ptr.Data[:])
		w.PutBytes(s.ptr.Box[:])
	}
	return data, nil
}

func rootHeaderSize(kind splitter.Kind) int {
	if kind == splitter.KindRabin {
		return 2 + 3*4
	}
	return 2 + 4
}

// decodeRoot parses a root node and the parameters of its node splitter
func decodeRoot(data []byte) (*node, splitter.Params, error) {
	var params splitter.Params
	if len(data) < 2 {
		return nil, params, status.ErrCorruption.WrapMessage("root node too short")
	}
	r := codec.NewBuffer(data)
	head := r.Bytes(2)
	n := &node{level: int(head[0]), onDisk: true}
	params.Kind = splitter.Kind(head[1])
	if n.level < leafLevel {
		return nil, params, status.ErrCorruption.WrapMessage("root level %d", n.level)
	}
	if r.Remaining() < rootHeaderSize(params.Kind)-2 {
		return nil, params, status.ErrCorruption.WrapMessage("root header too short")
	}
	switch params.Kind {
	case splitter.KindFixed:
		params.BlockSize = int(r.Get(codec.Int32))
	case splitter.KindRabin:
		params.Target = int(r.Get(codec.Int32))
		params.Min = int(r.Get(codec.Int32))
		params.Max = int(r.Get(codec.Int32))
	default:
		return nil, params, status.ErrCorruption.WrapMessage("unknown node splitter kind %d", params.Kind)
	}
	if err := decodeSlots(r, n); err != nil {
		return nil, params, err
	}
	n.length = n.sumLength()
	return n, params, nil
}

func decodeSlots(r *codec.Buffer, n *node) error {
	if r.Remaining() < nodeHeaderSize {
		return status.ErrCorruption.WrapMessage("node too short")
	}
	count := int(r.Get(codec.Int32))
	if r.Remaining() != count*slotSize {
		return status.ErrCorruption.WrapMessage("node with %d slots holds %d bytes", count, r.Remaining())
	}
	n.slots = make([]slot, count)
	for i := range n.slots {
		v := r.Get(codec.Int64)
		if v&packedFlag != 0 {
			return status.ErrCorruption.WrapMessage("packed chunks are not supported")
		}
		n.slots[i].length = int64(v >> 1)
		copy(n.slots[i].ptr.Data[:], r.Bytes(key.Size))
		copy(n.slots[i].ptr.Box[:], r.Bytes(key.Size))
	}
	return nil
}
