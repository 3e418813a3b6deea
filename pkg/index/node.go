package index

import (
	"bytes"

	"github.com/oneconcern/chunkstore/pkg/codec"
	"github.com/oneconcern/chunkstore/pkg/index/status"
)

// node is the parsed content of a tile.
//
// Internal nodes hold len(keys)+1 child tiles. Leaves hold one value per key
// plus a trailing pointer to the next leaf.
//
// parent and inParent record the path taken from the root during the current
// operation. They are never persisted.
type node struct {
	tile     int64
	height   int // 0 for leaves
	writable bool

	parent   *node
	inParent int

	keys [][]byte
	ptrs []int64
}

func (n *node) leaf() bool {
	return n.height == 0
}

// childPosition is the index of the child covering key
func (n *node) childPosition(key []byte) int {
	for i, k := range n.keys {
		switch c := bytes.Compare(k, key); {
		case c > 0:
			return i
		case c == 0:
			return i + 1
		}
	}
	return len(n.keys)
}

// leafPosition is the index of the first key not lower than key
func (n *node) leafPosition(key []byte) (int, bool) {
	for i, k := range n.keys {
		if c := bytes.Compare(k, key); c >= 0 {
			return i, c == 0
		}
	}
	return len(n.keys), false
}

func (n *node) insertValue(pos int, key []byte, value int64) {
	n.keys = insertKey(n.keys, pos, key)
	if len(n.ptrs) == 0 {
		n.ptrs = []int64{value, 0}
		return
	}
	n.ptrs = insertPtr(n.ptrs, pos, value)
}

func (n *node) removeValue(pos int) {
	n.keys = removeKey(n.keys, pos)
	n.ptrs = removePtr(n.ptrs, pos)
}

// split moves the upper half of an overflowing node into a new node and
// returns it with the key to insert in the parent. A leaf keeps a copy of that
// key, an internal node hands it over.
func (n *node) split() (*node, []byte) {
	mid := len(n.keys) / 2
	right := &node{height: n.height, writable: true, parent: n.parent}
	median := n.keys[mid]

	if n.leaf() {
		right.keys = append([][]byte(nil), n.keys[mid:]...)
		right.ptrs = append([]int64(nil), n.ptrs[mid:]...)
		n.keys = append([][]byte(nil), n.keys[:mid]...)
		n.ptrs = append(append([]int64(nil), n.ptrs[:mid]...), 0)
		return right, clone(median)
	}

	right.keys = append([][]byte(nil), n.keys[mid+1:]...)
	right.ptrs = append([]int64(nil), n.ptrs[mid+1:]...)
	n.keys = append([][]byte(nil), n.keys[:mid]...)
	n.ptrs = append([]int64(nil), n.ptrs[:mid+1]...)
	return right, median
}

// encode lays out a node as deletedPointer | (pointer,key)* | trailingPointer,
// terminated by an empty key and a zero pointer when the tile is not full.
func (t *BTree) encode(n *node) ([]byte, error) {
	if len(n.keys) > t.maxKeys {
		return nil, status.ErrCorruption.WrapMessage("node with %d keys exceeds the tile capacity of %d", len(n.keys), t.maxKeys)
	}
	buf := make([]byte, t.tileSize)
	w := codec.NewBuffer(buf)
	w.Put(t.ptr, 0)
	for i, k := range n.keys {
		w.Put(t.ptr, uint64(n.ptrs[i]))
		w.PutBytes(k)
	}
	var trailing int64
	if len(n.ptrs) > len(n.keys) {
		trailing = n.ptrs[len(n.keys)]
	}
	w.Put(t.ptr, uint64(trailing))
	if len(n.keys) < t.maxKeys {
		w.PutBytes(make([]byte, t.hashSize))
		w.Put(t.ptr, 0)
	}
	return buf, nil
}

func (t *BTree) decode(buf []byte, n *node) {
	r := codec.NewBuffer(buf)
	r.Get(t.ptr) // deleted pointer, only meaningful on the free list
	first := int64(r.Get(t.ptr))
	if first == 0 {
		return
	}
	n.ptrs = append(n.ptrs, first)
	for i := 0; i < t.maxKeys; i++ {
		k := r.Bytes(t.hashSize)
		p := int64(r.Get(t.ptr))
		if p == 0 && isZero(k) {
			break
		}
		n.keys = append(n.keys, clone(k))
		n.ptrs = append(n.ptrs, p)
	}
}

func isZero(k []byte) bool {
	for _, b := range k {
		if b != 0 {
			return false
		}
	}
	return true
}

func clone(k []byte) []byte {
	return append([]byte(nil), k...)
}

func insertKey(keys [][]byte, pos int, k []byte) [][]byte {
	keys = append(keys, nil)
	copy(keys[pos+1:], keys[pos:])
	keys[pos] = k
	return keys
}

func removeKey(keys [][]byte, pos int) [][]byte {
	return append(keys[:pos], keys[pos+1:]...)
}

func insertPtr(ptrs []int64, pos int, p int64) []int64 {
	ptrs = append(ptrs, 0)
	copy(ptrs[pos+1:], ptrs[pos:])
	ptrs[pos] = p
	return ptrs
}

func removePtr(ptrs []int64, pos int) []int64 {
	return append(ptrs[:pos], ptrs[pos+1:]...)
}
