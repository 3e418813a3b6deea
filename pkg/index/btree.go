package index

import (
	"io"

	"github.com/oneconcern/chunkstore/pkg/codec"
	"github.com/oneconcern/chunkstore/pkg/index/status"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	// Version of the index file format
	Version = 1

	// DefaultTileSize is the tile size used by the chunk store
	DefaultTileSize = 1024
)

// BTree is a B+Tree stored in fixed size tiles of a file.
//
// The file starts with a header {version:int16, hashSize:int16, tileSize:int32,
// rootTile, depth:int16, freeList} followed by tiles numbered from 1.
//
// Nodes are copy-on-write: a node read from the file is written to a new tile
// and its previous tile is released. The header is only written by Commit, so
// the file always describes the tree as of the last commit.
type BTree struct {
	f        afero.File
	ptr      codec.Codec
	hashSize int
	tileSize int
	maxKeys  int

	rootTile int64
	depth    int
	tiles    *tileAllocator

	closed bool
	l      *zap.Logger
}

func newBTree(f afero.File, opts []Option) *BTree {
	o := defaultOptions(opts)
	t := &BTree{
		f:     f,
		ptr:   o.ptr,
		depth: 1,
		l:     o.l,
	}
	t.tiles = &tileAllocator{t: t}
	return t
}

// CreateBTree initializes an empty index on f, discarding any previous content
func CreateBTree(f afero.File, hashSize, tileSize int, opts ...Option) (*BTree, error) {
	t := newBTree(f, opts)
	if hashSize <= 0 || uint64(hashSize) > codec.Int16.Max() {
		return nil, status.ErrInvalidKey.WrapMessage("invalid hash size %d", hashSize)
	}
	t.hashSize = hashSize
	if err := t.setTileSize(tileSize); err != nil {
		return nil, err
	}
	if err := f.Truncate(0); err != nil {
		return nil, err
	}
	if err := t.writeHeader(); err != nil {
		return nil, err
	}
	t.l.Debug("index created", zap.Int("hashSize", hashSize), zap.Int("tileSize", tileSize), zap.Int("maxKeys", t.maxKeys))
	return t, nil
}

// OpenBTree opens an index created by CreateBTree
func OpenBTree(f afero.File, opts ...Option) (*BTree, error) {
	t := newBTree(f, opts)
	header := make([]byte, t.headerSize())
	if err := t.readAt(header, 0); err != nil {
		return nil, err
	}
	r := codec.NewBuffer(header)
	if v := r.Get(codec.Int16); v != Version {
		return nil, status.ErrVersion.WrapMessage("version %d", v)
	}
	t.hashSize = int(r.Get(codec.Int16))
	tileSize := int(r.Get(codec.Int32))
	t.rootTile = int64(r.Get(t.ptr))
	t.depth = int(r.Get(codec.Int16))
	t.tiles.freeHead = int64(r.Get(t.ptr))
	if t.hashSize == 0 || t.depth == 0 {
		return nil, status.ErrCorruption.WrapMessage("invalid header")
	}
	if err := t.setTileSize(tileSize); err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	data := info.Size() - int64(t.headerSize())
	if data < 0 || data%int64(t.tileSize) != 0 {
		return nil, status.ErrCorruption.WrapMessage("unexpected file size %d for tiles of %d bytes", info.Size(), t.tileSize)
	}
	t.tiles.count = data / int64(t.tileSize)
	if t.rootTile > t.tiles.count || t.tiles.freeHead > t.tiles.count {
		return nil, status.ErrInvalidPointer.WrapMessage("header points beyond the last tile %d", t.tiles.count)
	}
	t.l.Debug("index opened", zap.Int64("root", t.rootTile), zap.Int("depth", t.depth), zap.Int64("tiles", t.tiles.count))
	return t, nil
}

func (t *BTree) setTileSize(tileSize int) error {
	if tileSize <= 0 || uint64(tileSize) > codec.Int32.Max()>>1 {
		return status.ErrTileSize.WrapMessage("tile size %d", tileSize)
	}
	t.tileSize = tileSize
	t.maxKeys = (tileSize - 2*t.ptr.Size()) / (t.ptr.Size() + t.hashSize)
	if t.maxKeys < 2 {
		return status.ErrTileSize.WrapMessage("tile size %d holds %d keys of %d bytes, at least 2 are required", tileSize, t.maxKeys, t.hashSize)
	}
	return nil
}

func (t *BTree) headerSize() int {
	return 2 + 2 + 4 + t.ptr.Size() + 2 + t.ptr.Size()
}

func (t *BTree) tileOffset(tile int64) int64 {
	return int64(t.headerSize()) + (tile-1)*int64(t.tileSize)
}

func (t *BTree) writeHeader() error {
	header := make([]byte, t.headerSize())
	w := codec.NewBuffer(header)
	w.Put(codec.Int16, Version)
	w.Put(codec.Int16, uint64(t.hashSize))
	w.Put(codec.Int32, uint64(t.tileSize))
	w.Put(t.ptr, uint64(t.rootTile))
	w.Put(codec.Int16, uint64(t.depth))
	w.Put(t.ptr, uint64(t.tiles.freeHead))
	_, err := t.f.WriteAt(header, 0)
	return err
}

func (t *BTree) readAt(b []byte, offset int64) error {
	n, err := t.f.ReadAt(b, offset)
	if n == len(b) {
		return nil
	}
	if err == nil || err == io.EOF {
		return status.ErrCorruption.WrapMessage("short read of %d bytes at offset %d", n, offset).Wrap(io.ErrUnexpectedEOF)
	}
	return err
}

// HashSize is the size of the keys
func (t *BTree) HashSize() int {
	return t.hashSize
}

// MaxKeys is the number of keys a tile holds
func (t *BTree) MaxKeys() int {
	return t.maxKeys
}

// Depth of the tree, 1 when the root is a leaf
func (t *BTree) Depth() int {
	return t.depth
}

// Commit makes all changes since the last commit durable: tiles released
// since then become reusable and the header is rewritten.
func (t *BTree) Commit() error {
	if t.closed {
		return status.ErrClosed
	}
	if err := t.tiles.commit(); err != nil {
		return err
	}
	if err := t.writeHeader(); err != nil {
		return err
	}
	t.l.Debug("index committed", zap.Int64("root", t.rootTile), zap.Int("depth", t.depth))
	return t.f.Sync()
}

// Close the index file. Uncommitted changes are not persisted in the header.
func (t *BTree) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	return t.f.Close()
}

// Get the value stored for key
func (t *BTree) Get(key []byte) (int64, bool, error) {
	if err := t.checkKey(key); err != nil {
		return 0, false, err
	}
	leaf, pos, found, err := t.find(key)
	if err != nil || !found {
		return 0, false, err
	}
	return leaf.ptrs[pos], true, nil
}

// Put inserts a new key. Existing keys are never replaced.
func (t *BTree) Put(key []byte, value int64) error {
	if err := t.checkKey(key); err != nil {
		return err
	}
	if value <= 0 || uint64(value) > t.ptr.Max() {
		return status.ErrInvalidValue.WrapMessage("%d", value)
	}
	leaf, pos, found, err := t.find(key)
	if err != nil {
		return err
	}
	if found {
		return status.ErrDuplicateKey.WrapMessage("%x", key)
	}
	leaf.insertValue(pos, clone(key), value)
	return t.insert(leaf)
}

// Remove a key, reporting whether it was present
func (t *BTree) Remove(key []byte) (bool, error) {
	if err := t.checkKey(key); err != nil {
		return false, err
	}
	leaf, pos, found, err := t.find(key)
	if err != nil || !found {
		return false, err
	}
	leaf.removeValue(pos)
	return true, t.rebalance(leaf)
}

func (t *BTree) checkKey(key []byte) error {
	if t.closed {
		return status.ErrClosed
	}
	if len(key) != t.hashSize {
		return status.ErrInvalidKey.WrapMessage("got %d bytes, expected %d", len(key), t.hashSize)
	}
	if isZero(key) {
		return status.ErrInvalidKey.WrapMessage("the zero key is reserved")
	}
	return nil
}

func (t *BTree) root() (*node, error) {
	if t.rootTile == 0 {
		return &node{height: t.depth - 1, writable: true}, nil
	}
	return t.readNode(t.rootTile, nil, 0, t.depth-1)
}

func (t *BTree) readNode(tile int64, parent *node, inParent, height int) (*node, error) {
	if tile <= 0 || tile > t.tiles.count {
		return nil, status.ErrInvalidPointer.WrapMessage("tile %d", tile)
	}
	buf := make([]byte, t.tileSize)
	if err := t.readAt(buf, t.tileOffset(tile)); err != nil {
		return nil, err
	}
	n := &node{tile: tile, height: height, parent: parent, inParent: inParent}
	t.decode(buf, n)
	if len(n.keys) == 0 && (height > 0 || parent != nil) {
		return nil, status.ErrEmptyNode.WrapMessage("tile %d at height %d", tile, height)
	}
	return n, nil
}

func (t *BTree) readChild(parent *node, index int) (*node, error) {
	return t.readNode(parent.ptrs[index], parent, index, parent.height-1)
}

// writeNode stores a node. A node loaded from the file moves to a new tile.
func (t *BTree) writeNode(n *node) error {
	buf, err := t.encode(n)
	if err != nil {
		return err
	}
	if !n.writable {
		if n.tile != 0 {
			if err := t.tiles.free(n.tile); err != nil {
				return err
			}
		}
		n.tile = 0
		n.writable = true
	}
	if n.tile == 0 {
		if n.tile, err = t.tiles.alloc(); err != nil {
			return err
		}
	}
	_, err = t.f.WriteAt(buf, t.tileOffset(n.tile))
	return err
}

// find descends to the leaf owning key
func (t *BTree) find(key []byte) (*node, int, bool, error) {
	n, err := t.root()
	if err != nil {
		return nil, 0, false, err
	}
	for !n.leaf() {
		if len(n.keys) == 0 {
			return nil, 0, false, status.ErrEmptyNode.WrapMessage("root at depth %d", t.depth)
		}
		if n, err = t.readChild(n, n.childPosition(key)); err != nil {
			return nil, 0, false, err
		}
	}
	pos, found := n.leafPosition(key)
	return n, pos, found, nil
}

// updateAncestors rewrites the path from n to the root so that it points to
// the current tiles.
func (t *BTree) updateAncestors(n *node) error {
	for n.parent != nil {
		p := n.parent
		p.ptrs[n.inParent] = n.tile
		if err := t.writeNode(p); err != nil {
			return err
		}
		n = p
	}
	t.rootTile = n.tile
	return nil
}

// insert writes a node which just received a key, splitting it up to the root
// as long as it overflows.
func (t *BTree) insert(n *node) error {
	for len(n.keys) > t.maxKeys {
		right, median := n.split()
		parent := n.parent
		if parent == nil {
			parent = &node{height: n.height + 1, writable: true, ptrs: []int64{0}}
			n.parent, n.inParent = parent, 0
			right.parent = parent
			t.depth++
		}
		right.inParent = n.inParent + 1

		if err := t.writeNode(right); err != nil {
			return err
		}
		if n.leaf() {
			n.ptrs[len(n.ptrs)-1] = right.tile
		}
		if err := t.writeNode(n); err != nil {
			return err
		}
		t.l.Debug("index node split", zap.Int64("left", n.tile), zap.Int64("right", right.tile), zap.Int("height", n.height))

		parent.ptrs[n.inParent] = n.tile
		parent.keys = insertKey(parent.keys, n.inParent, median)
		parent.ptrs = insertPtr(parent.ptrs, n.inParent+1, right.tile)
		n = parent
	}
	if err := t.writeNode(n); err != nil {
		return err
	}
	return t.updateAncestors(n)
}

func (t *BTree) minKeys() int {
	return t.maxKeys / 2
}
