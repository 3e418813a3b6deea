package index

import (
	"bytes"

	"github.com/oneconcern/chunkstore/pkg/index/status"
)

// Stats describes the content of a BTree
type Stats struct {
	Depth      int   `json:"depth"`
	Keys       int64 `json:"keys"`
	TileSize   int   `json:"tileSize"`
	MaxKeys    int   `json:"maxKeys"`
	LiveTiles  int64 `json:"liveTiles"`
	FreeTiles  int64 `json:"freeTiles"`
	Pending    int64 `json:"pendingTiles"`
	TotalTiles int64 `json:"totalTiles"`
}

// Stats walks the whole tree.
//
// Right after a commit, LiveTiles + FreeTiles == TotalTiles. Tiles released
// since the last commit are counted as Pending.
func (t *BTree) Stats() (Stats, error) {
	st := Stats{
		Depth:      t.depth,
		TileSize:   t.tileSize,
		MaxKeys:    t.maxKeys,
		Pending:    t.tiles.pending,
		TotalTiles: t.tiles.count,
	}
	free, err := t.tiles.freeCount()
	if err != nil {
		return st, err
	}
	st.FreeTiles = free

	err = t.walkNodes(func(n *node) error {
		st.LiveTiles++
		if n.leaf() {
			st.Keys += int64(len(n.keys))
		}
		return nil
	})
	return st, err
}

// Walk visits all keys in ascending order
func (t *BTree) Walk(fn func(key []byte, value int64) error) error {
	return t.walkNodes(func(n *node) error {
		if !n.leaf() {
			return nil
		}
		for i, k := range n.keys {
			if err := fn(k, n.ptrs[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// walkNodes visits the nodes depth first, parents before children
func (t *BTree) walkNodes(fn func(*node) error) error {
	if t.closed {
		return status.ErrClosed
	}
	if t.rootTile == 0 {
		return nil
	}
	root, err := t.root()
	if err != nil {
		return err
	}
	var visit func(*node) error
	visit = func(n *node) error {
		if err := fn(n); err != nil {
			return err
		}
		if n.leaf() {
			return nil
		}
		for i := range n.ptrs {
			child, err := t.readChild(n, i)
			if err != nil {
				return err
			}
			if err := visit(child); err != nil {
				return err
			}
		}
		return nil
	}
	return visit(root)
}

// Verify checks the structure of the tree: keys ordered within their
// separators, every node but the root at least half full, all leaves at the
// same depth.
func (t *BTree) Verify() error {
	if t.rootTile == 0 {
		return nil
	}
	root, err := t.root()
	if err != nil {
		return err
	}
	return t.verify(root, nil, nil)
}

func (t *BTree) verify(n *node, lower, upper []byte) error {
	if n.parent != nil && len(n.keys) < t.minKeys() {
		return status.ErrCorruption.WrapMessage("tile %d holds %d keys, less than %d", n.tile, len(n.keys), t.minKeys())
	}
	if len(n.ptrs) != len(n.keys)+1 && !(n.leaf() && len(n.keys) == 0) {
		return status.ErrCorruption.WrapMessage("tile %d holds %d pointers for %d keys", n.tile, len(n.ptrs), len(n.keys))
	}
	for i, k := range n.keys {
		if i > 0 && bytes.Compare(n.keys[i-1], k) >= 0 {
			return status.ErrCorruption.WrapMessage("tile %d: keys out of order at %d", n.tile, i)
		}
		if lower != nil && bytes.Compare(k, lower) < 0 || upper != nil && bytes.Compare(k, upper) >= 0 {
			return status.ErrCorruption.WrapMessage("tile %d: key %x outside of [%x, %x)", n.tile, k, lower, upper)
		}
	}
	if n.leaf() {
		return nil
	}
	for i := range n.ptrs {
		lo, hi := lower, upper
		if i > 0 {
			lo = n.keys[i-1]
		}
		if i < len(n.keys) {
			hi = n.keys[i]
		}
		child, err := t.readChild(n, i)
		if err != nil {
			return err
		}
		if err := t.verify(child, lo, hi); err != nil {
			return err
		}
	}
	return nil
}
