package index

import (
	"github.com/oneconcern/chunkstore/pkg/index/status"
	"go.uber.org/zap"
)

// neighbour is the node next to another one at the same height, possibly
// under a different parent.
//
// anchor is the lowest common ancestor of both nodes and sep the index of the
// anchor key separating them.
type neighbour struct {
	node   *node
	anchor *node
	sep    int
}

// neighbour walks up the path of n until n's branch is not the extreme child
// in the requested direction, then descends the adjacent branch down to the
// height of n.
func (t *BTree) neighbour(n *node, right bool) (*neighbour, error) {
	for cur := n; cur.parent != nil; cur = cur.parent {
		p := cur.parent
		var idx, sep int
		switch {
		case right && cur.inParent < len(p.ptrs)-1:
			idx, sep = cur.inParent+1, cur.inParent
		case !right && cur.inParent > 0:
			idx, sep = cur.inParent-1, cur.inParent-1
		default:
			continue
		}

		sib, err := t.readChild(p, idx)
		if err != nil {
			return nil, err
		}
		for sib.height > n.height {
			next := 0
			if !right {
				next = len(sib.ptrs) - 1
			}
			if sib, err = t.readChild(sib, next); err != nil {
				return nil, err
			}
		}
		return &neighbour{node: sib, anchor: p, sep: sep}, nil
	}
	return nil, nil
}

// rebalance writes a node which just lost a key, borrowing from or merging
// with its neighbours as long as it is under-filled.
func (t *BTree) rebalance(n *node) error {
	for {
		if n.parent == nil {
			return t.rebalanceRoot(n)
		}
		if len(n.keys) >= t.minKeys() {
			if err := t.writeNode(n); err != nil {
				return err
			}
			return t.updateAncestors(n)
		}

		left, err := t.neighbour(n, false)
		if err != nil {
			return err
		}
		right, err := t.neighbour(n, true)
		if err != nil {
			return err
		}

		donor := left
		if donor == nil || right != nil && len(right.node.keys) > len(donor.node.keys) {
			donor = right
		}
		if donor == nil {
			return errEmptyParent(n)
		}
		if len(donor.node.keys) > t.minKeys() {
			return t.borrow(n, donor, donor == right)
		}

		// neighbours at the parent level are siblings
		sibling, receiver := right, false
		if n.inParent > 0 {
			sibling, receiver = left, true
		}
		if sibling == nil || sibling.anchor != n.parent {
			return errEmptyParent(n)
		}
		if receiver {
			err = t.merge(sibling.node, n, sibling.sep)
		} else {
			err = t.merge(n, sibling.node, sibling.sep)
		}
		if err != nil {
			return err
		}
		n = n.parent
	}
}

func errEmptyParent(n *node) error {
	return status.ErrEmptyNode.WrapMessage("node at height %d has no sibling", n.height)
}

// rebalanceRoot writes the root, dropping one level when it is an internal
// node left with a single child.
func (t *BTree) rebalanceRoot(n *node) error {
	switch {
	case !n.leaf() && len(n.keys) == 0:
		if n.tile != 0 {
			if err := t.tiles.free(n.tile); err != nil {
				return err
			}
		}
		t.rootTile = n.ptrs[0]
		t.depth--
		t.l.Debug("index root collapsed", zap.Int64("root", t.rootTile), zap.Int("depth", t.depth))
		return nil

	case n.leaf() && len(n.keys) == 0:
		if n.tile != 0 {
			if err := t.tiles.free(n.tile); err != nil {
				return err
			}
		}
		t.rootTile = 0
		return nil

	default:
		if err := t.writeNode(n); err != nil {
			return err
		}
		t.rootTile = n.tile
		return nil
	}
}

// borrow moves keys from a neighbour holding a surplus into n, until both
// hold the same number of keys give or take one.
func (t *BTree) borrow(n *node, donor *neighbour, fromRight bool) error {
	l, r := donor.node, n
	if fromRight {
		l, r = n, donor.node
	}
	a, s := donor.anchor, donor.sep

	switch {
	case n.leaf() && fromRight:
		for len(r.keys) > len(l.keys)+1 {
			l.keys = append(l.keys, r.keys[0])
			l.ptrs = insertPtr(l.ptrs, len(l.ptrs)-1, r.ptrs[0])
			r.keys = removeKey(r.keys, 0)
			r.ptrs = removePtr(r.ptrs, 0)
		}
		a.keys[s] = clone(r.keys[0])

	case n.leaf():
		for len(l.keys) > len(r.keys)+1 {
			last := len(l.keys) - 1
			r.keys = insertKey(r.keys, 0, l.keys[last])
			r.ptrs = insertPtr(r.ptrs, 0, l.ptrs[last])
			l.keys = l.keys[:last]
			l.ptrs = removePtr(l.ptrs, last)
		}
		a.keys[s] = clone(r.keys[0])

	case fromRight:
		// rotate through the anchor key
		for len(r.keys) > len(l.keys)+1 {
			l.keys = append(l.keys, a.keys[s])
			l.ptrs = append(l.ptrs, r.ptrs[0])
			a.keys[s] = r.keys[0]
			r.keys = removeKey(r.keys, 0)
			r.ptrs = removePtr(r.ptrs, 0)
		}

	default:
		for len(l.keys) > len(r.keys)+1 {
			last := len(l.keys) - 1
			r.keys = insertKey(r.keys, 0, a.keys[s])
			r.ptrs = insertPtr(r.ptrs, 0, l.ptrs[last+1])
			a.keys[s] = l.keys[last]
			l.keys = l.keys[:last]
			l.ptrs = l.ptrs[:last+1]
		}
	}

	if err := t.writeNode(r); err != nil {
		return err
	}
	if l.leaf() {
		l.ptrs[len(l.ptrs)-1] = r.tile
	}
	if err := t.writeNode(l); err != nil {
		return err
	}
	t.l.Debug("index keys borrowed", zap.Int64("left", l.tile), zap.Int64("right", r.tile), zap.Bool("fromRight", fromRight), zap.Int("height", n.height))
	return t.updateChains(l, r)
}

// updateChains rewrites the ancestors of two written nodes of the same height
// up to their common ancestor, then up to the root.
func (t *BTree) updateChains(l, r *node) error {
	for l.parent != r.parent {
		lp, rp := l.parent, r.parent
		lp.ptrs[l.inParent] = l.tile
		rp.ptrs[r.inParent] = r.tile
		if err := t.writeNode(lp); err != nil {
			return err
		}
		if err := t.writeNode(rp); err != nil {
			return err
		}
		l, r = lp, rp
	}
	a := l.parent
	a.ptrs[l.inParent] = l.tile
	a.ptrs[r.inParent] = r.tile
	if err := t.writeNode(a); err != nil {
		return err
	}
	return t.updateAncestors(a)
}

// merge appends r to its left sibling l and removes the separator s from
// their parent. The parent is left for the caller to rebalance.
func (t *BTree) merge(l, r *node, s int) error {
	p := l.parent
	if l.leaf() {
		l.ptrs = append(l.ptrs[:len(l.keys)], r.ptrs...)
		l.keys = append(l.keys, r.keys...)
	} else {
		l.keys = append(append(l.keys, p.keys[s]), r.keys...)
		l.ptrs = append(l.ptrs, r.ptrs...)
	}
	if r.tile != 0 {
		if err := t.tiles.free(r.tile); err != nil {
			return err
		}
	}
	p.keys = removeKey(p.keys, s)
	p.ptrs = removePtr(p.ptrs, s+1)
	t.l.Debug("index nodes merged", zap.Int64("left", l.tile), zap.Int64("right", r.tile), zap.Int("height", l.height))

	if len(l.keys) > t.maxKeys {
		right, median := l.split()
		if err := t.writeNode(right); err != nil {
			return err
		}
		if l.leaf() {
			l.ptrs[len(l.ptrs)-1] = right.tile
		}
		if err := t.writeNode(l); err != nil {
			return err
		}
		p.keys = insertKey(p.keys, s, median)
		p.ptrs = insertPtr(p.ptrs, s+1, right.tile)
	} else if err := t.writeNode(l); err != nil {
		return err
	}
	p.ptrs[s] = l.tile
	return nil
}
