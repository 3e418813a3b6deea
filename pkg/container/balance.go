package container

import (
	"go.uber.org/zap"
)

func childPath(path []handle, h handle) []handle {
	p := make([]handle, len(path), len(path)+1)
	copy(p, path)
	return append(p, h)
}

// rebalance restores content defined node boundaries after the node at the
// end of path was modified, one level at a time up to the root.
func (c *Container) rebalance(path []handle) error {
	for depth := len(path); depth > 1; depth-- {
		if err := c.balanceLevel(path[:depth]); err != nil {
			return err
		}
	}
	for {
		right, err := c.balanceRoot()
		if err != nil {
			return err
		}
		if right == 0 {
			break
		}
		if err = c.balanceLevel([]handle{c.root, right}); err != nil {
			return err
		}
	}
	return c.collapseRoot()
}

// balanceLevel balances the node at the end of path, then moves right along
// its level as long as nodes were split, emptied or otherwise modified by the
// current operation.
func (c *Container) balanceLevel(path []handle) error {
	for path != nil {
		next, err := c.balanceNode(path)
		if err != nil {
			return err
		}
		if next == nil {
			nb, err := c.rightNeighbour(path, false)
			if err != nil {
				return err
			}
			if nb != nil && c.nodes[nb[len(nb)-1]].gen == c.gen {
				next = nb
			}
		}
		path = next
	}
	return nil
}

// balanceNode feeds the data hashes of the children of a node through the
// node splitter.
//
// A trigger before the last child splits the node, and the path to the new
// right sibling is returned. Without trigger, children are pulled one at a
// time from the right neighbours until the splitter triggers: when the
// neighbour still holds children, its path is returned.
func (c *Container) balanceNode(path []handle) ([]handle, error) {
	n := c.nodes[path[len(path)-1]]
	c.split.Reset()
	for i := range n.slots {
		h, err := c.slotHash(n.slots[i])
		if err != nil {
			return nil, err
		}
		if !c.split.Write(h[:]) {
			continue
		}
		if i == len(n.slots)-1 {
			return nil, nil
		}
		return c.splitAt(path, i+1), nil
	}

	nb, err := c.rightNeighbour(path, true)
	if err != nil {
		return nil, err
	}
	for nb != nil {
		m := c.nodes[nb[len(nb)-1]]
		var next []handle
		if len(m.slots) == 1 {
			if next, err = c.rightNeighbour(nb, true); err != nil {
				return nil, err
			}
		}

		s := m.slots[0]
		m.slots = m.slots[1:]
		n.slots = append(n.slots, s)
		h, err := c.slotHash(s)
		if err != nil {
			return nil, err
		}
		triggered := c.split.Write(h[:])

		emptied := len(m.slots) == 0
		if emptied {
			c.unlink(nb)
		} else {
			c.touch(nb)
		}
		c.touch(path)

		if triggered {
			if emptied {
				return nil, nil
			}
			return nb, nil
		}
		if emptied {
			nb = next
		}
	}
	return nil, nil
}

// splitAt moves the children of a node from index i to a new right sibling.
// A root node keeps its handle and becomes the parent of both halves.
func (c *Container) splitAt(path []handle, i int) []handle {
	h := path[len(path)-1]
	n := c.nodes[h]
	right := &node{level: n.level, slots: make([]slot, len(n.slots)-i)}
	copy(right.slots, n.slots[i:])
	right.length = right.sumLength()
	rh := c.add(right)

	if len(path) == 1 {
		left := &node{level: n.level, slots: make([]slot, i)}
		copy(left.slots, n.slots[:i])
		left.length = left.sumLength()
		lh := c.add(left)
		n.slots = []slot{{child: lh, length: left.length}, {child: rh, length: right.length}}
		n.level++
		c.touch([]handle{h, lh})
		c.touch([]handle{h, rh})
		c.l.Debug("root split", zap.Int("levels", n.level))
		return []handle{h, rh}
	}

	n.slots = n.slots[:i:i]
	parent := path[len(path)-2]
	p := c.nodes[parent]
	j := c.indexOf(parent, h) + 1
	p.slots = append(p.slots, slot{})
	copy(p.slots[j+1:], p.slots[j:])
	p.slots[j] = slot{child: rh, length: right.length}

	rightPath := childPath(path[:len(path)-1], rh)
	c.touch(path)
	c.touch(rightPath)
	c.l.Debug("node split", zap.Int("level", n.level), zap.Int("left", len(n.slots)), zap.Int("right", len(right.slots)))
	return rightPath
}

// balanceRoot splits the root when its splitter triggers before the last
// child. It returns the right half, or 0.
func (c *Container) balanceRoot() (handle, error) {
	n := c.nodes[c.root]
	c.split.Reset()
	for i := range n.slots {
		h, err := c.slotHash(n.slots[i])
		if err != nil {
			return 0, err
		}
		if !c.split.Write(h[:]) {
			continue
		}
		if i == len(n.slots)-1 {
			return 0, nil
		}
		right := c.splitAt([]handle{c.root}, i+1)
		return right[1], nil
	}
	return 0, nil
}

// collapseRoot replaces a root holding a single node by that node
func (c *Container) collapseRoot() error {
	root := c.nodes[c.root]
	for root.level > leafLevel && len(root.slots) == 1 {
		child, err := c.load(c.root, 0)
		if err != nil {
			return err
		}
		n := c.nodes[child]
		root.slots = n.slots
		root.level = n.level
		c.drop(child)
		c.touch([]handle{c.root})
		c.l.Debug("root collapsed", zap.Int("levels", root.level))
	}
	return nil
}

// rightNeighbour returns the path to the node following the end of path on
// the same level, or nil. Unless load is set, only nodes already in memory
// are considered.
func (c *Container) rightNeighbour(path []handle, load bool) ([]handle, error) {
	depth := len(path) - 2
	for ; depth >= 0; depth-- {
		i := c.indexOf(path[depth], path[depth+1])
		if i < len(c.nodes[path[depth]].slots)-1 {
			break
		}
	}
	if depth < 0 {
		return nil, nil
	}

	nb := make([]handle, depth+1, len(path))
	copy(nb, path[:depth+1])
	i := c.indexOf(path[depth], path[depth+1]) + 1
	for len(nb) < len(path) {
		h := nb[len(nb)-1]
		s := c.nodes[h].slots[i]
		if s.child == 0 && !load {
			return nil, nil
		}
		child, err := c.load(h, i)
		if err != nil {
			return nil, err
		}
		nb = append(nb, child)
		i = 0
	}
	return nb, nil
}
