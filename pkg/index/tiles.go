package index

import (
	"github.com/oneconcern/chunkstore/pkg/index/status"
	"go.uber.org/zap"
)

// tileAllocator hands out tiles of the index file.
//
// Freed tiles are chained through their first pointer slot, which node
// decoding ignores. Tiles freed since the last commit are kept on a pending
// chain and only become reusable once the chain is spliced at commit: a crash
// in between leaks them but never hands out a tile still referenced by the
// committed tree.
type tileAllocator struct {
	t *BTree

	count    int64 // tiles in the file
	freeHead int64 // reusable tiles

	pendingHead int64
	pendingTail int64
	pending     int64
}

func (a *tileAllocator) alloc() (int64, error) {
	if a.freeHead != 0 {
		tile := a.freeHead
		next, err := a.readLink(tile)
		if err != nil {
			return 0, err
		}
		a.freeHead = next
		return tile, nil
	}

	tile := a.count + 1
	if err := a.t.f.Truncate(a.t.tileOffset(tile + 1)); err != nil {
		return 0, err
	}
	a.count = tile
	return tile, nil
}

func (a *tileAllocator) free(tile int64) error {
	if tile <= 0 || tile > a.count {
		return status.ErrInvalidPointer.WrapMessage("cannot free tile %d", tile)
	}
	if err := a.writeLink(tile, a.pendingHead); err != nil {
		return err
	}
	a.pendingHead = tile
	if a.pendingTail == 0 {
		a.pendingTail = tile
	}
	a.pending++
	return nil
}

func (a *tileAllocator) commit() error {
	if a.pendingTail == 0 {
		return nil
	}
	if err := a.writeLink(a.pendingTail, a.freeHead); err != nil {
		return err
	}
	a.t.l.Debug("free tiles released", zap.Int64("count", a.pending), zap.Int64("head", a.pendingHead))
	a.freeHead = a.pendingHead
	a.pendingHead, a.pendingTail, a.pending = 0, 0, 0
	return nil
}

// freeCount walks the free list
func (a *tileAllocator) freeCount() (int64, error) {
	var n int64
	for tile := a.freeHead; tile != 0; n++ {
		if n > a.count {
			return 0, status.ErrCorruption.WrapMessage("free list loops")
		}
		next, err := a.readLink(tile)
		if err != nil {
			return 0, err
		}
		tile = next
	}
	return n, nil
}

func (a *tileAllocator) readLink(tile int64) (int64, error) {
	if tile <= 0 || tile > a.count {
		return 0, status.ErrInvalidPointer.WrapMessage("free list points to tile %d", tile)
	}
	buf := make([]byte, a.t.ptr.Size())
	if err := a.t.readAt(buf, a.t.tileOffset(tile)); err != nil {
		return 0, err
	}
	return int64(a.t.ptr.Get(buf)), nil
}

func (a *tileAllocator) writeLink(tile, next int64) error {
	buf := make([]byte, a.t.ptr.Size())
	a.t.ptr.Put(buf, uint64(next))
	_, err := a.t.f.WriteAt(buf, a.t.tileOffset(tile))
	return err
}
