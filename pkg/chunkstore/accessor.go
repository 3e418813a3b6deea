package chunkstore

import (
	lru "github.com/hashicorp/golang-lru"
	"github.com/oneconcern/chunkstore/pkg/chunkstore/status"
	"github.com/oneconcern/chunkstore/pkg/key"
)

// Accessor resolves and stores container chunks within a transaction.
// Chunks are read by box hash and kept in an LRU cache.
type Accessor struct {
	tx    *Transaction
	cache *lru.Cache
}

// NewAccessor for some transaction. A cache size of 0 picks the size
// configured on the store.
func NewAccessor(tx *Transaction, cacheSize int) (*Accessor, error) {
	if cacheSize <= 0 {
		cacheSize = tx.s.cacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	return &Accessor{tx: tx, cache: cache}, nil
}

// GetChunk returns a copy of the stored bytes of p.Box
func (a *Accessor) GetChunk(p key.Pointer) ([]byte, error) {
	if v, ok := a.cache.Get(p.Box); ok {
		return clone(v.([]byte)), nil
	}
	data, err := a.tx.Get(p.Box)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, status.ErrNotFound.WrapMessage("box %v", p.Box)
	}
	a.cache.Add(p.Box, data)
	return clone(data), nil
}

// PutChunk stores data and returns its box hash. The accessor keeps its own
// copy of data: the caller may reuse the buffer.
func (a *Accessor) PutChunk(data []byte) (key.Hash, bool, error) {
	box, present, err := a.tx.Put(data)
	if err != nil {
		return key.Zero, false, err
	}
	a.cache.Add(box, clone(data))
	return box, present, nil
}

func clone(data []byte) []byte {
	return append([]byte(nil), data...)
}

// ReleaseChunk drops a chunk from the cache. Stored chunks are never
// collected.
func (a *Accessor) ReleaseChunk(box key.Hash) error {
	a.cache.Remove(box)
	return nil
}
