// Package index maps content hashes to 64 bit locations.
//
// The BTree backend is a B+Tree persisted in fixed size tiles; the Badger
// backend stores the same mapping in a badger key-value store.
package index

// ChunkIndex is a persistent map from a hash to a location.
//
// All backends honor the same contract:
//   - Put fails with status.ErrDuplicateKey if the key is already present
//   - Get and Remove report a missing key without an error
//   - changes are durable after Commit. The BTree backend only makes them
//     durable there; the Badger backend commits every operation on its own,
//     so its changes survive a Close without Commit.
type ChunkIndex interface {
	Put(key []byte, value int64) error
	Get(key []byte) (int64, bool, error)
	Remove(key []byte) (bool, error)
	Commit() error
	Close() error
}

var (
	_ ChunkIndex = &BTree{}
	_ ChunkIndex = &Badger{}
)
