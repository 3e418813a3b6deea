// Package chunkstore stores chunks keyed by their hash in a pack file, with
// an index from hash to pack offset.
package chunkstore

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/oneconcern/chunkstore/pkg/chunkstore/status"
	"github.com/oneconcern/chunkstore/pkg/dlogger"
	"github.com/oneconcern/chunkstore/pkg/index"
	indexstatus "github.com/oneconcern/chunkstore/pkg/index/status"
	"github.com/oneconcern/chunkstore/pkg/key"
	"github.com/oneconcern/chunkstore/pkg/pack"
	packstatus "github.com/oneconcern/chunkstore/pkg/pack/status"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Store composes a pack file and an index.
//
// Put appends to the pack file before indexing the record: a crash in
// between leaves an unreferenced record, never an index entry without data.
// The store does not deduplicate by itself, see Transaction.
type Store struct {
	name      string
	idx       index.ChunkIndex
	pack      *pack.File
	tileSize  int
	cacheSize int
	algo      key.Algorithm
	reg       prometheus.Registerer
	metrics   *metrics

	mu sync.Mutex
	tx *Transaction

	closed bool
	l      *zap.Logger
}

func newStore(name string, opts []Option) (*Store, error) {
	s := &Store{
		name:      name,
		tileSize:  index.DefaultTileSize,
		cacheSize: DefaultCacheSize,
		algo:      key.SHA256,
		l:         zap.NewNop(),
	}
	for _, apply := range opts {
		apply(s)
	}
	m, err := newMetrics(name, s.reg)
	if err != nil {
		return nil, err
	}
	s.metrics = m
	return s, nil
}

// Create a new store in dir, made of the files <name>.idx and <name>.pack.
// Existing files are truncated.
func Create(fs afero.Fs, dir, name string, opts ...Option) (*Store, error) {
	s, err := newStore(name, opts)
	if err != nil {
		return nil, err
	}
	if err = fs.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	if s.idx == nil {
		f, err := fs.OpenFile(filepath.Join(dir, name+indexExt), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
		if err != nil {
			return nil, err
		}
		tree, err := index.CreateBTree(f, key.Size, s.tileSize, index.WithLogger(dlogger.Named(s.l, "index")))
		if err != nil {
			return nil, multierr.Append(err, f.Close())
		}
		s.idx = tree
	}

	f, err := fs.OpenFile(filepath.Join(dir, name+packExt), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, multierr.Append(err, s.idx.Close())
	}
	if s.pack, err = pack.Create(f, key.Size, pack.WithLogger(dlogger.Named(s.l, "pack"))); err != nil {
		return nil, multierr.Combine(err, f.Close(), s.idx.Close())
	}
	if err = s.Commit(); err != nil {
		return nil, multierr.Append(err, s.Close())
	}
	s.l.Info("chunk store created", zap.String("dir", dir), zap.String("name", name))
	return s, nil
}

// Open an existing store
func Open(fs afero.Fs, dir, name string, opts ...Option) (*Store, error) {
	s, err := newStore(name, opts)
	if err != nil {
		return nil, err
	}

	if s.idx == nil {
		f, err := fs.OpenFile(filepath.Join(dir, name+indexExt), os.O_RDWR, 0600)
		if err != nil {
			return nil, err
		}
		tree, err := index.OpenBTree(f, index.WithLogger(dlogger.Named(s.l, "index")))
		if err != nil {
			return nil, multierr.Append(err, f.Close())
		}
		s.idx = tree
	}

	f, err := fs.OpenFile(filepath.Join(dir, name+packExt), os.O_RDWR, 0600)
	if err != nil {
		return nil, multierr.Append(err, s.idx.Close())
	}
	if s.pack, err = pack.Open(f, pack.WithLogger(dlogger.Named(s.l, "pack"))); err != nil {
		return nil, multierr.Combine(err, f.Close(), s.idx.Close())
	}
	if s.pack.HashSize() != key.Size {
		return nil, multierr.Append(
			packstatus.ErrHashSize.WrapMessage("pack file with hashes of %d bytes", s.pack.HashSize()),
			s.Close(),
		)
	}
	s.l.Debug("chunk store opened", zap.String("dir", dir), zap.String("name", name), zap.Int64("packSize", s.pack.Size()))
	return s, nil
}

// Put a chunk under its hash. The hash must not be in the store yet: a
// duplicate is rejected before anything is written to the pack file.
func (s *Store) Put(hash key.Hash, data []byte) error {
	if s.closed {
		return status.ErrClosed
	}
	_, found, err := s.idx.Get(hash[:])
	if err != nil {
		return err
	}
	if found {
		return indexstatus.ErrDuplicateKey.WrapMessage("chunk %v", hash)
	}
	offset, err := s.pack.Put(hash[:], data)
	if err != nil {
		return err
	}
	if err = s.idx.Put(hash[:], offset); err != nil {
		return err
	}
	s.metrics.puts.Inc()
	s.metrics.bytes.Add(float64(len(data)))
	return nil
}

// Get a chunk. A missing chunk yields nil data and no error.
func (s *Store) Get(hash key.Hash) ([]byte, error) {
	if s.closed {
		return nil, status.ErrClosed
	}
	offset, found, err := s.idx.Get(hash[:])
	if err != nil {
		return nil, err
	}
	if !found {
		s.metrics.gets.WithLabelValues(resultMiss).Inc()
		return nil, nil
	}
	data, err := s.pack.Get(offset, hash[:])
	if err != nil {
		return nil, err
	}
	s.metrics.gets.WithLabelValues(resultHit).Inc()
	return data, nil
}

// Has the store some chunk?
func (s *Store) Has(hash key.Hash) (bool, error) {
	if s.closed {
		return false, status.ErrClosed
	}
	_, found, err := s.idx.Get(hash[:])
	return found, err
}

// Commit the index, then flush the pack file to disk
func (s *Store) Commit() error {
	if s.closed {
		return status.ErrClosed
	}
	if err := s.idx.Commit(); err != nil {
		return err
	}
	return s.pack.Sync()
}

// Close the store without committing
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return multierr.Combine(s.idx.Close(), s.pack.Close())
}

// Algorithm used to hash chunks in transactions
func (s *Store) Algorithm() key.Algorithm {
	return s.algo
}

// Stats of the store
type Stats struct {
	Name      string       `json:"name"`
	Chunks    int64        `json:"chunks"`
	PackBytes int64        `json:"packBytes"`
	Index     *index.Stats `json:"index,omitempty"`
}

type walker interface {
	Walk(func(key []byte, value int64) error) error
}

// Stats counts the chunks of the store. B+Tree indexes report their tiles too.
func (s *Store) Stats() (Stats, error) {
	st := Stats{Name: s.name}
	if s.closed {
		return st, status.ErrClosed
	}
	st.PackBytes = s.pack.Size()

	if tree, ok := s.idx.(*index.BTree); ok {
		is, err := tree.Stats()
		if err != nil {
			return st, err
		}
		st.Index = &is
		st.Chunks = is.Keys
		return st, nil
	}
	if w, ok := s.idx.(walker); ok {
		err := w.Walk(func(_ []byte, _ int64) error {
			st.Chunks++
			return nil
		})
		return st, err
	}
	return st, nil
}

// Walk visits the hashes of all chunks in ascending order, when the index supports it
func (s *Store) Walk(fn func(hash key.Hash) error) error {
	w, ok := s.idx.(walker)
	if !ok {
		return nil
	}
	return w.Walk(func(k []byte, _ int64) error {
		h, err := key.New(k)
		if err != nil {
			return err
		}
		return fn(h)
	})
}
