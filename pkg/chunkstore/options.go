package chunkstore

import (
	"github.com/oneconcern/chunkstore/pkg/index"
	"github.com/oneconcern/chunkstore/pkg/key"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	// DefaultCacheSize is the number of chunks kept by an accessor read cache
	DefaultCacheSize = 256

	indexExt = ".idx"
	packExt  = ".pack"
)

// Option configures a store
type Option func(*Store)

// WithIndex replaces the default B+Tree index by another backend. The store
// owns the index and closes it.
func WithIndex(idx index.ChunkIndex) Option {
	return func(s *Store) {
		s.idx = idx
	}
}

// WithTileSize sets the tile size of a new B+Tree index (default: 1024)
func WithTileSize(size int) Option {
	return func(s *Store) {
		if size > 0 {
			s.tileSize = size
		}
	}
}

// WithCacheSize sets the number of chunks cached by accessors (default: 256)
func WithCacheSize(size int) Option {
	return func(s *Store) {
		if size > 0 {
			s.cacheSize = size
		}
	}
}

// WithAlgorithm sets the hash algorithm of chunks put through transactions (default: sha256)
func WithAlgorithm(algo key.Algorithm) Option {
	return func(s *Store) {
		if algo != "" {
			s.algo = algo
		}
	}
}

// WithRegisterer registers the store metrics
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Store) {
		s.reg = reg
	}
}

// WithLogger sets a logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.l = l
		}
	}
}
