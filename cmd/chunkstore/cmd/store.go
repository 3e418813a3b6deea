package cmd

import (
	"os"
	"path/filepath"

	"github.com/oneconcern/chunkstore/pkg/chunkstore"
	"github.com/oneconcern/chunkstore/pkg/dlogger"
	"github.com/oneconcern/chunkstore/pkg/index"
	"github.com/oneconcern/chunkstore/pkg/key"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// fs holds the pack and index files
var fs = afero.NewOsFs()

func storeExists() (bool, error) {
	return afero.Exists(fs, filepath.Join(config.Store.Dir, config.Store.Name+".pack"))
}

// openStore opens the configured store. When create is set, or when there
// is no store yet, a new one is created.
func openStore(create bool, reg prometheus.Registerer) (*chunkstore.Store, error) {
	algo, err := config.algorithm()
	if err != nil {
		return nil, err
	}
	tile, err := parseSize("store.tile", config.Store.Tile)
	if err != nil {
		return nil, err
	}
	opts := []chunkstore.Option{
		chunkstore.WithAlgorithm(algo),
		chunkstore.WithCacheSize(config.Store.Cache),
		chunkstore.WithTileSize(tile),
		chunkstore.WithRegisterer(reg),
		chunkstore.WithLogger(dlogger.Named(logger, "store")),
	}

	exists, err := storeExists()
	if err != nil {
		return nil, err
	}
	create = create || !exists

	switch config.Store.Index {
	case indexBTree, "":
	case indexBadger:
		dir := filepath.Join(config.Store.Dir, config.Store.Name+".badger")
		if create {
			if err = os.RemoveAll(dir); err != nil {
				return nil, err
			}
		}
		if err = os.MkdirAll(dir, 0700); err != nil {
			return nil, err
		}
		idx, err := index.OpenBadger(dir, key.Size, index.WithLogger(dlogger.Named(logger, "badger")))
		if err != nil {
			return nil, err
		}
		opts = append(opts, chunkstore.WithIndex(idx))
	default:
		return nil, errUnknownIndex(config.Store.Index)
	}

	if create {
		logger.Info("creating store", zap.String("dir", config.Store.Dir), zap.String("name", config.Store.Name))
		return chunkstore.Create(fs, config.Store.Dir, config.Store.Name, opts...)
	}
	return chunkstore.Open(fs, config.Store.Dir, config.Store.Name, opts...)
}

type errUnknownIndex string

func (e errUnknownIndex) Error() string {
	return "unknown index backend " + string(e) + ", expected btree or badger"
}
