package cmd

import (
	"fmt"

	"github.com/docker/go-units"
	"github.com/oneconcern/chunkstore/pkg/chunkhash"
	"github.com/oneconcern/chunkstore/pkg/key"
	"github.com/oneconcern/chunkstore/pkg/splitter"
	"github.com/spf13/viper"
)

const (
	indexBTree  = "btree"
	indexBadger = "badger"
)

// Config describes the CLI configuration, read from chunkstore.yaml,
// CHUNKSTORE_* environment variables and flags.
type Config struct {
	Store StoreConfig `json:"store" yaml:"store"`
	Chunk SizeConfig  `json:"chunk" yaml:"chunk"` // data chunks
	Node  SizeConfig  `json:"node" yaml:"node"`   // container nodes
	Log   struct {
		Level string `json:"level" yaml:"level"`
	} `json:"log" yaml:"log"`
}

// StoreConfig locates and tunes the chunk store
type StoreConfig struct {
	Dir   string `json:"dir" yaml:"dir"`
	Name  string `json:"name" yaml:"name"`
	Index string `json:"index" yaml:"index"` // btree or badger
	Cache int    `json:"cache" yaml:"cache"`
	Tile  string `json:"tile" yaml:"tile"`
	Hash  string `json:"hash" yaml:"hash"` // box hash: sha256 or blake2b
}

// SizeConfig holds the rabin splitter sizes, in human readable units (e.g. "8KB")
type SizeConfig struct {
	Target string `json:"target" yaml:"target"`
	Min    string `json:"min" yaml:"min"`
	Max    string `json:"max" yaml:"max"`
}

func setDefaults() {
	viper.SetDefault("store.dir", ".")
	viper.SetDefault("store.name", "chunks")
	viper.SetDefault("store.index", indexBTree)
	viper.SetDefault("store.cache", 256)
	viper.SetDefault("store.tile", "1KB")
	viper.SetDefault("store.hash", string(key.SHA256))
	viper.SetDefault("chunk.target", "8KB")
	viper.SetDefault("chunk.min", "128")
	viper.SetDefault("chunk.max", "0")
	viper.SetDefault("node.target", "1KB")
	viper.SetDefault("node.min", "64")
	viper.SetDefault("node.max", "0")
	viper.SetDefault("log.level", "none")
}

func newConfig() (*Config, error) {
	var c Config
	if err := viper.Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func parseSize(name, value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := units.RAMInBytes(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", name, err)
	}
	return int(n), nil
}

func (s SizeConfig) sizes(prefix string) (target, min, max int, err error) {
	if target, err = parseSize(prefix+".target", s.Target); err != nil {
		return
	}
	if min, err = parseSize(prefix+".min", s.Min); err != nil {
		return
	}
	max, err = parseSize(prefix+".max", s.Max)
	return
}

// splitters builds the data and node splitters, sharing a pool of rolling hash windows
func (c *Config) splitters(pool *splitter.WindowPool) (data, node *splitter.Rabin, err error) {
	target, min, max, err := c.Chunk.sizes("chunk")
	if err != nil {
		return nil, nil, err
	}
	if data, err = splitter.NewRabin(target, min, max, splitter.WithPool(pool)); err != nil {
		return nil, nil, err
	}
	if target, min, max, err = c.Node.sizes("node"); err != nil {
		return nil, nil, err
	}
	if node, err = splitter.NewRabin(target, min, max, splitter.WithPool(pool)); err != nil {
		return nil, nil, err
	}
	if err = chunkhash.CheckNodeSplitter(node); err != nil {
		return nil, nil, err
	}
	return data, node, nil
}

func (c *Config) algorithm() (key.Algorithm, error) {
	return key.ParseAlgorithm(c.Store.Hash)
}
