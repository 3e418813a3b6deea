// Copyright © 2018 One Concern

package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type paramsT struct {
	cpuProf bool
	memProf string
	json    bool
	output  string
	append  string
	create  bool
}

var params = paramsT{}

// addRootFlags declares the persistent flags, bound to their configuration keys
func addRootFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("dir", ".", "The directory holding the store files")
	flags.String("name", "chunks", "The name of the store")
	flags.String("index", indexBTree, "The index backend: btree or badger")
	flags.String("hash", "sha256", "The box hash algorithm: sha256 or blake2b")
	flags.String("chunk-size", "8KB", "The target size of data chunks")
	flags.String("loglevel", "none", "The logging level: none, debug, info, warn, error")
	flags.BoolVar(&params.cpuProf, "cpuprof", false, "Toggles cpu profiling")
	flags.StringVar(&params.memProf, "memprof", "", "Write heap and allocs profiles to this directory")
	_ = flags.MarkHidden("cpuprof")
	_ = flags.MarkHidden("memprof")

	bind := map[string]string{
		"store.dir":    "dir",
		"store.name":   "name",
		"store.index":  "index",
		"store.hash":   "hash",
		"chunk.target": "chunk-size",
		"log.level":    "loglevel",
	}
	for k, flag := range bind {
		_ = viper.BindPFlag(k, flags.Lookup(flag))
	}
}

func addJSONFlag(cmd *cobra.Command) string {
	name := "json"
	cmd.Flags().BoolVar(&params.json, name, false, "Output as json")
	return name
}

func addOutputFlag(cmd *cobra.Command) string {
	name := "output"
	cmd.Flags().StringVarP(&params.output, name, "o", "", "Write to this file instead of stdout")
	return name
}

func addAppendFlag(cmd *cobra.Command) string {
	name := "append"
	cmd.Flags().StringVar(&params.append, name, "", "Append to the container with this root pointer")
	return name
}

func addCreateFlag(cmd *cobra.Command) string {
	name := "create"
	cmd.Flags().BoolVar(&params.create, name, false, "Create the store, truncating any existing one")
	return name
}
