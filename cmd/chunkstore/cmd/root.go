// Copyright © 2018 One Concern

package cmd

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/oneconcern/chunkstore/internal"
	"github.com/oneconcern/chunkstore/pkg/dlogger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chunkstore",
	Short: "Content addressed storage of chunked byte streams",
	Long: `chunkstore keeps byte streams as trees of content defined chunks.

Chunks are stored once, keyed by their hash, in a pack file indexed by a B+Tree
(or a badger database). A stream is addressed by the pointer to the root of its tree.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if logger, err = dlogger.GetLogger(config.Log.Level); err != nil {
			return err
		}
		if params.cpuProf {
			stopCPUProf, err = internal.StartCPUProf("cpu.prof")
		}
		return err
	},
	// upstream api note:  *PostRun functions aren't called in case of a panic() in Run
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if stopCPUProf != nil {
			_ = stopCPUProf()
			stopCPUProf = nil
		}
		if params.memProf != "" {
			if err := internal.WriteMemProf(params.memProf, cmd.Name(), logger); err != nil {
				logger.Warn("could not write memory profile", zap.Error(err))
			}
		}
		_ = logger.Sync()
	},
}

var (
	config      *Config
	logger      = zap.NewNop()
	stopCPUProf func() error

	// used to patch over calls to os.Exit() during test
	osExit = os.Exit
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		osExit(1)
	}
}

func init() {
	log.SetFlags(0)
	cobra.OnInitialize(initConfig)
	addRootFlags(rootCmd)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	setDefaults()
	if os.Getenv("CHUNKSTORE_CONFIG") != "" {
		viper.SetConfigFile(os.Getenv("CHUNKSTORE_CONFIG"))
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.chunkstore")
		viper.SetConfigName("chunkstore")
	}

	viper.SetEnvPrefix("chunkstore")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match
	if err := viper.ReadInConfig(); err == nil {
		log.Println("Using config file:", viper.ConfigFileUsed())
	}
	var err error
	config, err = newConfig()
	if err != nil {
		log.Fatalln(err)
	}
}
