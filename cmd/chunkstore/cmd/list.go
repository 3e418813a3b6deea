package cmd

import (
	"fmt"

	"github.com/oneconcern/chunkstore/pkg/key"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the hashes of all chunks in the store, in ascending order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		exists, err := storeExists()
		if err != nil {
			return err
		}
		if !exists {
			return errNoStore
		}
		store, err := openStore(false, nil)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, store.Close()) }()

		out := cmd.OutOrStdout()
		return store.Walk(func(hash key.Hash) error {
			_, err := fmt.Fprintln(out, hash)
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
