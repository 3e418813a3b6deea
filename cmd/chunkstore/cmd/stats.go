package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/docker/go-units"
	"github.com/oneconcern/chunkstore/pkg/chunkstore"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Describe the content of the store",
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

		st, err := store.Stats()
		if err != nil {
			return err
		}
		if params.json {
			return writeJSON(cmd.OutOrStdout(), st)
		}
		return printStats(cmd.OutOrStdout(), st)
	},
}

func printStats(out io.Writer, st chunkstore.Stats) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "store:\t%s\n", st.Name)
	fmt.Fprintf(w, "chunks:\t%d\n", st.Chunks)
	fmt.Fprintf(w, "pack size:\t%s\n", units.HumanSize(float64(st.PackBytes)))
	if st.Index != nil {
		fmt.Fprintf(w, "index depth:\t%d\n", st.Index.Depth)
		fmt.Fprintf(w, "tile size:\t%s\n", units.BytesSize(float64(st.Index.TileSize)))
		fmt.Fprintf(w, "keys per tile:\t%d\n", st.Index.MaxKeys)
		fmt.Fprintf(w, "tiles:\t%d live, %d free, %d total\n", st.Index.LiveTiles, st.Index.FreeTiles, st.Index.TotalTiles)
	}
	return w.Flush()
}

func init() {
	addJSONFlag(statsCmd)
	rootCmd.AddCommand(statsCmd)
}
