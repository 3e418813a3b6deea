package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/oneconcern/chunkstore/pkg/chunkhash"
	"github.com/oneconcern/chunkstore/pkg/splitter"
	"github.com/spf13/cobra"
)

// hashResult is the output of the hash command
type hashResult struct {
	Hash   string `json:"hash"`
	Bytes  int64  `json:"bytes"`
	Chunks int    `json:"chunks"`
	Levels int    `json:"levels"`
}

var hashCmd = &cobra.Command{
	Use:   "hash [file]",
	Short: "Compute the chunk hash of a file",
	Long: `Compute the chunk hash of a file, or stdin, without storing it.

The chunk hash is the data hash of the root pointer that put would print
for the same content and chunk settings.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in io.Reader = os.Stdin
		if len(args) > 0 {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			in = f
		}

		dataSplitter, nodeSplitter, err := config.splitters(splitter.NewWindowPool())
		if err != nil {
			return err
		}
		h, err := chunkhash.New(dataSplitter, nodeSplitter)
		if err != nil {
			return err
		}
		n, err := io.Copy(h, in)
		if err != nil {
			return err
		}
		h.Flush()

		res := hashResult{Hash: h.Digest().String(), Bytes: n, Chunks: h.Chunks(), Levels: h.Levels()}
		if params.json {
			return writeJSON(cmd.OutOrStdout(), res)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), res.Hash)
		return err
	},
}

func init() {
	addJSONFlag(hashCmd)
	rootCmd.AddCommand(hashCmd)
}
