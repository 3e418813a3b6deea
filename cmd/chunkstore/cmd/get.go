package cmd

import (
	"io"
	"os"

	"github.com/oneconcern/chunkstore/pkg/chunkstore"
	"github.com/oneconcern/chunkstore/pkg/container"
	"github.com/oneconcern/chunkstore/pkg/dlogger"
	"github.com/oneconcern/chunkstore/pkg/key"
	"github.com/oneconcern/chunkstore/pkg/splitter"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var getCmd = &cobra.Command{
	Use:   "get <root pointer>",
	Short: "Read back a stored container",
	Long: `Read back the data of a container, given the root pointer printed by put.

Every chunk is verified against its data hash while reading.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		root, err := key.ParsePointer(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if params.output != "" {
			f, cerr := os.Create(params.output)
			if cerr != nil {
				return cerr
			}
			defer func() { err = multierr.Append(err, f.Close()) }()
			out = f
		}
		return get(root, out)
	},
}

func get(root key.Pointer, out io.Writer) (err error) {
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

	tx, err := store.Begin()
	if err != nil {
		return err
	}
	defer tx.Discard()
	acc, err := chunkstore.NewAccessor(tx, 0)
	if err != nil {
		return err
	}

	c, err := container.Open(acc, root,
		container.WithPool(splitter.NewWindowPool()),
		container.WithLogger(dlogger.Named(logger, "container")))
	if err != nil {
		return err
	}
	n, err := io.Copy(out, c.NewReader())
	logger.Debug("get done", zap.Stringer("root", root), zap.Int64("bytes", n), zap.Int("levels", c.Levels()))
	return err
}

type cliError string

func (e cliError) Error() string { return string(e) }

const errNoStore = cliError("no chunk store found, see the --dir and --name flags")

func init() {
	addOutputFlag(getCmd)
	rootCmd.AddCommand(getCmd)
}
