package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/oneconcern/chunkstore/pkg/chunkstore"
	"github.com/oneconcern/chunkstore/pkg/container"
	"github.com/oneconcern/chunkstore/pkg/dlogger"
	"github.com/oneconcern/chunkstore/pkg/key"
	"github.com/oneconcern/chunkstore/pkg/splitter"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var putCmd = &cobra.Command{
	Use:   "put [file]",
	Short: "Store a file as a chunk container",
	Long: `Store a file, or stdin, as a container of content defined chunks.

Chunks already in the store are not written again. The root pointer of the
container is printed on stdout: it is the only handle on the stored data.`,
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

		reg := prometheus.NewRegistry()
		root, err := put(in, reg)
		if err != nil {
			return err
		}
		families, err := reg.Gather()
		if err == nil {
			logger.Info("put done",
				zap.Stringer("root", root),
				zap.Float64("chunks", counterSum(families, "chunkstore_puts_total")),
				zap.Float64("deduplicated", counterSum(families, "chunkstore_dedup_total")),
				zap.Float64("bytes", counterSum(families, "chunkstore_bytes_written_total")),
			)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), root)
		return err
	},
}

func put(in io.Reader, reg prometheus.Registerer) (root key.Pointer, err error) {
	store, err := openStore(params.create, reg)
	if err != nil {
		return root, err
	}
	defer func() { err = multierr.Append(err, store.Close()) }()

	tx, err := store.Begin()
	if err != nil {
		return root, err
	}
	defer tx.Discard()
	acc, err := chunkstore.NewAccessor(tx, 0)
	if err != nil {
		return root, err
	}

	pool := splitter.NewWindowPool()
	dataSplitter, nodeSplitter, err := config.splitters(pool)
	if err != nil {
		return root, err
	}
	l := dlogger.Named(logger, "container")
	var c *container.Container
	if params.append != "" {
		ptr, err := key.ParsePointer(params.append)
		if err != nil {
			return root, err
		}
		c, err = container.Open(acc, ptr, container.WithPool(pool), container.WithLogger(l))
		if err != nil {
			return root, err
		}
	} else {
		c, err = container.New(acc, nodeSplitter, container.WithPool(pool), container.WithLogger(l))
		if err != nil {
			return root, err
		}
	}

	w := container.NewWriter(c, dataSplitter)
	if _, err = io.Copy(w, in); err != nil {
		return root, multierr.Append(err, w.Close())
	}
	if err = w.Close(); err != nil {
		return root, err
	}
	if err = tx.Commit(); err != nil {
		return root, err
	}
	return c.Pointer(), nil
}

// counterSum adds up the counters of a metric family
func counterSum(families []*dto.MetricFamily, name string) float64 {
	var sum float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			sum += m.GetCounter().GetValue()
		}
	}
	return sum
}

func init() {
	addAppendFlag(putCmd)
	addCreateFlag(putCmd)
	rootCmd.AddCommand(putCmd)
}
