// Command minibatch splits labeled record streams into persisted bins and
// inspects the result.
//
// Usage:
//
//	minibatch split --input reviews.json.gz --store ./bins --splits 0.8
//	minibatch inspect --store ./bins --plot sizes.png
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/minibatch-io/minibatch/batch"
	"github.com/minibatch-io/minibatch/encode"
	"github.com/minibatch-io/minibatch/internal/cliconfig"
	"github.com/minibatch-io/minibatch/source"
	"github.com/minibatch-io/minibatch/split"
	"github.com/minibatch-io/minibatch/store"
)

func main() {
	log := cliconfig.Logger()

	root := &cobra.Command{
		Use:   "minibatch",
		Short: "Batch, balance and split labeled records into persisted bins",
	}
	root.AddCommand(newSplitCmd(), newInspectCmd())

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("minibatch")
		os.Exit(1)
	}
}

// resolveConfig merges the TOML config file (if any) under explicitly set
// flags, then validates.
func resolveConfig(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string) error {
	if cfgPath == "" {
		cfgPath = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgPath != "" && cliconfig.FileExists(cfgPath) {
		fc, err := cliconfig.LoadFileConfig(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cliconfig.ApplyFileConfig(cfg, fc, changed)
	}
	return cfg.Validate()
}

// openSource builds the record source and the matching normalizer for the
// configured input format.
func openSource(cfg cliconfig.Config) (batch.Source, batch.Normalizer, error) {
	if cfg.Input == "" {
		return nil, nil, fmt.Errorf("input is required")
	}
	switch cfg.Format {
	case cliconfig.FormatReviews:
		src, err := source.OpenReviews(cfg.Input)
		if err != nil {
			return nil, nil, err
		}
		return src, encode.NewNormalizer(cfg.MinLength, cfg.MaxLength, cfg.TruncateLeft), nil
	case cliconfig.FormatCSV:
		src, err := source.OpenCSV(cfg.Input, cfg.Features, cfg.Label)
		if err != nil {
			return nil, nil, err
		}
		return src, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown input format %q", cfg.Format)
	}
}

func newSplitCmd() *cobra.Command {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "split",
		Short: "Batch an input file and split it into persisted bins",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := cliconfig.Logger()
			if err := resolveConfig(cmd, &cfg, cfgPath); err != nil {
				return err
			}

			src, normalizer, err := openSource(cfg)
			if err != nil {
				return err
			}

			batcher, err := batch.New(src, batch.Config{
				BatchSize:     cfg.BatchSize,
				Normalizer:    normalizer,
				MaxRecords:    cfg.MaxRecords,
				BalanceLabels: cfg.Balance,
				NumLabels:     cfg.NumLabels,
				Logger:        log,
			})
			if err != nil {
				return err
			}

			st, err := store.OpenFile(cfg.StoreDir)
			if err != nil {
				return err
			}
			defer st.Close()

			_, sizes, err := split.Split(batcher, st, cfg.Splits,
				split.WithSeed(cfg.Seed),
				split.WithShuffle(cfg.Shuffle),
				split.WithOverwrite(cfg.Overwrite),
				split.WithLogger(log),
			)
			if err != nil {
				return err
			}

			total := 0
			for bin, n := range sizes {
				log.Info().Int("bin", bin).Int("records", n).Msg("bin size")
				total += n
			}
			log.Info().Int("total", total).Str("store", cfg.StoreDir).Msg("split complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.minibatch/config.toml)")
	cmd.Flags().StringVar(&cfg.StoreDir, "store", cfg.StoreDir, "directory for the persisted bins")
	cmd.Flags().StringVar(&cfg.Input, "input", cfg.Input, "input file path")
	cmd.Flags().StringVar(&cfg.Format, "format", cfg.Format, "input format: reviews (gzipped JSON lines) or csv")
	cmd.Flags().StringSliceVar(&cfg.Features, "features", cfg.Features, "csv feature column names")
	cmd.Flags().StringVar(&cfg.Label, "label", cfg.Label, "csv label column name")
	cmd.Flags().IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "records per batch")
	cmd.Flags().Float64SliceVar(&cfg.Splits, "splits", cfg.Splits, "bin probabilities; the last bin gets the remainder")
	cmd.Flags().IntVar(&cfg.MaxRecords, "max-records", cfg.MaxRecords, "cap on total records batched (0 = unlimited)")
	cmd.Flags().BoolVar(&cfg.Balance, "balance", cfg.Balance, "balance labels within each batch")
	cmd.Flags().IntVar(&cfg.NumLabels, "num-labels", cfg.NumLabels, "number of distinct labels (required for balancing)")
	cmd.Flags().IntVar(&cfg.MinLength, "min-length", cfg.MinLength, "reject texts shorter than this many characters")
	cmd.Flags().IntVar(&cfg.MaxLength, "max-length", cfg.MaxLength, "pad or truncate texts to this many characters")
	cmd.Flags().BoolVar(&cfg.TruncateLeft, "truncate-left", cfg.TruncateLeft, "keep the tail of over-long texts instead of the head")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed for bin picking and shuffling")
	cmd.Flags().BoolVar(&cfg.Shuffle, "shuffle", cfg.Shuffle, "shuffle record order when reading bins back")
	cmd.Flags().BoolVar(&cfg.Overwrite, "overwrite", cfg.Overwrite, "re-split even when the store already holds data")
	return cmd
}

func newInspectCmd() *cobra.Command {
	var (
		storeDir string
		plotPath string
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Report bin sizes of an existing store without recomputation",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := cliconfig.Logger()
			if storeDir == "" {
				return fmt.Errorf("store is required")
			}

			st, err := store.OpenFile(storeDir)
			if err != nil {
				return err
			}
			defer st.Close()
			if !st.Exists() {
				return fmt.Errorf("store %s holds no bins", storeDir)
			}

			sizes, err := split.Sizes(st)
			if err != nil {
				return err
			}

			total := 0
			for bin, n := range sizes {
				fmt.Printf("bin %d: %d records\n", bin, n)
				total += n
			}
			fmt.Printf("total: %d records in %d bins\n", total, len(sizes))

			if plotPath != "" {
				if err := plotSizes(plotPath, sizes); err != nil {
					return fmt.Errorf("plot bin sizes: %w", err)
				}
				log.Info().Str("path", plotPath).Msg("bin size plot written")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&storeDir, "store", "", "directory of the persisted bins")
	cmd.Flags().StringVar(&plotPath, "plot", "", "write a bar chart of bin sizes to this image path")
	return cmd
}

// plotSizes renders bin record counts as a bar chart.
func plotSizes(path string, sizes []int) error {
	p := plot.New()
	p.Title.Text = "Records per bin"
	p.Y.Label.Text = "records"

	values := make(plotter.Values, len(sizes))
	names := make([]string, len(sizes))
	for i, n := range sizes {
		values[i] = float64(n)
		names[i] = fmt.Sprintf("bin %d", i)
	}

	bars, err := plotter.NewBarChart(values, vg.Points(40))
	if err != nil {
		return err
	}
	p.Add(bars)
	p.NominalX(names...)

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
