package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-vcfanno/internal/datasource/popfreq"
	"github.com/inodb/vibe-vcfanno/internal/frequency"
)

func newLookupCmd() *cobra.Command {
	var savePath string

	cmd := &cobra.Command{
		Use:   "lookup <chrom-pos-ref-alt>...",
		Short: "Look up population allele frequencies of variants",
		Long: `Look up allele frequencies with the same client, retry and cache settings
used by annotate, printing one tab-separated line per variant.

With --save, frequencies that were found are also written to a local DuckDB
frequency table usable with --frequency-db.`,
		Example: `  vibe-vcfanno lookup 7-140453136-A-T
  vibe-vcfanno lookup --frequency-db af.duckdb 1-69094-G-A 12-25245350-C-A
  vibe-vcfanno lookup --save af.duckdb 7-140453136-A-T`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return &usageError{fmt.Errorf("at least one variant id required")}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(cmd, args, savePath)
		},
	}
	cmd.Flags().StringVar(&savePath, "save", "", "Also store found frequencies in this DuckDB frequency table")
	addFrequencyFlags(cmd)
	return cmd
}

func runLookup(cmd *cobra.Command, ids []string, savePath string) error {
	keys := make([]frequency.Key, len(ids))
	for i, id := range ids {
		k, err := frequency.ParseKey(id)
		if err != nil {
			return &usageError{err}
		}
		keys[i] = k
	}
	if savePath != "" && savePath == viper.GetString(keyFrequencyDB) {
		return &usageError{fmt.Errorf("--save must differ from the frequency table being read")}
	}

	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	client, closeSource, err := newFrequencyClient(logger)
	if err != nil {
		return err
	}
	defer closeSource()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	results := client.Resolve(ctx, keys)

	out := cmd.OutOrStdout()
	for i, k := range keys {
		r := results[k]
		fmt.Fprintf(out, "%s\t%s\t%s\n", ids[i], r.FormatAF(), r.Status)
	}
	if !client.Reachable() {
		return fmt.Errorf("frequency lookups failed for all %d variants", len(keys))
	}

	if savePath != "" {
		return saveFrequencies(ctx, logger, savePath, results)
	}
	return nil
}

// saveFrequencies writes found frequencies to a local frequency table.
func saveFrequencies(ctx context.Context, logger *zap.Logger, path string, results map[frequency.Key]frequency.Result) error {
	found := make(map[frequency.Key]float64, len(results))
	for k, r := range results {
		if r.Available() {
			found[k] = r.AF
		}
	}
	if len(found) == 0 {
		return nil
	}

	store, err := popfreq.Open(path)
	if err != nil {
		return fmt.Errorf("opening frequency table: %w", err)
	}
	defer store.Close()

	if err := store.Insert(ctx, found); err != nil {
		return fmt.Errorf("saving frequencies: %w", err)
	}
	logger.Info("saved frequencies", zap.String("db", path), zap.Int("variants", len(found)))
	return nil
}
