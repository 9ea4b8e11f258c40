package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-vcfanno/internal/datasource/alphamissense"
	"github.com/inodb/vibe-vcfanno/internal/datasource/popfreq"
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load annotation data into local DuckDB tables",
		Long: `Load bulk annotation data into DuckDB so that annotation can run without
the remote frequency service.`,
	}
	cmd.AddCommand(newImportFrequenciesCmd())
	cmd.AddCommand(newImportAlphaMissenseCmd())
	return cmd
}

func newImportFrequenciesCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "frequencies <af.tsv[.gz]>",
		Short: "Load population allele frequencies",
		Long: `Load allele frequencies from a TSV with the header
#CHROM POS REF ALT AF, replacing any frequencies already in the table.`,
		Example: `  vibe-vcfanno import frequencies --db ~/.vibe-vcfanno/af.duckdb exac_af.tsv.gz
  vibe-vcfanno config set frequency.db ~/.vibe-vcfanno/af.duckdb`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				return &usageError{errors.New("--db is required")}
			}
			return runImport("frequencies", dbPath, args[0], func() (int64, error) {
				store, err := popfreq.Open(dbPath)
				if err != nil {
					return 0, err
				}
				defer store.Close()
				return store.Load(args[0])
			})
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "DuckDB database to load into")
	return cmd
}

func newImportAlphaMissenseCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "alphamissense <AlphaMissense_hg38.tsv.gz>",
		Short: "Load AlphaMissense pathogenicity scores",
		Example: `  vibe-vcfanno import alphamissense --db ~/.vibe-vcfanno/am.duckdb AlphaMissense_hg38.tsv.gz
  vibe-vcfanno config set annotations.alphamissense ~/.vibe-vcfanno/am.duckdb`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				return &usageError{errors.New("--db is required")}
			}
			return runImport("alphamissense", dbPath, args[0], func() (int64, error) {
				store, err := alphamissense.Open(dbPath)
				if err != nil {
					return 0, err
				}
				defer store.Close()
				return store.Load(args[0])
			})
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "DuckDB database to load into")
	return cmd
}

func runImport(what, dbPath, input string, load func() (int64, error)) error {
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	start := time.Now()
	logger.Info("loading "+what, zap.String("input", input), zap.String("db", dbPath))
	n, err := load()
	if err != nil {
		return err
	}
	logger.Info("loaded "+what,
		zap.Int64("rows", n),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// exactArgs is cobra.ExactArgs reported as a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return &usageError{err}
		}
		return nil
	}
}
