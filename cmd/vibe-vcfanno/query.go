package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/vibe-vcfanno/internal/duckdb"
	"github.com/inodb/vibe-vcfanno/internal/frequency"
)

func newQueryCmd() *cobra.Command {
	var (
		variant string
		effect  string
		rare    float64
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query results stored by 'annotate --duckdb'",
		Long: `Query annotation results stored in a DuckDB database by a previous
'annotate --duckdb' run. Without a filter, summarizes the stored run.`,
		Example: `  vibe-vcfanno query --duckdb results.duckdb
  vibe-vcfanno query --duckdb results.duckdb --variant 12-25245350-C-A
  vibe-vcfanno query --duckdb results.duckdb --effect missense_variant
  vibe-vcfanno query --duckdb results.duckdb --rare 0.001`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return &usageError{fmt.Errorf("unexpected argument %q", args[0])}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			filters := 0
			for _, set := range []bool{variant != "", effect != "", cmd.Flags().Changed("rare")} {
				if set {
					filters++
				}
			}
			if filters > 1 {
				return &usageError{errors.New("--variant, --effect and --rare are mutually exclusive")}
			}
			if cmd.Flags().Changed("rare") && (rare <= 0 || rare > 1) {
				return &usageError{fmt.Errorf("--rare must be in (0, 1], got %v", rare)}
			}

			dbPath := viper.GetString(keyOutputDuckDB)
			if dbPath == "" {
				return &usageError{errors.New("--duckdb is required")}
			}
			if _, err := os.Stat(dbPath); err != nil {
				return &usageError{fmt.Errorf("results database: %w", err)}
			}

			store, err := duckdb.Open(dbPath)
			if err != nil {
				return fmt.Errorf("opening results database: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			var rows []duckdb.ResultRow
			switch {
			case variant != "":
				k, err := frequency.ParseKey(variant)
				if err != nil {
					return &usageError{err}
				}
				rows, err = store.LookupVariant(k.Chrom, k.Pos, k.Ref, k.Alt)
				if err != nil {
					return err
				}
			case effect != "":
				rows, err = store.SearchByEffect(effect)
				if err != nil {
					return err
				}
			case cmd.Flags().Changed("rare"):
				rows, err = store.SearchRare(rare)
				if err != nil {
					return err
				}
			default:
				return writeRunSummary(out, store)
			}
			return writeResultRows(out, rows)
		},
	}

	f := cmd.Flags()
	f.String("duckdb", "", "DuckDB database written by 'annotate --duckdb'")
	f.StringVar(&variant, "variant", "", "Show results for one chrom-pos-ref-alt variant")
	f.StringVar(&effect, "effect", "", "Show results whose selected effect is this SO term")
	f.Float64Var(&rare, "rare", 0, "Show results with a known allele frequency below this value")

	bindFlags(cmd, map[string]string{
		"duckdb": keyOutputDuckDB,
	})

	return cmd
}

// writeRunSummary prints the stored result count and the last run.
func writeRunSummary(w io.Writer, store *duckdb.Store) error {
	n, err := store.CountResults()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "results\t%d\n", n)

	run, ok, err := store.LastRun()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	s := run.Summary
	fmt.Fprintf(w, "input\t%s\n", run.Input.Path)
	fmt.Fprintf(w, "finished\t%s\n", run.FinishedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "records\t%d\n", s.Records)
	fmt.Fprintf(w, "malformed\t%d\n", s.Malformed)
	fmt.Fprintf(w, "variants\t%d\n", s.Variants)
	fmt.Fprintf(w, "coverage_missing\t%d\n", s.CoverageMissing)
	fmt.Fprintf(w, "af_found\t%d\n", s.Found)
	fmt.Fprintf(w, "af_not_found\t%d\n", s.NotFound)
	fmt.Fprintf(w, "af_failed\t%d\n", s.LookupFailed)
	return nil
}

var resultHeader = []string{
	"#CHROM", "POS", "ID", "REF", "ALT", "TYPE", "EFFECT",
	"DEPTH", "SUPPORT", "SUPPORT_PCT", "ALLELE_FREQ", "FREQ_STATUS",
}

// writeResultRows prints stored results as tab-separated values.
func writeResultRows(w io.Writer, rows []duckdb.ResultRow) error {
	if _, err := fmt.Fprintln(w, strings.Join(resultHeader, "\t")); err != nil {
		return err
	}
	for _, r := range rows {
		id := r.ID
		if id == "" {
			id = "."
		}
		depth, support, pct := frequency.NA, frequency.NA, frequency.NA
		if !r.CoverageMissing {
			depth = strconv.Itoa(r.Depth)
			support = strconv.Itoa(r.Support)
			pct = strconv.FormatFloat(r.SupportPct, 'f', 2, 64)
		}
		af := frequency.NA
		if r.AlleleFreq.Valid {
			af = strconv.FormatFloat(r.AlleleFreq.Float64, 'g', 4, 64)
		}
		fields := []string{
			r.Chrom, strconv.FormatInt(r.Pos, 10), id, r.Ref, r.Alt, r.Type, r.Effect,
			depth, support, pct, af, r.FreqStatus,
		}
		if _, err := fmt.Fprintln(w, strings.Join(fields, "\t")); err != nil {
			return err
		}
	}
	return nil
}
