package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-vcfanno/internal/annotate"
	"github.com/inodb/vibe-vcfanno/internal/datasource/alphamissense"
	"github.com/inodb/vibe-vcfanno/internal/datasource/oncokb"
	"github.com/inodb/vibe-vcfanno/internal/datasource/popfreq"
	"github.com/inodb/vibe-vcfanno/internal/duckdb"
	"github.com/inodb/vibe-vcfanno/internal/frequency"
	"github.com/inodb/vibe-vcfanno/internal/output"
	"github.com/inodb/vibe-vcfanno/internal/vcf"
)

func newAnnotateCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "annotate <input.vcf>",
		Short: "Annotate variants in a VCF file",
		Long: `Annotate every ALT allele of a VCF file with its variation type, most
deleterious effect, read depth and support, and population allele frequency.
Results are written as tab-separated values in input order.`,
		Example: `  vibe-vcfanno annotate input.vcf
  vibe-vcfanno annotate -o annotated.tsv input.vcf.gz
  vibe-vcfanno annotate --frequency-db af.duckdb input.vcf
  vibe-vcfanno annotate --duckdb results.duckdb --info-fields SVTYPE,SOMATIC input.vcf
  cat input.vcf | vibe-vcfanno annotate -`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return &usageError{errors.New("exactly one input file argument required (use '-' for stdin)")}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnnotate(cmd.Context(), args[0], outputFile)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	f.String("duckdb", "", "Also store results in this DuckDB database")
	f.Int("chunk-size", annotate.DefaultChunkSize, "Variants resolved and written per chunk")
	f.Duration("timeout", 0, "Abort the run after this long (0 = no limit)")
	f.StringSlice("info-fields", nil, "INFO keys copied into extra columns")
	f.StringSlice("severity", nil, "Effect terms from most to least severe (default: built-in table)")
	f.String("oncokb", "", "OncoKB cancerGeneList.tsv for cancer gene flags")
	f.String("alphamissense", "", "DuckDB database with AlphaMissense scores (see 'import alphamissense')")
	addFrequencyFlags(cmd)

	bindFlags(cmd, map[string]string{
		"duckdb":        keyOutputDuckDB,
		"chunk-size":    keyAnnotateChunkSize,
		"timeout":       keyAnnotateTimeout,
		"info-fields":   keyAnnotateInfoFields,
		"severity":      keyAnnotateSeverity,
		"oncokb":        keyOncoKB,
		"alphamissense": keyAlphaMissense,
	})

	return cmd
}

// addFrequencyFlags registers the flags that configure frequency lookups.
func addFrequencyFlags(cmd *cobra.Command) {
	fc := frequency.DefaultConfig()
	f := cmd.Flags()
	f.String("frequency-url", frequency.DefaultBaseURL, "Base URL of the ExAC-compatible frequency service")
	f.String("frequency-db", "", "Look up frequencies in this local DuckDB table instead of the service")
	f.Int("workers", fc.Workers, "Concurrent frequency lookups")
	f.Int("max-attempts", fc.MaxAttempts, "Attempts per lookup before giving up")
	f.Duration("base-delay", fc.BaseDelay, "Initial retry delay, doubled per retry")
	f.Duration("max-delay", fc.MaxDelay, "Upper bound on the retry delay")
	f.Int("batch-size", fc.BatchSize, "Variants per bulk request (1 = single-variant requests)")
	f.Float64("rate-limit", 0, "Maximum requests per second to the service (0 = unlimited)")
	f.Duration("request-timeout", 30*time.Second, "Timeout of a single service request")

	bindFlags(cmd, map[string]string{
		"frequency-url":   keyFrequencyURL,
		"frequency-db":    keyFrequencyDB,
		"workers":         keyFrequencyWorkers,
		"max-attempts":    keyFrequencyMaxAttempts,
		"base-delay":      keyFrequencyBaseDelay,
		"max-delay":       keyFrequencyMaxDelay,
		"batch-size":      keyFrequencyBatchSize,
		"rate-limit":      keyFrequencyRateLimit,
		"request-timeout": keyFrequencyTimeout,
	})
}

// bindFlags binds flags to config keys just before the command runs, so
// that commands sharing a key do not overwrite each other's binding.
func bindFlags(cmd *cobra.Command, keys map[string]string) {
	prev := cmd.PreRunE
	cmd.PreRunE = func(c *cobra.Command, args []string) error {
		for flag, key := range keys {
			if err := viper.BindPFlag(key, c.Flags().Lookup(flag)); err != nil {
				return fmt.Errorf("binding --%s: %w", flag, err)
			}
		}
		if prev != nil {
			return prev(c, args)
		}
		return nil
	}
}

// newFrequencyClient builds the frequency client from configuration. The
// returned close function releases the local frequency table, if any.
func newFrequencyClient(logger *zap.Logger) (*frequency.Client, func() error, error) {
	cfg := frequency.Config{
		Workers:     viper.GetInt(keyFrequencyWorkers),
		MaxAttempts: viper.GetInt(keyFrequencyMaxAttempts),
		BaseDelay:   viper.GetDuration(keyFrequencyBaseDelay),
		MaxDelay:    viper.GetDuration(keyFrequencyMaxDelay),
		BatchSize:   viper.GetInt(keyFrequencyBatchSize),
	}

	var source frequency.Source
	closeSource := func() error { return nil }

	if dbPath := viper.GetString(keyFrequencyDB); dbPath != "" {
		store, err := popfreq.Open(dbPath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening frequency table: %w", err)
		}
		if !store.Loaded() {
			store.Close()
			return nil, nil, fmt.Errorf("frequency table %s is empty; load it with 'vibe-vcfanno import frequencies'", dbPath)
		}
		n, err := store.Count()
		if err != nil {
			store.Close()
			return nil, nil, err
		}
		logger.Info("using local frequency table", zap.String("path", dbPath), zap.Int64("variants", n))
		source = store
		closeSource = store.Close
	} else {
		url := viper.GetString(keyFrequencyURL)
		logger.Info("using frequency service", zap.String("url", url))
		source = frequency.NewHTTPSource(url,
			viper.GetDuration(keyFrequencyTimeout),
			viper.GetFloat64(keyFrequencyRateLimit),
			max(cfg.Workers, 1))
	}

	client := frequency.NewClient(source, cfg)
	client.SetLogger(logger.Named("frequency"))
	return client, closeSource, nil
}

// newAnnotator builds the annotator with its severity table and sources.
// The returned close function releases database-backed sources.
func newAnnotator(logger *zap.Logger, resolver annotate.FrequencyResolver) (ann *annotate.Annotator, closeSources func(), err error) {
	var closers []func() error
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	defer func() {
		if err != nil {
			closeAll()
		}
	}()

	var table *annotate.SeverityTable
	if order := stringList(keyAnnotateSeverity); len(order) > 0 {
		t, err := annotate.NewSeverityTable(order)
		if err != nil {
			return nil, nil, &usageError{err}
		}
		table = t
	}

	classifier := annotate.NewClassifier(table)
	logger.Debug("effect severity order", zap.Strings("terms", classifier.Table().Terms()))

	ann = annotate.NewAnnotator(classifier, resolver)
	ann.SetLogger(logger)
	ann.SetChunkSize(viper.GetInt(keyAnnotateChunkSize))
	ann.AddSource(annotate.DetailSource{})

	if fields := stringList(keyAnnotateInfoFields); len(fields) > 0 {
		ann.AddSource(annotate.NewInfoSource(fields))
	}

	if path := viper.GetString(keyOncoKB); path != "" {
		cgl, err := oncokb.LoadCancerGeneList(path)
		if err != nil {
			return nil, nil, fmt.Errorf("loading OncoKB cancer gene list: %w", err)
		}
		logger.Info("loaded OncoKB cancer gene list", zap.Int("genes", len(cgl)))
		ann.AddSource(oncokb.NewSource(cgl))
	}

	if path := viper.GetString(keyAlphaMissense); path != "" {
		store, err := alphamissense.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening AlphaMissense database: %w", err)
		}
		if !store.Loaded() {
			store.Close()
			return nil, nil, fmt.Errorf("AlphaMissense database %s is empty; load it with 'vibe-vcfanno import alphamissense'", path)
		}
		src := alphamissense.NewSource(store)
		src.SetLogger(logger.Named("alphamissense"))
		ann.AddSource(src)
		closers = append(closers, store.Close)
	}

	return ann, closeAll, nil
}

func runAnnotate(ctx context.Context, inputPath, outputFile string) (err error) {
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if d := viper.GetDuration(keyAnnotateTimeout); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	parser, err := vcf.NewParser(inputPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &usageError{err}
		}
		return err
	}
	defer parser.Close()
	if samples := parser.SampleNames(); len(samples) > 1 {
		logger.Warn("multi-sample VCF, reading coverage from the first sample",
			zap.String("sample", samples[0]),
			zap.Int("samples", len(samples)))
	}

	client, closeSource, err := newFrequencyClient(logger)
	if err != nil {
		return err
	}
	defer closeSource()

	ann, closeSources, err := newAnnotator(logger, client)
	if err != nil {
		return err
	}
	defer closeSources()

	var out *os.File
	if outputFile == "" {
		out = os.Stdout
	} else {
		out, err = os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer func() {
			if cerr := out.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("closing output file: %w", cerr)
			}
		}()
	}

	tab := output.NewTabWriter(out)
	tab.SetSources(ann.Sources())
	var writer annotate.RecordWriter = tab

	var store *duckdb.Store
	if dbPath := viper.GetString(keyOutputDuckDB); dbPath != "" {
		store, err = duckdb.Open(dbPath)
		if err != nil {
			return fmt.Errorf("opening results database: %w", err)
		}
		defer store.Close()
		prev, ok, err := store.LastRun()
		if err != nil {
			return err
		}
		if ok {
			logger.Info("replacing results of previous run",
				zap.String("input", prev.Input.Path),
				zap.Time("finished", prev.FinishedAt),
				zap.Int("variants", prev.Summary.Variants))
		}
		if err := store.ClearResults(); err != nil {
			return err
		}
		writer = output.NewMultiWriter(tab, duckdb.NewRecordWriter(store))
	}

	if err := writer.WriteHeader(); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	start := time.Now()
	summary, err := ann.AnnotateAll(ctx, parser, writer)
	if err != nil {
		return err
	}

	stats := client.Stats()
	logger.Info("frequency lookups",
		zap.Int64("remote_calls", stats.RemoteCalls),
		zap.Int64("cache_hits", stats.CacheHits),
		zap.Int("cached_keys", client.CacheLen()),
		zap.Duration("elapsed", time.Since(start)))

	if store != nil {
		fp := duckdb.FileFingerprint{Path: inputPath}
		if inputPath != "-" {
			if st, serr := duckdb.StatFile(inputPath); serr == nil {
				fp = st
			}
		}
		if err := store.WriteRun(duckdb.Run{Input: fp, FinishedAt: time.Now(), Summary: summary}); err != nil {
			return err
		}
	}
	return nil
}
