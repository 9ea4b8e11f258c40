package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/inodb/vibe-vcfanno/internal/annotate"
	"github.com/inodb/vibe-vcfanno/internal/frequency"
)

// Config keys. Environment variables use the VIBE_VCFANNO prefix with dots
// replaced by underscores, e.g. VIBE_VCFANNO_FREQUENCY_WORKERS.
const (
	keyFrequencyURL         = "frequency.url"
	keyFrequencyDB          = "frequency.db"
	keyFrequencyWorkers     = "frequency.workers"
	keyFrequencyMaxAttempts = "frequency.max_attempts"
	keyFrequencyBaseDelay   = "frequency.base_delay"
	keyFrequencyMaxDelay    = "frequency.max_delay"
	keyFrequencyBatchSize   = "frequency.batch_size"
	keyFrequencyRateLimit   = "frequency.rate_limit"
	keyFrequencyTimeout     = "frequency.timeout"
	keyAnnotateChunkSize    = "annotate.chunk_size"
	keyAnnotateTimeout      = "annotate.timeout"
	keyAnnotateInfoFields   = "annotate.info_fields"
	keyAnnotateSeverity     = "annotate.severity"
	keyOncoKB               = "annotations.oncokb"
	keyAlphaMissense        = "annotations.alphamissense"
	keyOutputDuckDB         = "output.duckdb"
)

var envKeyReplacer = strings.NewReplacer(".", "_")

func setDefaults() {
	fc := frequency.DefaultConfig()
	viper.SetDefault(keyFrequencyURL, frequency.DefaultBaseURL)
	viper.SetDefault(keyFrequencyWorkers, fc.Workers)
	viper.SetDefault(keyFrequencyMaxAttempts, fc.MaxAttempts)
	viper.SetDefault(keyFrequencyBaseDelay, fc.BaseDelay)
	viper.SetDefault(keyFrequencyMaxDelay, fc.MaxDelay)
	viper.SetDefault(keyFrequencyBatchSize, fc.BatchSize)
	viper.SetDefault(keyFrequencyRateLimit, 0.0)
	viper.SetDefault(keyFrequencyTimeout, 30*time.Second)
	viper.SetDefault(keyAnnotateChunkSize, annotate.DefaultChunkSize)
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage vibe-vcfanno configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/.vibe-vcfanno.yaml.",
		Example: `  vibe-vcfanno config                                # show all config
  vibe-vcfanno config set frequency.workers 8         # more concurrent lookups
  vibe-vcfanno config set frequency.db ~/af.duckdb    # use a local frequency table
  vibe-vcfanno config get frequency.url               # get a value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow()
		},
	}

	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(args[0], args[1])
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(args[0])
		},
	}
}

func runConfigShow() error {
	settings := viper.AllSettings()
	delete(settings, "verbose")

	out, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Print(string(out))
	return nil
}

func runConfigSet(key, value string) error {
	// List values are comma-separated on the command line.
	switch key {
	case keyAnnotateInfoFields, keyAnnotateSeverity:
		viper.Set(key, splitList(value))
	default:
		switch value {
		case "true", "yes", "on":
			viper.Set(key, true)
		case "false", "no", "off":
			viper.Set(key, false)
		default:
			viper.Set(key, value)
		}
	}

	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgFile = filepath.Join(home, ".vibe-vcfanno.yaml")
	}

	if err := viper.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Set %s = %s in %s\n", key, value, cfgFile)
	return nil
}

func runConfigGet(key string) error {
	val := viper.Get(key)
	if val == nil {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Println(val)
	return nil
}

// splitList splits a comma-separated value, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// stringList reads a list setting that may be a YAML sequence or a
// comma-separated string (flags and environment variables).
func stringList(key string) []string {
	var out []string
	for _, s := range viper.GetStringSlice(key) {
		out = append(out, splitList(s)...)
	}
	return out
}
