// Package output provides annotation output formatters.
package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-vcfanno/internal/annotate"
)

// FlagCoverageMissing marks records without DP or allele depth data.
const FlagCoverageMissing = "COVERAGE_MISSING"

// coreColumns are the fixed leading columns of the tab-delimited output.
var coreColumns = []string{
	"#CHROM",
	"POS",
	"ID",
	"REF",
	"ALT",
	"QUAL",
	"FILTER",
	"TYPE",
	"EFFECT",
	"DEPTH",
	"SUPPORT",
	"SUPPORT_PCT",
	"ALLELE_FREQ",
	"FREQ_STATUS",
	"FLAGS",
}

// TabWriter writes annotation records in tab-delimited format, one row per
// variant allele.
type TabWriter struct {
	w          *bufio.Writer
	columns    []string
	sourceKeys []string // pre-built Extra map keys for source columns
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{
		w:       bufio.NewWriter(w),
		columns: append([]string(nil), coreColumns...),
	}
}

// SetSources registers annotation sources whose fields are appended as
// extra columns named "<source>.<column>".
func (tw *TabWriter) SetSources(sources []annotate.AnnotationSource) {
	tw.sourceKeys = buildSourceKeys(sources)
	tw.columns = append(append([]string(nil), coreColumns...), tw.sourceKeys...)
}

// Columns returns the header columns.
func (tw *TabWriter) Columns() []string {
	return tw.columns
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes a single annotation record.
func (tw *TabWriter) Write(r *annotate.Record) error {
	v := r.Variant

	id := v.ID
	if id == "" {
		id = "."
	}
	qual := "."
	if v.Qual != nil {
		qual = strconv.FormatFloat(*v.Qual, 'f', -1, 64)
	}
	filter := v.Filter
	if filter == "" {
		filter = "."
	}
	flags := "-"
	if r.CoverageMissing {
		flags = FlagCoverageMissing
	}

	values := make([]string, 0, len(tw.columns))
	values = append(values,
		v.Chrom,
		strconv.FormatInt(v.Pos, 10),
		id,
		v.Ref,
		v.Alt,
		qual,
		filter,
		r.Classification.Type.String(),
		r.Classification.Effect,
		strconv.Itoa(r.Metrics.Depth),
		strconv.Itoa(r.Metrics.Support),
		FormatPercent(r.Metrics.Percent),
		r.Frequency.FormatAF(),
		r.Frequency.Status.String(),
		flags,
	)

	// Append annotation source fields from Extra map using pre-built keys
	for _, key := range tw.sourceKeys {
		val := r.Extra[key]
		if val == "" {
			val = "-"
		}
		values = append(values, val)
	}

	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

// FormatPercent formats a support percentage with two decimals.
func FormatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64)
}

// buildSourceKeys pre-computes the Extra map keys for all source columns.
func buildSourceKeys(sources []annotate.AnnotationSource) []string {
	var keys []string
	for _, src := range sources {
		name := src.Name()
		for _, col := range src.Columns() {
			keys = append(keys, name+"."+col.Name)
		}
	}
	return keys
}
