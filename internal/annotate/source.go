package annotate

import (
	"context"
	"strconv"
	"strings"
)

// AnnotationSource adds external data to annotation records.
type AnnotationSource interface {
	Name() string         // e.g. "oncokb"
	Version() string      // e.g. "cancerGeneList"
	Columns() []ColumnDef // columns this source provides
	Annotate(ctx context.Context, r *Record)
}

// ColumnDef describes a column provided by an annotation source.
type ColumnDef struct {
	Name        string // short name, e.g. "gene_type"
	Description string // human-readable description
}

// CoreColumns defines the columns produced by vibe-vcfanno's core engine.
var CoreColumns = []ColumnDef{
	{Name: "type", Description: "Variation type"},
	{Name: "effect", Description: "Most deleterious SO consequence term"},
	{Name: "depth", Description: "Total read depth"},
	{Name: "support", Description: "Reads supporting the ALT alleles"},
	{Name: "support_pct", Description: "Percentage of reads supporting the ALT alleles"},
	{Name: "allele_freq", Description: "Population allele frequency"},
	{Name: "freq_status", Description: "Frequency lookup status"},
}

// InfoSource copies selected INFO fields into the record's Extra map under
// "info.<KEY>". Flags are written as "true"; absent keys are left unset.
type InfoSource struct {
	keys []string
}

// NewInfoSource creates a source for the given INFO keys.
func NewInfoSource(keys []string) *InfoSource {
	var clean []string
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			clean = append(clean, k)
		}
	}
	return &InfoSource{keys: clean}
}

func (s *InfoSource) Name() string    { return "info" }
func (s *InfoSource) Version() string { return "" }

func (s *InfoSource) Columns() []ColumnDef {
	cols := make([]ColumnDef, len(s.keys))
	for i, k := range s.keys {
		cols[i] = ColumnDef{Name: k, Description: "INFO " + k}
	}
	return cols
}

func (s *InfoSource) Annotate(_ context.Context, r *Record) {
	for _, k := range s.keys {
		val, ok := r.Variant.Info[k]
		if !ok {
			continue
		}
		if val == "" {
			val = "true"
		}
		r.SetExtra(s.Name(), k, val)
	}
}

// DetailSource records the gene symbol, impact and per-allele read counts
// under "detail.*".
type DetailSource struct{}

func (DetailSource) Name() string    { return "detail" }
func (DetailSource) Version() string { return "" }

func (DetailSource) Columns() []ColumnDef {
	return []ColumnDef{
		{Name: "gene", Description: "Gene symbol from INFO annotations"},
		{Name: "impact", Description: "Impact of the selected effect"},
		{Name: "ref_support", Description: "Reads supporting REF"},
		{Name: "allele_support", Description: "Reads supporting this ALT allele"},
	}
}

func (s DetailSource) Annotate(_ context.Context, r *Record) {
	if gene := GeneSymbol(r.Variant); gene != "" {
		r.SetExtra(s.Name(), "gene", gene)
	}
	r.SetExtra(s.Name(), "impact", r.Classification.Impact)
	if !r.CoverageMissing {
		r.SetExtra(s.Name(), "ref_support", strconv.Itoa(r.Metrics.RefSupport))
		r.SetExtra(s.Name(), "allele_support", strconv.Itoa(r.Metrics.AlleleSupport))
	}
}
