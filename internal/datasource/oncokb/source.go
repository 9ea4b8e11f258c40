package oncokb

import (
	"context"

	"github.com/inodb/vibe-vcfanno/internal/annotate"
)

// Source wraps a CancerGeneList as an annotate.AnnotationSource.
type Source struct {
	cgl CancerGeneList
}

// NewSource creates an AnnotationSource backed by the given CancerGeneList.
func NewSource(cgl CancerGeneList) *Source {
	return &Source{cgl: cgl}
}

func (s *Source) Name() string    { return "oncokb" }
func (s *Source) Version() string { return "cancerGeneList.tsv" }

func (s *Source) Columns() []annotate.ColumnDef {
	return []annotate.ColumnDef{
		{Name: "gene_type", Description: "Gene classification (ONCOGENE/TSG)"},
	}
}

// Annotate adds the OncoKB gene type when the record's gene, taken from its
// INFO annotations, is in the cancer gene list.
func (s *Source) Annotate(_ context.Context, r *annotate.Record) {
	gene := annotate.GeneSymbol(r.Variant)
	if gene == "" || !s.cgl.IsCancerGene(gene) {
		return
	}
	r.SetExtra("oncokb", "gene_type", s.cgl[gene].GeneType)
}
