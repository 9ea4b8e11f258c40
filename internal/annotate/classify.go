package annotate

import (
	"strings"

	"github.com/inodb/vibe-vcfanno/internal/vcf"
)

// VariationType is the structural class of a REF/ALT pair.
type VariationType int

const (
	TypeOther VariationType = iota
	TypeSubstitution
	TypeInsertion
	TypeDeletion
	TypeMNV
	TypeCNV
)

var variationTypeNames = [...]string{
	TypeOther:        "Other",
	TypeSubstitution: "Substitution",
	TypeInsertion:    "Insertion",
	TypeDeletion:     "Deletion",
	TypeMNV:          "MNV",
	TypeCNV:          "CNV",
}

func (t VariationType) String() string {
	if int(t) < 0 || int(t) >= len(variationTypeNames) {
		return "Other"
	}
	return variationTypeNames[t]
}

// ClassifyType derives the variation type from allele lengths.
// Symbolic copy-number tokens (<CN…>, <DEL…>, <DUP…>) are CNVs; any other
// symbolic allele, "*", or empty allele is Other.
func ClassifyType(ref, alt string) VariationType {
	if vcf.IsSymbolicAllele(alt) {
		token := strings.ToUpper(alt)
		if strings.HasPrefix(token, "<CN") || strings.HasPrefix(token, "<DEL") || strings.HasPrefix(token, "<DUP") {
			return TypeCNV
		}
		return TypeOther
	}
	if ref == "" || alt == "" {
		return TypeOther
	}

	v := vcf.Variant{Ref: ref, Alt: alt}
	switch {
	case v.IsSNV():
		return TypeSubstitution
	case !v.IsIndel():
		return TypeMNV
	case v.IsInsertion():
		return TypeInsertion
	case v.IsDeletion():
		return TypeDeletion
	}
	return TypeOther
}

// Classification is the derived type and most deleterious effect of one variant.
type Classification struct {
	Type   VariationType
	Effect string // SO consequence term
	Rank   int    // severity rank of Effect, lower = more severe
	Impact string // HIGH, MODERATE, LOW, MODIFIER
}

// Classifier derives classifications using a severity table.
type Classifier struct {
	table *SeverityTable
}

// NewClassifier creates a classifier; a nil table selects DefaultSeverityTable.
func NewClassifier(table *SeverityTable) *Classifier {
	if table == nil {
		table = DefaultSeverityTable()
	}
	return &Classifier{table: table}
}

// Table returns the classifier's severity table.
func (c *Classifier) Table() *SeverityTable {
	return c.table
}

// Classify returns the type and most deleterious effect of a variant.
// Without consequence annotations the effect is "unknown", or
// copy_number_change for CNVs.
func (c *Classifier) Classify(v *vcf.Variant) Classification {
	typ := ClassifyType(v.Ref, v.Alt)

	effect, rank := c.table.MostSevere(Consequences(v))
	if rank < 0 {
		effect = ConsequenceUnknown
		if typ == TypeCNV {
			effect = ConsequenceCopyNumberChange
		}
		effect = c.table.Canonical(effect)
		rank = c.table.Rank(effect)
	}

	return Classification{
		Type:   typ,
		Effect: effect,
		Rank:   rank,
		Impact: GetImpact(effect),
	}
}
