// Package vcf provides VCF file parsing functionality.
package vcf

import "strings"

// Record represents one parsed VCF data line.
type Record struct {
	Chrom  string            // Chromosome name (e.g., "12", "chr12")
	Pos    int64             // 1-based genomic position
	ID     string            // Variant identifier (e.g., rs ID), empty when "."
	Ref    string            // Reference allele
	Alts   []string          // Alternate alleles in file order
	Qual   *float64          // Quality score, nil when "."
	Filter string            // Filter status (PASS or filter name)
	Info   map[string]string // INFO key-value pairs; flags map to ""
	Format map[string]string // FORMAT keys paired with the first sample's values
	Line   int               // Source line number, 0 if unknown
}

// Variants expands the record into one logical variant per ALT allele.
// All variants share the record's INFO and FORMAT maps.
func (r *Record) Variants() []*Variant {
	variants := make([]*Variant, len(r.Alts))
	for i, alt := range r.Alts {
		variants[i] = &Variant{
			Chrom:    r.Chrom,
			Pos:      r.Pos,
			ID:       r.ID,
			Ref:      r.Ref,
			Alt:      alt,
			AltIndex: i + 1,
			Qual:     r.Qual,
			Filter:   r.Filter,
			Info:     r.Info,
			Format:   r.Format,
			Line:     r.Line,
		}
	}
	return variants
}

// Variant represents a single genomic variant with exactly one ALT allele.
type Variant struct {
	Chrom    string
	Pos      int64
	ID       string
	Ref      string
	Alt      string
	AltIndex int // 1-based index of Alt among the record's alleles (0 is REF)
	Qual     *float64
	Filter   string
	Info     map[string]string
	Format   map[string]string
	Line     int
}

// IsSNV returns true if the variant is a single nucleotide variant.
func (v *Variant) IsSNV() bool {
	return len(v.Ref) == 1 && len(v.Alt) == 1 && !v.IsSymbolic()
}

// IsIndel returns true if the variant is an insertion or deletion.
func (v *Variant) IsIndel() bool {
	return !v.IsSymbolic() && len(v.Ref) != len(v.Alt)
}

// IsInsertion returns true if the variant is an insertion.
func (v *Variant) IsInsertion() bool {
	return !v.IsSymbolic() && len(v.Alt) > len(v.Ref)
}

// IsDeletion returns true if the variant is a deletion.
func (v *Variant) IsDeletion() bool {
	return !v.IsSymbolic() && len(v.Ref) > len(v.Alt)
}

// IsSymbolic returns true for symbolic (<DEL>, <CN0>) and overlapping-deletion (*) alleles.
func (v *Variant) IsSymbolic() bool {
	return IsSymbolicAllele(v.Alt)
}

// NormalizeChrom returns the chromosome name without "chr" prefix.
func (v *Variant) NormalizeChrom() string {
	return NormalizeChrom(v.Chrom)
}

// NormalizeChrom strips a leading "chr" from a chromosome name.
func NormalizeChrom(chrom string) string {
	if len(chrom) > 3 && strings.EqualFold(chrom[:3], "chr") {
		return chrom[3:]
	}
	return chrom
}

// IsSymbolicAllele reports whether an allele is an angle-bracketed token or "*".
func IsSymbolicAllele(a string) bool {
	return a == "*" || (len(a) > 2 && a[0] == '<' && a[len(a)-1] == '>')
}
