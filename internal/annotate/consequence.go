package annotate

import (
	"strings"

	"github.com/inodb/vibe-vcfanno/internal/vcf"
)

// consequenceKeys are INFO keys holding plain consequence lists.
var consequenceKeys = []string{"CONSEQUENCE", "Consequence", "EFFECT", "Effect"}

// geneKeys are INFO keys holding a gene symbol directly.
var geneKeys = []string{"GENE", "Gene", "SYMBOL"}

// Pipe-delimited annotation fields: VEP CSQ (Allele|Consequence|IMPACT|SYMBOL|...)
// and snpEff ANN (Allele|Annotation|Impact|Gene_Name|...) share column layout
// for the parts read here.
const (
	annAlleleField      = 0
	annConsequenceField = 1
	annGeneField        = 3
)

// Consequences collects candidate consequence terms from a variant's INFO field.
// Plain lists may be separated by ',' or '&'. CSQ/ANN entries are restricted
// to those whose allele matches the variant's ALT when any do.
func Consequences(v *vcf.Variant) []string {
	var terms []string
	for _, key := range consequenceKeys {
		if val, ok := v.Info[key]; ok {
			terms = appendTerms(terms, val)
		}
	}
	for _, key := range []string{"CSQ", "ANN"} {
		for _, fields := range annotationEntries(v, key) {
			if len(fields) > annConsequenceField {
				terms = appendTerms(terms, fields[annConsequenceField])
			}
		}
	}
	return terms
}

// GeneSymbol returns the first gene symbol found in INFO, or "".
func GeneSymbol(v *vcf.Variant) string {
	for _, key := range geneKeys {
		if g := strings.TrimSpace(v.Info[key]); g != "" && g != "." {
			return g
		}
	}
	// dbSNP style: GENEINFO=BRCA1:672|NBR2:10230
	if gi := v.Info["GENEINFO"]; gi != "" && gi != "." {
		sym, _, _ := strings.Cut(gi, ":")
		if sym != "" {
			return sym
		}
	}
	for _, key := range []string{"CSQ", "ANN"} {
		for _, fields := range annotationEntries(v, key) {
			if len(fields) > annGeneField && fields[annGeneField] != "" {
				return fields[annGeneField]
			}
		}
	}
	return ""
}

// annotationEntries splits a CSQ/ANN value into per-entry fields, keeping only
// entries for the variant's allele when at least one entry matches.
func annotationEntries(v *vcf.Variant, key string) [][]string {
	raw, ok := v.Info[key]
	if !ok || raw == "" {
		return nil
	}

	var all, matched [][]string
	for _, entry := range strings.Split(raw, ",") {
		fields := strings.Split(entry, "|")
		all = append(all, fields)
		if alleleMatches(fields[annAlleleField], v.Ref, v.Alt) {
			matched = append(matched, fields)
		}
	}
	if len(matched) > 0 {
		return matched
	}
	return all
}

// alleleMatches compares an annotation's allele column with a VCF ALT.
// VEP trims the shared leading base of indels and writes "-" for deletions.
func alleleMatches(allele, ref, alt string) bool {
	if allele == "" {
		return false
	}
	if strings.EqualFold(allele, alt) {
		return true
	}
	if len(ref) > 0 && len(alt) > 0 && ref[0] == alt[0] {
		trimmed := alt[1:]
		if trimmed == "" {
			return allele == "-"
		}
		return strings.EqualFold(allele, trimmed)
	}
	return false
}

func appendTerms(terms []string, raw string) []string {
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '&' }) {
		part = strings.TrimSpace(part)
		if part == "" || part == "." {
			continue
		}
		terms = append(terms, part)
	}
	return terms
}
