// Package annotate classifies variants and assembles per-variant annotation records.
package annotate

import "strings"

// Impact levels for variant consequences.
const (
	ImpactHigh     = "HIGH"
	ImpactModerate = "MODERATE"
	ImpactLow      = "LOW"
	ImpactModifier = "MODIFIER"
)

// Consequence types (Sequence Ontology terms).
const (
	// HIGH impact
	ConsequenceStopGained        = "stop_gained"
	ConsequenceFrameshiftVariant = "frameshift_variant"
	ConsequenceStopLost          = "stop_lost"
	ConsequenceStartLost         = "start_lost"
	ConsequenceSpliceAcceptor    = "splice_acceptor_variant"
	ConsequenceSpliceDonor       = "splice_donor_variant"
	ConsequenceSpliceSite        = "splice_site_variant"
	ConsequenceCopyNumberChange  = "copy_number_change"

	// MODERATE impact
	ConsequenceMissenseVariant  = "missense_variant"
	ConsequenceInframeInsertion = "inframe_insertion"
	ConsequenceInframeDeletion  = "inframe_deletion"

	// LOW impact
	ConsequenceSpliceRegion          = "splice_region_variant"
	ConsequenceSynonymousVariant     = "synonymous_variant"
	ConsequenceStopRetained          = "stop_retained_variant"
	ConsequenceStartRetained         = "start_retained_variant"
	ConsequenceCodingSequenceVariant = "coding_sequence_variant"

	// MODIFIER impact
	Consequence5PrimeUTR         = "5_prime_UTR_variant"
	Consequence3PrimeUTR         = "3_prime_UTR_variant"
	ConsequenceNonCodingExon     = "non_coding_transcript_exon_variant"
	ConsequenceIntronVariant     = "intron_variant"
	ConsequenceUpstreamGene      = "upstream_gene_variant"
	ConsequenceDownstreamGene    = "downstream_gene_variant"
	ConsequenceIntergenicVariant = "intergenic_variant"
	ConsequenceUnknown           = "unknown"
)

// GetImpact returns the impact level for a given consequence type.
// For comma-separated consequences, returns the highest impact among all terms.
func GetImpact(consequence string) string {
	best := ImpactModifier
	for rest := consequence; rest != ""; {
		term := rest
		if i := strings.IndexByte(rest, ','); i >= 0 {
			term = rest[:i]
			rest = rest[i+1:]
		} else {
			rest = ""
		}
		var impact string
		switch term {
		case ConsequenceStopGained, ConsequenceFrameshiftVariant,
			ConsequenceStopLost, ConsequenceStartLost,
			ConsequenceSpliceAcceptor, ConsequenceSpliceDonor,
			ConsequenceSpliceSite, ConsequenceCopyNumberChange:
			impact = ImpactHigh
		case ConsequenceMissenseVariant, ConsequenceInframeInsertion,
			ConsequenceInframeDeletion:
			impact = ImpactModerate
		case ConsequenceSynonymousVariant, ConsequenceSpliceRegion,
			ConsequenceStopRetained, ConsequenceStartRetained,
			ConsequenceCodingSequenceVariant:
			impact = ImpactLow
		default:
			impact = ImpactModifier
		}
		if ImpactRank(impact) > ImpactRank(best) {
			best = impact
		}
	}
	return best
}

// ImpactRank returns numeric rank for impact comparison (higher = more severe).
func ImpactRank(impact string) int {
	switch impact {
	case ImpactHigh:
		return 3
	case ImpactModerate:
		return 2
	case ImpactLow:
		return 1
	default:
		return 0
	}
}
