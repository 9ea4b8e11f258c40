package annotate

import (
	"fmt"
	"strings"
)

// DefaultSeverityOrder lists consequence terms from most to least deleterious.
// A term's rank is its index.
var DefaultSeverityOrder = []string{
	ConsequenceStopGained,
	ConsequenceFrameshiftVariant,
	ConsequenceStopLost,
	ConsequenceStartLost,
	ConsequenceSpliceAcceptor,
	ConsequenceSpliceDonor,
	ConsequenceSpliceSite,
	ConsequenceCopyNumberChange,
	ConsequenceMissenseVariant,
	ConsequenceInframeInsertion,
	ConsequenceInframeDeletion,
	ConsequenceSpliceRegion,
	ConsequenceSynonymousVariant,
	ConsequenceStopRetained,
	ConsequenceStartRetained,
	ConsequenceCodingSequenceVariant,
	Consequence5PrimeUTR,
	Consequence3PrimeUTR,
	ConsequenceNonCodingExon,
	ConsequenceIntronVariant,
	ConsequenceUpstreamGene,
	ConsequenceDownstreamGene,
	ConsequenceIntergenicVariant,
	ConsequenceUnknown,
}

// consequenceAliases maps informal or legacy effect names to SO terms.
var consequenceAliases = map[string]string{
	"nonsense":          ConsequenceStopGained,
	"stop_gain":         ConsequenceStopGained,
	"stopgain":          ConsequenceStopGained,
	"frameshift":        ConsequenceFrameshiftVariant,
	"splice_site":       ConsequenceSpliceSite,
	"missense":          ConsequenceMissenseVariant,
	"non_synonymous":    ConsequenceMissenseVariant,
	"silent":            ConsequenceSynonymousVariant,
	"synonymous":        ConsequenceSynonymousVariant,
	"intergenic":        ConsequenceIntergenicVariant,
	"intergenic_region": ConsequenceIntergenicVariant,
	"cnv":               ConsequenceCopyNumberChange,
}

// SeverityTable ranks consequence terms; lower rank is more deleterious.
// Ranks are distinct, so the most severe of any candidate set is unique.
type SeverityTable struct {
	order []string
	ranks map[string]int // lower-cased term -> rank
}

// NewSeverityTable builds a table from terms ordered most to least severe.
// "unknown" is appended as the least severe term when absent.
func NewSeverityTable(order []string) (*SeverityTable, error) {
	if len(order) == 0 {
		return nil, fmt.Errorf("severity table: no terms")
	}

	t := &SeverityTable{ranks: make(map[string]int, len(order)+1)}
	for _, term := range order {
		term = strings.TrimSpace(term)
		key := strings.ToLower(term)
		if key == "" {
			return nil, fmt.Errorf("severity table: empty term")
		}
		if _, dup := t.ranks[key]; dup {
			return nil, fmt.Errorf("severity table: duplicate term %q", term)
		}
		t.ranks[key] = len(t.order)
		t.order = append(t.order, term)
	}
	if _, ok := t.ranks[ConsequenceUnknown]; !ok {
		t.ranks[ConsequenceUnknown] = len(t.order)
		t.order = append(t.order, ConsequenceUnknown)
	}
	return t, nil
}

// DefaultSeverityTable returns the table for DefaultSeverityOrder.
func DefaultSeverityTable() *SeverityTable {
	t, err := NewSeverityTable(DefaultSeverityOrder)
	if err != nil {
		panic(err)
	}
	return t
}

// Canonical maps a raw consequence term onto a table term. Terms that are
// neither in the table nor a known alias map to "unknown".
func (t *SeverityTable) Canonical(term string) string {
	key := strings.ToLower(strings.TrimSpace(term))
	if rank, ok := t.ranks[key]; ok {
		return t.order[rank]
	}
	if alias, ok := consequenceAliases[key]; ok {
		if rank, ok := t.ranks[strings.ToLower(alias)]; ok {
			return t.order[rank]
		}
	}
	return t.order[t.ranks[ConsequenceUnknown]]
}

// Rank returns the rank of a term after canonicalization.
func (t *SeverityTable) Rank(term string) int {
	return t.ranks[strings.ToLower(t.Canonical(term))]
}

// MostSevere returns the lowest-ranked candidate and its rank.
// Returns "", -1 when there are no candidates.
func (t *SeverityTable) MostSevere(candidates []string) (string, int) {
	best, bestRank := "", -1
	for _, c := range candidates {
		term := t.Canonical(c)
		rank := t.ranks[strings.ToLower(term)]
		if bestRank < 0 || rank < bestRank {
			best, bestRank = term, rank
		}
	}
	return best, bestRank
}

// Terms returns the table's terms from most to least severe.
func (t *SeverityTable) Terms() []string {
	return append([]string(nil), t.order...)
}
