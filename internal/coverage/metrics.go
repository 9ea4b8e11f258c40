// Package coverage derives read depth and allele support from VCF FORMAT/INFO fields.
package coverage

import (
	"errors"
	"strconv"
	"strings"
)

// ErrMissingCoverageData is returned when neither a depth nor an allele-depth field is present.
var ErrMissingCoverageData = errors.New("missing coverage data")

// Metrics holds read-count derived values for one variant.
type Metrics struct {
	Depth         int     // Total read depth at the site
	Support       int     // Reads supporting any ALT allele (REF excluded)
	Percent       float64 // Support / Depth * 100, 0 when Depth is 0
	RefSupport    int     // Reads supporting the REF allele
	AlleleSupport int     // Reads supporting this variant's own ALT allele
}

// Calculate derives metrics from the first sample's FORMAT values, falling back
// to INFO for each field. altIndex is the 1-based ALT index used for AlleleSupport.
//
// Allele depths come from AD (REF first) or from the RO/AO pair. When the
// reported depth is lower than the allele depth total it is raised to that
// total, so Support never exceeds Depth.
func Calculate(format, info map[string]string, altIndex int) (Metrics, error) {
	depth, hasDepth := lookupInt(format, info, "DP")
	alleles, hasAlleles := alleleDepths(format, info)
	if !hasDepth && !hasAlleles {
		return Metrics{}, ErrMissingCoverageData
	}

	var m Metrics
	if hasAlleles {
		m.RefSupport = alleles[0]
		for i, n := range alleles[1:] {
			m.Support += n
			if i+1 == altIndex {
				m.AlleleSupport = n
			}
		}
	}

	m.Depth = depth
	if !hasDepth || m.Support > m.Depth {
		m.Depth = m.RefSupport + m.Support
	}
	m.Percent = Percent(m.Support, m.Depth)

	return m, nil
}

// Percent returns support/depth*100 clamped to [0, 100]; 0 when depth is not positive.
func Percent(support, depth int) float64 {
	if depth <= 0 || support <= 0 {
		return 0
	}
	p := float64(support) / float64(depth) * 100
	if p > 100 {
		return 100
	}
	return p
}

// alleleDepths returns per-allele read counts with REF at index 0.
func alleleDepths(format, info map[string]string) ([]int, bool) {
	if raw, ok := lookup(format, info, "AD"); ok {
		if counts, ok := parseCounts(raw); ok && len(counts) > 0 {
			return counts, true
		}
	}

	// freebayes-style RO (reference observations) / AO (alternate observations).
	for _, m := range []map[string]string{format, info} {
		ao, ok := present(m, "AO")
		if !ok {
			continue
		}
		alts, ok := parseCounts(ao)
		if !ok {
			continue
		}
		ref := 0
		if ro, ok := present(m, "RO"); ok {
			if n, err := strconv.Atoi(ro); err == nil && n >= 0 {
				ref = n
			}
		}
		return append([]int{ref}, alts...), true
	}

	return nil, false
}

// parseCounts parses a comma-separated list of non-negative integers.
// Missing components (".") count as zero.
func parseCounts(raw string) ([]int, bool) {
	parts := strings.Split(raw, ",")
	counts := make([]int, len(parts))
	for i, p := range parts {
		if p == "." {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, false
		}
		counts[i] = n
	}
	return counts, true
}

func lookupInt(format, info map[string]string, key string) (int, bool) {
	for _, m := range []map[string]string{format, info} {
		raw, ok := present(m, key)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			return n, true
		}
	}
	return 0, false
}

func lookup(format, info map[string]string, key string) (string, bool) {
	if v, ok := present(format, key); ok {
		return v, true
	}
	return present(info, key)
}

// present returns a value that is set and not the VCF missing marker.
func present(m map[string]string, key string) (string, bool) {
	v, ok := m[key]
	if !ok || v == "" || v == "." {
		return "", false
	}
	return v, true
}
