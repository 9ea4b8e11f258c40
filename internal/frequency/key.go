// Package frequency resolves population allele frequencies from a remote
// service through a run-scoped cache and a bounded pool of lookup workers.
package frequency

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/inodb/vibe-vcfanno/internal/vcf"
)

// Key identifies one variant allele for a frequency lookup.
type Key struct {
	Chrom string
	Pos   int64
	Ref   string
	Alt   string
}

// NewKey builds a normalized key: no "chr" prefix and upper-case alleles.
func NewKey(chrom string, pos int64, ref, alt string) Key {
	return Key{
		Chrom: vcf.NormalizeChrom(chrom),
		Pos:   pos,
		Ref:   strings.ToUpper(ref),
		Alt:   strings.ToUpper(alt),
	}
}

// KeyFor returns the normalized key of a variant.
func KeyFor(v *vcf.Variant) Key {
	return NewKey(v.Chrom, v.Pos, v.Ref, v.Alt)
}

// String formats the key as "chrom-pos-ref-alt", the variant id form used by
// the ExAC REST API.
func (k Key) String() string {
	return k.Chrom + "-" + strconv.FormatInt(k.Pos, 10) + "-" + k.Ref + "-" + k.Alt
}

// ParseKey parses a "chrom-pos-ref-alt" variant id. Chromosome names may
// carry a "chr" prefix; they must not contain '-'.
func ParseKey(id string) (Key, error) {
	parts := strings.Split(strings.TrimSpace(id), "-")
	if len(parts) != 4 {
		return Key{}, fmt.Errorf("variant id %q: want chrom-pos-ref-alt", id)
	}
	pos, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || pos < 1 {
		return Key{}, fmt.Errorf("variant id %q: invalid position %q", id, parts[1])
	}
	for _, p := range []string{parts[0], parts[2], parts[3]} {
		if p == "" {
			return Key{}, fmt.Errorf("variant id %q: empty field", id)
		}
	}
	return NewKey(parts[0], pos, parts[2], parts[3]), nil
}
