package annotate

import (
	"errors"
	"fmt"

	"github.com/inodb/vibe-vcfanno/internal/coverage"
	"github.com/inodb/vibe-vcfanno/internal/frequency"
	"github.com/inodb/vibe-vcfanno/internal/vcf"
)

// Record is the annotation of one variant allele: the variant plus its
// classification, coverage metrics, allele frequency and any additional
// annotations contributed by sources.
type Record struct {
	Variant         *vcf.Variant
	Classification  Classification
	Metrics         coverage.Metrics
	CoverageMissing bool
	Frequency       frequency.Result
	Extra           map[string]string
}

// SetExtra sets a value in the record's Extra map.
func (r *Record) SetExtra(source, field, value string) {
	if r.Extra == nil {
		r.Extra = make(map[string]string)
	}
	r.Extra[source+"."+field] = value
}

// GetExtra returns a value from the record's Extra map.
func (r *Record) GetExtra(source, field string) string {
	if r.Extra == nil {
		return ""
	}
	return r.Extra[source+"."+field]
}

// Derived holds the locally computed parts of a record.
type Derived struct {
	Classification  Classification
	Metrics         coverage.Metrics
	CoverageMissing bool
}

// Derive classifies v and computes its coverage metrics. Missing coverage
// data yields zero metrics and sets CoverageMissing.
func Derive(c *Classifier, v *vcf.Variant) Derived {
	d := Derived{Classification: c.Classify(v)}
	m, err := coverage.Calculate(v.Format, v.Info, v.AltIndex)
	if errors.Is(err, coverage.ErrMissingCoverageData) {
		d.CoverageMissing = true
	}
	d.Metrics = m
	return d
}

// Aggregate joins variants with their derived values and frequency results
// into one record per variant, in the order of variants. derived must be
// parallel to variants. A variant whose key is absent from freqs gets a
// LookupFailed result.
func Aggregate(variants []*vcf.Variant, derived []Derived, freqs map[frequency.Key]frequency.Result) ([]*Record, error) {
	if len(derived) != len(variants) {
		return nil, fmt.Errorf("aggregate: %d variants but %d derived results", len(variants), len(derived))
	}

	records := make([]*Record, len(variants))
	for i, v := range variants {
		fr, ok := freqs[frequency.KeyFor(v)]
		if !ok {
			fr = frequency.Failed()
		}
		records[i] = &Record{
			Variant:         v,
			Classification:  derived[i].Classification,
			Metrics:         derived[i].Metrics,
			CoverageMissing: derived[i].CoverageMissing,
			Frequency:       fr,
		}
	}
	return records, nil
}
