// Package annotate classifies variants and assembles per-variant annotation records.
package annotate

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/vibe-vcfanno/internal/frequency"
	"github.com/inodb/vibe-vcfanno/internal/vcf"
)

// DefaultChunkSize is the number of variants resolved together.
const DefaultChunkSize = 200

var (
	// ErrNoVariants is returned when the input holds no usable variants.
	ErrNoVariants = errors.New("no variants in input")

	// ErrRemoteUnreachable is returned when the frequency service gave no
	// definitive answer to any lookup of the first chunk that needed one.
	ErrRemoteUnreachable = errors.New("frequency service unreachable")
)

// FrequencyResolver resolves allele frequencies for a set of keys.
type FrequencyResolver interface {
	Resolve(ctx context.Context, keys []frequency.Key) map[frequency.Key]frequency.Result
}

// reachabilityReporter is implemented by resolvers that can tell whether
// their backend has answered at all.
type reachabilityReporter interface {
	Reachable() bool
	Stats() frequency.Stats
}

// Summary counts what happened during a run.
type Summary struct {
	Records         int // well-formed VCF data lines
	Malformed       int // data lines skipped as malformed
	Variants        int // annotation records written (one per ALT allele)
	CoverageMissing int
	Found           int
	NotFound        int
	LookupFailed    int
}

// Annotator turns VCF records into annotation records.
type Annotator struct {
	classifier *Classifier
	resolver   FrequencyResolver
	sources    []AnnotationSource
	chunkSize  int
	logger     *zap.Logger
}

// NewAnnotator creates an annotator. A nil classifier uses the default
// severity table.
func NewAnnotator(classifier *Classifier, resolver FrequencyResolver) *Annotator {
	if classifier == nil {
		classifier = NewClassifier(nil)
	}
	return &Annotator{
		classifier: classifier,
		resolver:   resolver,
		chunkSize:  DefaultChunkSize,
		logger:     zap.NewNop(),
	}
}

// SetLogger sets the logger for warning and info messages.
func (a *Annotator) SetLogger(l *zap.Logger) {
	a.logger = l
}

// SetChunkSize sets how many variants are resolved and written together.
func (a *Annotator) SetChunkSize(n int) {
	if n <= 0 {
		n = DefaultChunkSize
	}
	a.chunkSize = n
}

// AddSource registers an additional annotation source.
func (a *Annotator) AddSource(s AnnotationSource) {
	a.sources = append(a.sources, s)
}

// Sources returns the registered annotation sources.
func (a *Annotator) Sources() []AnnotationSource {
	return a.sources
}

// AnnotateVariants annotates variants and returns one record per variant in
// the same order.
func (a *Annotator) AnnotateVariants(ctx context.Context, variants []*vcf.Variant) ([]*Record, error) {
	derived := make([]Derived, len(variants))
	keys := make([]frequency.Key, len(variants))
	for i, v := range variants {
		derived[i] = Derive(a.classifier, v)
		keys[i] = frequency.KeyFor(v)
	}

	var freqs map[frequency.Key]frequency.Result
	if a.resolver != nil && len(keys) > 0 {
		freqs = a.resolver.Resolve(ctx, keys)
	}

	records, err := Aggregate(variants, derived, freqs)
	if err != nil {
		return nil, err
	}

	for _, r := range records {
		for _, src := range a.sources {
			src.Annotate(ctx, r)
		}
	}
	return records, nil
}

// AnnotateAll annotates all records from a parser, writing results in input
// order. Malformed lines are logged and skipped.
func (a *Annotator) AnnotateAll(ctx context.Context, parser vcf.RecordParser, writer RecordWriter) (Summary, error) {
	var (
		sum          Summary
		chunk        []*vcf.Variant
		reachChecked bool
	)

	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		records, err := a.AnnotateVariants(ctx, chunk)
		if err != nil {
			return err
		}
		chunk = chunk[:0]

		// A run cut short by its own deadline or a signal says nothing about
		// the service; those lookups are reported as LookupFailed rows.
		if !reachChecked && ctx.Err() == nil {
			if rr, ok := a.resolver.(reachabilityReporter); ok && rr.Stats().RemoteCalls > 0 {
				reachChecked = true
				if !rr.Reachable() {
					return ErrRemoteUnreachable
				}
			}
		}

		for _, r := range records {
			if err := writer.Write(r); err != nil {
				return fmt.Errorf("write record: %w", err)
			}
			sum.add(r)
		}
		return nil
	}

	for {
		rec, err := parser.Next()
		if err != nil {
			if errors.Is(err, vcf.ErrMalformedRecord) {
				sum.Malformed++
				a.logger.Warn("skipping malformed record", zap.Error(err))
				continue
			}
			return sum, fmt.Errorf("read variant: %w", err)
		}
		if rec == nil {
			break
		}
		sum.Records++

		chunk = append(chunk, rec.Variants()...)
		if len(chunk) >= a.chunkSize {
			if err := flush(); err != nil {
				return sum, err
			}
		}
	}
	if err := flush(); err != nil {
		return sum, err
	}

	if sum.Records == 0 {
		a.logger.Info("0 variants processed", zap.Int("malformed", sum.Malformed))
		return sum, ErrNoVariants
	}

	a.logger.Info("annotation complete",
		zap.Int("records", sum.Records),
		zap.Int("variants", sum.Variants),
		zap.Int("malformed", sum.Malformed),
		zap.Int("coverage_missing", sum.CoverageMissing),
		zap.Int("af_found", sum.Found),
		zap.Int("af_not_found", sum.NotFound),
		zap.Int("af_failed", sum.LookupFailed))

	return sum, writer.Flush()
}

func (s *Summary) add(r *Record) {
	s.Variants++
	if r.CoverageMissing {
		s.CoverageMissing++
	}
	switch r.Frequency.Status {
	case frequency.StatusFound:
		s.Found++
	case frequency.StatusNotFound:
		s.NotFound++
	default:
		s.LookupFailed++
	}
}

// RecordWriter defines the interface for writing annotation records.
type RecordWriter interface {
	WriteHeader() error
	Write(r *Record) error
	Flush() error
}
