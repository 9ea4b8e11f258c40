package alphamissense

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/inodb/vibe-vcfanno/internal/annotate"
	"github.com/inodb/vibe-vcfanno/internal/frequency"
)

// Source wraps an AlphaMissense Store as an annotate.AnnotationSource.
type Source struct {
	store  *Store
	logger *zap.Logger
}

// NewSource creates an AnnotationSource backed by the given Store.
func NewSource(store *Store) *Source {
	return &Source{store: store, logger: zap.NewNop()}
}

// SetLogger sets the logger for lookup errors.
func (s *Source) SetLogger(l *zap.Logger) {
	s.logger = l
}

func (s *Source) Name() string    { return "alphamissense" }
func (s *Source) Version() string { return "2023" }

func (s *Source) Columns() []annotate.ColumnDef {
	return []annotate.ColumnDef{
		{Name: "score", Description: "Pathogenicity score (0-1)"},
		{Name: "class", Description: "likely_benign/ambiguous/likely_pathogenic"},
	}
}

// Annotate adds AlphaMissense scores to substitutions whose most severe
// effect is missense.
func (s *Source) Annotate(ctx context.Context, r *annotate.Record) {
	if r.Classification.Type != annotate.TypeSubstitution ||
		r.Classification.Effect != annotate.ConsequenceMissenseVariant {
		return
	}
	res, ok, err := s.store.Lookup(ctx, frequency.KeyFor(r.Variant))
	if err != nil {
		s.logger.Warn("alphamissense lookup failed", zap.Error(err))
		return
	}
	if ok {
		r.SetExtra("alphamissense", "score", strconv.FormatFloat(res.Score, 'f', 4, 64))
		r.SetExtra("alphamissense", "class", res.Class)
	}
}
