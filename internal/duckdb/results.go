package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-vcfanno/internal/annotate"
	"github.com/inodb/vibe-vcfanno/internal/frequency"
)

// ResultRow is one stored annotation result.
type ResultRow struct {
	Chrom           string
	Pos             int64
	ID              string
	Ref             string
	Alt             string
	Qual            sql.NullFloat64
	Filter          string
	Type            string
	Effect          string
	EffectRank      int
	Impact          string
	Depth           int
	Support         int
	SupportPct      float64
	RefSupport      int
	AlleleSupport   int
	CoverageMissing bool
	AlleleFreq      sql.NullFloat64
	FreqStatus      string
	Extra           map[string]string
}

// WriteRecords batch-inserts annotation records using the Appender API.
// Allele frequency is stored as NULL when it is not available.
func (s *Store) WriteRecords(records []*annotate.Record) error {
	if len(records) == 0 {
		return nil
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "annotation_results")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, r := range records {
		v := r.Variant

		var qual, af any
		if v.Qual != nil {
			qual = *v.Qual
		}
		if r.Frequency.Available() {
			af = r.Frequency.AF
		}

		var extra any
		if len(r.Extra) > 0 {
			b, err := json.Marshal(r.Extra)
			if err != nil {
				return fmt.Errorf("encode extra annotations: %w", err)
			}
			extra = string(b)
		}

		c := r.Classification
		m := r.Metrics
		if err := appender.AppendRow(
			v.Chrom, v.Pos, v.ID, v.Ref, v.Alt, qual, v.Filter,
			c.Type.String(), c.Effect, int32(c.Rank), c.Impact,
			int64(m.Depth), int64(m.Support), m.Percent, int64(m.RefSupport), int64(m.AlleleSupport),
			r.CoverageMissing, af, r.Frequency.Status.String(), extra,
		); err != nil {
			return fmt.Errorf("append annotation result: %w", err)
		}
	}

	return appender.Flush()
}

// ClearResults removes all stored annotation results.
func (s *Store) ClearResults() error {
	_, err := s.db.Exec("DELETE FROM annotation_results")
	return err
}

// CountResults returns the number of stored annotation results.
func (s *Store) CountResults() (int64, error) {
	var n int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM annotation_results").Scan(&n); err != nil {
		return 0, fmt.Errorf("count annotation results: %w", err)
	}
	return n, nil
}

const resultColumns = `chrom, pos, variant_id, ref, alt, qual, filter,
		variation_type, effect, effect_rank, impact,
		depth, support, support_pct, ref_support, allele_support,
		coverage_missing, allele_freq, freq_status, extra`

// LookupVariant returns stored results for one variant allele. Chromosomes
// match with or without a "chr" prefix and alleles ignore case.
func (s *Store) LookupVariant(chrom string, pos int64, ref, alt string) ([]ResultRow, error) {
	chrom = strings.TrimPrefix(strings.TrimPrefix(chrom, "chr"), "CHR")
	rows, err := s.db.Query(`SELECT `+resultColumns+`
		FROM annotation_results
		WHERE (chrom=? OR lower(chrom)='chr' || lower(?)) AND pos=?
			AND upper(ref)=upper(?) AND upper(alt)=upper(?)
		ORDER BY chrom`,
		chrom, chrom, pos, ref, alt)
	if err != nil {
		return nil, fmt.Errorf("query variant: %w", err)
	}
	defer rows.Close()

	return scanResultRows(rows)
}

// SearchByEffect returns stored results whose selected effect matches.
func (s *Store) SearchByEffect(effect string) ([]ResultRow, error) {
	rows, err := s.db.Query(`SELECT `+resultColumns+`
		FROM annotation_results
		WHERE effect=?
		ORDER BY chrom, pos`, effect)
	if err != nil {
		return nil, fmt.Errorf("query by effect: %w", err)
	}
	defer rows.Close()

	return scanResultRows(rows)
}

// SearchRare returns stored results with a known allele frequency below
// maxAF, the usual filter for candidate pathogenic variants.
func (s *Store) SearchRare(maxAF float64) ([]ResultRow, error) {
	rows, err := s.db.Query(`SELECT `+resultColumns+`
		FROM annotation_results
		WHERE freq_status=? AND allele_freq < ?
		ORDER BY allele_freq, chrom, pos`, frequency.StatusFound.String(), maxAF)
	if err != nil {
		return nil, fmt.Errorf("query rare variants: %w", err)
	}
	defer rows.Close()

	return scanResultRows(rows)
}

// scanResultRows scans rows into ResultRow slices.
func scanResultRows(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]ResultRow, error) {
	var results []ResultRow
	for rows.Next() {
		var r ResultRow
		var id, extra sql.NullString
		if err := rows.Scan(
			&r.Chrom, &r.Pos, &id, &r.Ref, &r.Alt, &r.Qual, &r.Filter,
			&r.Type, &r.Effect, &r.EffectRank, &r.Impact,
			&r.Depth, &r.Support, &r.SupportPct, &r.RefSupport, &r.AlleleSupport,
			&r.CoverageMissing, &r.AlleleFreq, &r.FreqStatus, &extra,
		); err != nil {
			return nil, fmt.Errorf("scan annotation result: %w", err)
		}
		r.ID = id.String
		if extra.Valid && extra.String != "" {
			if err := json.Unmarshal([]byte(extra.String), &r.Extra); err != nil {
				return nil, fmt.Errorf("decode extra annotations: %w", err)
			}
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate annotation results: %w", err)
	}
	return results, nil
}

// defaultBatchSize is the number of records buffered before an append.
const defaultBatchSize = 1000

// RecordWriter buffers annotation records and appends them to a Store.
// It implements annotate.RecordWriter.
type RecordWriter struct {
	store   *Store
	pending []*annotate.Record
	batch   int
}

// NewRecordWriter creates a writer appending to store.
func NewRecordWriter(store *Store) *RecordWriter {
	return &RecordWriter{store: store, batch: defaultBatchSize}
}

// WriteHeader is a no-op; the schema is created by Open.
func (w *RecordWriter) WriteHeader() error { return nil }

// Write buffers one record, appending the buffer once it is full.
func (w *RecordWriter) Write(r *annotate.Record) error {
	w.pending = append(w.pending, r)
	if len(w.pending) >= w.batch {
		return w.Flush()
	}
	return nil
}

// Flush appends all buffered records.
func (w *RecordWriter) Flush() error {
	if len(w.pending) == 0 {
		return nil
	}
	err := w.store.WriteRecords(w.pending)
	w.pending = w.pending[:0]
	return err
}
