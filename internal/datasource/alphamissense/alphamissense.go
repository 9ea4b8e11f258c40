// Package alphamissense provides AlphaMissense pathogenicity score lookups
// backed by DuckDB. AlphaMissense data is loaded from the official TSV files
// (Cheng et al., Science 2023, CC BY 4.0).
package alphamissense

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-vcfanno/internal/frequency"
)

// Store provides AlphaMissense score lookups backed by DuckDB.
type Store struct {
	db       *sql.DB
	lookupPS *sql.Stmt
}

// Result holds a single AlphaMissense lookup result.
type Result struct {
	Score float64
	Class string // likely_benign, ambiguous or likely_pathogenic
}

// Open opens or creates a DuckDB database for AlphaMissense data at the given
// path. An empty path opens an in-memory database.
func Open(dbPath string) (*Store, error) {
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	ps, err := db.Prepare(
		"SELECT am_pathogenicity, am_class FROM alphamissense WHERE chrom=? AND pos=? AND ref=? AND alt=? LIMIT 1",
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare lookup: %w", err)
	}
	s.lookupPS = ps

	return s, nil
}

func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS alphamissense (
		chrom VARCHAR,
		pos BIGINT,
		ref VARCHAR,
		alt VARCHAR,
		am_pathogenicity FLOAT,
		am_class VARCHAR
	)`); err != nil {
		return err
	}
	s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_am_lookup ON alphamissense (chrom, pos, ref, alt)`)
	return nil
}

// Loaded returns true if the AlphaMissense table has data.
func (s *Store) Loaded() bool {
	n, err := s.Count()
	return err == nil && n > 0
}

// Count returns the number of rows in the AlphaMissense table.
func (s *Store) Count() (int64, error) {
	var count int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM alphamissense").Scan(&count); err != nil {
		return 0, fmt.Errorf("count alphamissense rows: %w", err)
	}
	return count, nil
}

// Load bulk-loads AlphaMissense data from a plain or gzipped TSV using
// DuckDB's read_csv, replacing existing rows. The file has 3 comment lines,
// then a header:
//
//	#CHROM  POS  REF  ALT  genome  uniprot_id  transcript_id  protein_variant  am_pathogenicity  am_class
//
// The file has one row per transcript; rows are collapsed to one per
// variant. Chromosomes are stored without the "chr" prefix.
func (s *Store) Load(tsvPath string) (int64, error) {
	if _, err := os.Stat(tsvPath); err != nil {
		return 0, fmt.Errorf("loading AlphaMissense data: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM alphamissense`); err != nil {
		return 0, fmt.Errorf("clear alphamissense: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO alphamissense
		SELECT chrom, pos, ref, alt, max(score), arg_max(class, score)
		FROM (
			SELECT
				CASE WHEN lower(column0) LIKE 'chr%%' AND length(column0) > 3
					THEN substr(column0, 4) ELSE column0 END AS chrom,
				column1 AS pos, upper(column2) AS ref, upper(column3) AS alt,
				CAST(column8 AS FLOAT) AS score, column9 AS class
			FROM read_csv('%s', delim='\t', header=false, skip=4,
				columns={
					'column0': 'VARCHAR',
					'column1': 'BIGINT',
					'column2': 'VARCHAR',
					'column3': 'VARCHAR',
					'column4': 'VARCHAR',
					'column5': 'VARCHAR',
					'column6': 'VARCHAR',
					'column7': 'VARCHAR',
					'column8': 'VARCHAR',
					'column9': 'VARCHAR'
				})
		)
		GROUP BY chrom, pos, ref, alt`, strings.ReplaceAll(tsvPath, "'", "''"))

	res, err := s.db.Exec(query)
	if err != nil {
		return 0, fmt.Errorf("loading AlphaMissense data: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Lookup returns the score of the single-nucleotide variant k. The boolean
// is false when the variant has no score.
func (s *Store) Lookup(ctx context.Context, k frequency.Key) (Result, bool, error) {
	if len(k.Ref) != 1 || len(k.Alt) != 1 {
		return Result{}, false, nil
	}
	var r Result
	err := s.lookupPS.QueryRowContext(ctx, k.Chrom, k.Pos, k.Ref, k.Alt).Scan(&r.Score, &r.Class)
	if errors.Is(err, sql.ErrNoRows) {
		return Result{}, false, nil
	}
	if err != nil {
		return Result{}, false, fmt.Errorf("alphamissense lookup %s: %w", k, err)
	}
	return r, true, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.lookupPS != nil {
		s.lookupPS.Close()
	}
	return s.db.Close()
}
