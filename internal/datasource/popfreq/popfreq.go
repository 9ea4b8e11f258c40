// Package popfreq provides population allele frequency lookups backed by
// DuckDB. Frequencies are loaded from a TSV export of a population database
// (ExAC, gnomAD) and served through the frequency.Source interface, so a
// local table can stand in for the remote REST service.
package popfreq

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

// maxBatchKeys bounds the keys bound into one VALUES list.
const maxBatchKeys = 1000

// Store provides allele frequency lookups backed by DuckDB.
type Store struct {
	db       *sql.DB
	lookupPS *sql.Stmt
}

// Open opens or creates a DuckDB database for allele frequencies at the given
// path. An empty path opens an in-memory database.
func Open(dbPath string) (*Store, error) {
	if dbPath != "" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
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
		"SELECT af FROM allele_frequencies WHERE chrom=? AND pos=? AND ref=? AND alt=? LIMIT 1",
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare lookup: %w", err)
	}
	s.lookupPS = ps

	return s, nil
}

func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS allele_frequencies (
		chrom VARCHAR,
		pos BIGINT,
		ref VARCHAR,
		alt VARCHAR,
		af DOUBLE
	)`); err != nil {
		return err
	}
	// Index for fast point lookups
	s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_af_lookup ON allele_frequencies (chrom, pos, ref, alt)`)
	return nil
}

// Loaded returns true if the frequency table has data.
func (s *Store) Loaded() bool {
	n, err := s.Count()
	return err == nil && n > 0
}

// Count returns the number of rows in the frequency table.
func (s *Store) Count() (int64, error) {
	var count int64
	err := s.db.QueryRow("SELECT COUNT(*) FROM allele_frequencies").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count allele frequency rows: %w", err)
	}
	return count, nil
}

// Load bulk-loads frequencies from a plain or gzipped TSV using DuckDB's
// read_csv, replacing any existing rows. The file has one header line:
//
//	#CHROM  POS  REF  ALT  AF
//
// Chromosomes are stored without a "chr" prefix and alleles upper-cased,
// matching frequency.Key. Rows with an AF outside [0, 1] are dropped.
func (s *Store) Load(tsvPath string) (int64, error) {
	if _, err := os.Stat(tsvPath); err != nil {
		return 0, fmt.Errorf("loading allele frequencies: %w", err)
	}

	// Clear any existing data first (idempotent reload)
	if _, err := s.db.Exec(`DELETE FROM allele_frequencies`); err != nil {
		return 0, fmt.Errorf("clear allele frequencies: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO allele_frequencies
		SELECT
			CASE WHEN lower(column0) LIKE 'chr%%' AND length(column0) > 3
				THEN substr(column0, 4) ELSE column0 END,
			column1, upper(column2), upper(column3), column4
		FROM read_csv('%s', delim='\t', header=false, skip=1,
			columns={
				'column0': 'VARCHAR',
				'column1': 'BIGINT',
				'column2': 'VARCHAR',
				'column3': 'VARCHAR',
				'column4': 'DOUBLE'
			})
		WHERE column4 IS NOT NULL AND column4 BETWEEN 0 AND 1`, strings.ReplaceAll(tsvPath, "'", "''"))

	res, err := s.db.Exec(query)
	if err != nil {
		return 0, fmt.Errorf("loading allele frequencies: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Insert adds or replaces individual frequencies in one transaction. Bulk
// data should go through Load.
func (s *Store) Insert(ctx context.Context, afs map[frequency.Key]float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	del, err := tx.PrepareContext(ctx, "DELETE FROM allele_frequencies WHERE chrom=? AND pos=? AND ref=? AND alt=?")
	if err != nil {
		return fmt.Errorf("prepare delete: %w", err)
	}
	defer del.Close()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO allele_frequencies VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for k, af := range afs {
		if err := frequency.CheckFrequency(af); err != nil {
			return fmt.Errorf("insert %s: %w", k, err)
		}
		if _, err := del.ExecContext(ctx, k.Chrom, k.Pos, k.Ref, k.Alt); err != nil {
			return fmt.Errorf("replace %s: %w", k, err)
		}
		if _, err := stmt.ExecContext(ctx, k.Chrom, k.Pos, k.Ref, k.Alt, af); err != nil {
			return fmt.Errorf("insert %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// Query returns the allele frequency of k, or frequency.ErrNotFound.
func (s *Store) Query(ctx context.Context, k frequency.Key) (float64, error) {
	var af float64
	err := s.lookupPS.QueryRowContext(ctx, k.Chrom, k.Pos, k.Ref, k.Alt).Scan(&af)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, frequency.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lookup %s: %w", k, err)
	}
	if err := frequency.CheckFrequency(af); err != nil {
		return 0, err
	}
	return af, nil
}

// QueryBatch returns results for all keys present in the table, joining
// the keys as an inline VALUES list. Keys absent from the result are
// definitive misses; a stored frequency outside [0, 1] comes back Failed.
func (s *Store) QueryBatch(ctx context.Context, keys []frequency.Key) (map[frequency.Key]frequency.Result, error) {
	results := make(map[frequency.Key]frequency.Result, len(keys))

	for start := 0; start < len(keys); start += maxBatchKeys {
		chunk := keys[start:min(start+maxBatchKeys, len(keys))]

		var sb strings.Builder
		args := make([]any, 0, 4*len(chunk))
		sb.WriteString("WITH batch_keys(chrom, pos, ref, alt) AS (VALUES ")
		for i, k := range chunk {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString("(?, CAST(? AS BIGINT), ?, ?)")
			args = append(args, k.Chrom, k.Pos, k.Ref, k.Alt)
		}
		sb.WriteString(`)
		SELECT b.chrom, b.pos, b.ref, b.alt, a.af
		FROM batch_keys b
		JOIN allele_frequencies a ON a.chrom=b.chrom AND a.pos=b.pos AND a.ref=b.ref AND a.alt=b.alt`)

		if err := s.collect(ctx, sb.String(), args, results); err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (s *Store) collect(ctx context.Context, query string, args []any, results map[frequency.Key]frequency.Result) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("batch lookup query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k frequency.Key
		var af float64
		if err := rows.Scan(&k.Chrom, &k.Pos, &k.Ref, &k.Alt, &af); err != nil {
			return fmt.Errorf("scan batch result: %w", err)
		}
		if _, exists := results[k]; exists {
			continue
		}
		if frequency.CheckFrequency(af) != nil {
			results[k] = frequency.Failed()
			continue
		}
		results[k] = frequency.Found(af)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("batch lookup rows: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.lookupPS != nil {
		s.lookupPS.Close()
	}
	return s.db.Close()
}
