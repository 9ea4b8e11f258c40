// Package duckdb persists annotation records to a DuckDB database so a run's
// output can be queried with SQL.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/multierr"
)

// Store manages a DuckDB connection holding annotation results.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		return nil, multierr.Append(fmt.Errorf("ensure schema: %w", err), db.Close())
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database path, empty for in-memory databases.
func (s *Store) Path() string {
	return s.path
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS annotation_results (
		chrom VARCHAR,
		pos BIGINT,
		variant_id VARCHAR,
		ref VARCHAR,
		alt VARCHAR,
		qual DOUBLE,
		filter VARCHAR,
		variation_type VARCHAR,
		effect VARCHAR,
		effect_rank INTEGER,
		impact VARCHAR,
		depth BIGINT,
		support BIGINT,
		support_pct DOUBLE,
		ref_support BIGINT,
		allele_support BIGINT,
		coverage_missing BOOLEAN,
		allele_freq DOUBLE,
		freq_status VARCHAR,
		extra VARCHAR
	)`); err != nil {
		return err
	}
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS annotation_runs (
		input_path VARCHAR,
		input_size BIGINT,
		input_mod_time TIMESTAMP,
		finished_at TIMESTAMP,
		records INTEGER,
		malformed INTEGER,
		variants INTEGER,
		coverage_missing INTEGER,
		af_found INTEGER,
		af_not_found INTEGER,
		af_failed INTEGER
	)`)
	return err
}
