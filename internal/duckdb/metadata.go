package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/inodb/vibe-vcfanno/internal/annotate"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Run describes one completed annotation run.
type Run struct {
	Input      FileFingerprint
	FinishedAt time.Time
	Summary    annotate.Summary
}

// WriteRun records a completed run alongside its results.
func (s *Store) WriteRun(r Run) error {
	sum := r.Summary
	var modTime any
	if !r.Input.ModTime.IsZero() {
		modTime = r.Input.ModTime
	}
	_, err := s.db.Exec(`INSERT INTO annotation_runs VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Input.Path, r.Input.Size, modTime, r.FinishedAt,
		sum.Records, sum.Malformed, sum.Variants, sum.CoverageMissing,
		sum.Found, sum.NotFound, sum.LookupFailed)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// LastRun returns the most recently finished run, or false if none exists.
func (s *Store) LastRun() (Run, bool, error) {
	var r Run
	var modTime sql.NullTime
	err := s.db.QueryRow(`SELECT input_path, input_size, input_mod_time, finished_at,
		records, malformed, variants, coverage_missing, af_found, af_not_found, af_failed
		FROM annotation_runs ORDER BY finished_at DESC LIMIT 1`).Scan(
		&r.Input.Path, &r.Input.Size, &modTime, &r.FinishedAt,
		&r.Summary.Records, &r.Summary.Malformed, &r.Summary.Variants, &r.Summary.CoverageMissing,
		&r.Summary.Found, &r.Summary.NotFound, &r.Summary.LookupFailed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, false, nil
		}
		return Run{}, false, fmt.Errorf("read last run: %w", err)
	}
	if modTime.Valid {
		r.Input.ModTime = modTime.Time
	}
	return r, true, nil
}
