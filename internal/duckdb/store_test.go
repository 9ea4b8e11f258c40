package duckdb

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-vcfanno/internal/annotate"
	"github.com/inodb/vibe-vcfanno/internal/coverage"
	"github.com/inodb/vibe-vcfanno/internal/frequency"
	"github.com/inodb/vibe-vcfanno/internal/vcf"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecords() []*annotate.Record {
	qual := 50.0
	kras := &annotate.Record{
		Variant: &vcf.Variant{
			Chrom: "12", Pos: 25245350, ID: "rs121913529", Ref: "C", Alt: "A",
			AltIndex: 1, Qual: &qual, Filter: "PASS",
		},
		Classification: annotate.Classification{
			Type: annotate.TypeSubstitution, Effect: annotate.ConsequenceMissenseVariant,
			Rank: 8, Impact: annotate.ImpactModerate,
		},
		Metrics:   coverage.Metrics{Depth: 30, Support: 10, Percent: 33.333, RefSupport: 20, AlleleSupport: 10},
		Frequency: frequency.Found(0.00001),
	}
	kras.SetExtra("oncokb", "gene_type", "ONCOGENE")

	cnv := &annotate.Record{
		Variant: &vcf.Variant{Chrom: "X", Pos: 500, Ref: "N", Alt: "<DEL>", AltIndex: 1, Filter: "PASS"},
		Classification: annotate.Classification{
			Type: annotate.TypeCNV, Effect: annotate.ConsequenceCopyNumberChange,
			Rank: 7, Impact: annotate.ImpactHigh,
		},
		CoverageMissing: true,
		Frequency:       frequency.NotFound(),
	}

	common := &annotate.Record{
		Variant: &vcf.Variant{Chrom: "1", Pos: 100, Ref: "A", Alt: "G", AltIndex: 1, Filter: "PASS"},
		Classification: annotate.Classification{
			Type: annotate.TypeSubstitution, Effect: annotate.ConsequenceMissenseVariant,
			Rank: 8, Impact: annotate.ImpactModerate,
		},
		Frequency: frequency.Found(0.2),
	}
	return []*annotate.Record{kras, cnv, common}
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())
	assert.Equal(t, "", s.Path())
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "results.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestWriteAndLookupRecords(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteRecords(testRecords()))

	n, err := s.CountResults()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	rows, err := s.LookupVariant("12", 25245350, "C", "A")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, "rs121913529", r.ID)
	assert.True(t, r.Qual.Valid)
	assert.InDelta(t, 50.0, r.Qual.Float64, 1e-9)
	assert.Equal(t, "Substitution", r.Type)
	assert.Equal(t, annotate.ConsequenceMissenseVariant, r.Effect)
	assert.Equal(t, 8, r.EffectRank)
	assert.Equal(t, 30, r.Depth)
	assert.Equal(t, 10, r.Support)
	assert.InDelta(t, 33.333, r.SupportPct, 1e-9)
	assert.True(t, r.AlleleFreq.Valid)
	assert.InDelta(t, 0.00001, r.AlleleFreq.Float64, 1e-12)
	assert.Equal(t, "Found", r.FreqStatus)
	assert.Equal(t, map[string]string{"oncokb.gene_type": "ONCOGENE"}, r.Extra)

	rows, err = s.LookupVariant("X", 500, "N", "<DEL>")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Qual.Valid)
	assert.False(t, rows[0].AlleleFreq.Valid, "unavailable AF is stored as NULL")
	assert.Equal(t, "NotFound", rows[0].FreqStatus)
	assert.True(t, rows[0].CoverageMissing)
	assert.Nil(t, rows[0].Extra)

	rows, err = s.LookupVariant("12", 99999, "C", "A")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestWriteRecords_LargeDepth(t *testing.T) {
	s := openInMemory(t)

	deep := testRecords()[0]
	deep.Metrics = coverage.Metrics{Depth: 5_000_000_000, Support: 3_000_000_000, Percent: 60, AlleleSupport: 3_000_000_000}
	require.NoError(t, s.WriteRecords([]*annotate.Record{deep}))

	rows, err := s.LookupVariant("12", 25245350, "C", "A")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 5_000_000_000, rows[0].Depth)
	assert.Equal(t, 3_000_000_000, rows[0].Support)
	assert.Equal(t, 3_000_000_000, rows[0].AlleleSupport)
}

func TestSearchByEffectAndRare(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteRecords(testRecords()))

	missense, err := s.SearchByEffect(annotate.ConsequenceMissenseVariant)
	require.NoError(t, err)
	require.Len(t, missense, 2)
	assert.Equal(t, "1", missense[0].Chrom)
	assert.Equal(t, "12", missense[1].Chrom)

	rare, err := s.SearchRare(0.01)
	require.NoError(t, err)
	require.Len(t, rare, 1)
	assert.Equal(t, int64(25245350), rare[0].Pos)
}

func TestClearResults(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteRecords(testRecords()))
	require.NoError(t, s.ClearResults())

	n, err := s.CountResults()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRecordWriter(t *testing.T) {
	s := openInMemory(t)
	w := NewRecordWriter(s)
	w.batch = 2

	require.NoError(t, w.WriteHeader())
	for _, r := range testRecords() {
		require.NoError(t, w.Write(r))
	}

	// Two records were appended when the buffer filled; one is pending.
	n, err := s.CountResults()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, w.Flush())
	n, err = s.CountResults()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestWriteAndReadRun(t *testing.T) {
	s := openInMemory(t)

	_, ok, err := s.LastRun()
	require.NoError(t, err)
	assert.False(t, ok)

	input := filepath.Join(t.TempDir(), "in.vcf")
	require.NoError(t, os.WriteFile(input, []byte("##fileformat=VCFv4.2\n"), 0644))
	fp, err := StatFile(input)
	require.NoError(t, err)
	assert.Equal(t, int64(21), fp.Size)

	finished := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	sum := annotate.Summary{Records: 10, Malformed: 1, Variants: 11, Found: 5, NotFound: 4, LookupFailed: 2}
	require.NoError(t, s.WriteRun(Run{Input: fp, FinishedAt: finished, Summary: sum}))

	run, ok, err := s.LastRun()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, input, run.Input.Path)
	assert.Equal(t, sum, run.Summary)
	assert.True(t, finished.Equal(run.FinishedAt))
}

func TestStatFileMissing(t *testing.T) {
	_, err := StatFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
