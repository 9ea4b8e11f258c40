package alphamissense

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-vcfanno/internal/annotate"
	"github.com/inodb/vibe-vcfanno/internal/frequency"
	"github.com/inodb/vibe-vcfanno/internal/vcf"
)

// Small test fixture in AlphaMissense TSV format.
const testTSV = `# Copyright 2023 Google LLC
#
# Data licensed under CC BY 4.0
#CHROM	POS	REF	ALT	genome	uniprot_id	transcript_id	protein_variant	am_pathogenicity	am_class
chr1	69094	G	A	hg38	Q8NH21	ENST00000335137.4	V2M	0.0782	likely_benign
chr1	69094	G	C	hg38	Q8NH21	ENST00000335137.4	V2L	0.0891	likely_benign
chr12	25245350	C	A	hg38	P01116	ENST00000256078.10	G12V	0.9876	likely_pathogenic
chr12	25245350	C	A	hg38	P01116-2	ENST00000311936.8	G12V	0.9876	likely_pathogenic
chr17	7674220	C	T	hg38	P04637	ENST00000269305.9	R248Q	0.6543	ambiguous
`

func openLoaded(t *testing.T) *Store {
	t.Helper()
	store, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	assert.False(t, store.Loaded(), "should be empty before load")

	path := filepath.Join(t.TempDir(), "test_am.tsv")
	require.NoError(t, os.WriteFile(path, []byte(testTSV), 0644))

	n, err := store.Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n, "per-transcript rows collapse to one per variant")
	return store
}

func TestLoadAndLookup(t *testing.T) {
	store := openLoaded(t)
	ctx := context.Background()
	assert.True(t, store.Loaded())

	r, ok, err := store.Lookup(ctx, frequency.NewKey("chr12", 25245350, "C", "A"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 0.9876, r.Score, 1e-4)
	assert.Equal(t, "likely_pathogenic", r.Class)

	_, ok, err = store.Lookup(ctx, frequency.NewKey("12", 25245350, "C", "T"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = store.Lookup(ctx, frequency.NewKey("12", 25245350, "CA", "C"))
	require.NoError(t, err)
	assert.False(t, ok, "only SNVs are scored")
}

func TestLoadIdempotent(t *testing.T) {
	store := openLoaded(t)

	path := filepath.Join(t.TempDir(), "again.tsv")
	require.NoError(t, os.WriteFile(path, []byte(testTSV), 0644))
	_, err := store.Load(path)
	require.NoError(t, err)

	n, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestSourceAnnotate(t *testing.T) {
	src := NewSource(openLoaded(t))

	missense := &annotate.Record{
		Variant:        &vcf.Variant{Chrom: "17", Pos: 7674220, Ref: "C", Alt: "T"},
		Classification: annotate.Classification{Type: annotate.TypeSubstitution, Effect: annotate.ConsequenceMissenseVariant},
	}
	src.Annotate(context.Background(), missense)
	assert.Equal(t, "0.6543", missense.GetExtra("alphamissense", "score"))
	assert.Equal(t, "ambiguous", missense.GetExtra("alphamissense", "class"))

	synonymous := &annotate.Record{
		Variant:        &vcf.Variant{Chrom: "17", Pos: 7674220, Ref: "C", Alt: "T"},
		Classification: annotate.Classification{Type: annotate.TypeSubstitution, Effect: annotate.ConsequenceSynonymousVariant},
	}
	src.Annotate(context.Background(), synonymous)
	assert.Empty(t, synonymous.Extra)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	canceled := &annotate.Record{
		Variant:        &vcf.Variant{Chrom: "17", Pos: 7674220, Ref: "C", Alt: "T"},
		Classification: annotate.Classification{Type: annotate.TypeSubstitution, Effect: annotate.ConsequenceMissenseVariant},
	}
	src.Annotate(ctx, canceled)
	assert.Empty(t, canceled.Extra, "a canceled run skips the lookup")
}
