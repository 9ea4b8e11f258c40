package annotate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSeverityTable_Order(t *testing.T) {
	table := DefaultSeverityTable()

	// Representative ranking, most to least severe.
	ordered := []string{
		"nonsense", "frameshift", "splice_site", "missense", "silent", "intergenic", "unknown",
	}
	for i := 1; i < len(ordered); i++ {
		assert.Less(t, table.Rank(ordered[i-1]), table.Rank(ordered[i]),
			"%s should outrank %s", ordered[i-1], ordered[i])
	}
}

func TestSeverityTable_Canonical(t *testing.T) {
	table := DefaultSeverityTable()

	tests := []struct {
		in, want string
	}{
		{"missense_variant", ConsequenceMissenseVariant},
		{"Missense_Variant", ConsequenceMissenseVariant},
		{" stop_gained ", ConsequenceStopGained},
		{"nonsense", ConsequenceStopGained},
		{"stopgain", ConsequenceStopGained},
		{"silent", ConsequenceSynonymousVariant},
		{"intergenic_region", ConsequenceIntergenicVariant},
		{"cnv", ConsequenceCopyNumberChange},
		{"no_such_term", ConsequenceUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, table.Canonical(tt.in))
		})
	}
}

func TestSeverityTable_MostSevereEmpty(t *testing.T) {
	effect, rank := DefaultSeverityTable().MostSevere(nil)
	assert.Equal(t, "", effect)
	assert.Equal(t, -1, rank)
}

func TestNewSeverityTable(t *testing.T) {
	table, err := NewSeverityTable([]string{"frameshift_variant", "missense_variant"})
	require.NoError(t, err)
	assert.Equal(t, []string{"frameshift_variant", "missense_variant", "unknown"}, table.Terms())

	_, err = NewSeverityTable(nil)
	assert.Error(t, err)

	_, err = NewSeverityTable([]string{"missense_variant", "Missense_Variant"})
	assert.ErrorContains(t, err, "duplicate")

	_, err = NewSeverityTable([]string{"missense_variant", " "})
	assert.ErrorContains(t, err, "empty")

	// An explicit unknown keeps its position.
	table, err = NewSeverityTable([]string{"unknown", "missense_variant"})
	require.NoError(t, err)
	assert.Equal(t, 0, table.Rank("unknown"))
}
