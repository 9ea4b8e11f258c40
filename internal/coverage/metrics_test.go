package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculate_DepthAndAlleleDepth(t *testing.T) {
	m, err := Calculate(map[string]string{"DP": "30", "AD": "20,10"}, nil, 1)
	require.NoError(t, err)

	assert.Equal(t, 30, m.Depth)
	assert.Equal(t, 10, m.Support)
	assert.Equal(t, 20, m.RefSupport)
	assert.Equal(t, 10, m.AlleleSupport)
	assert.InDelta(t, 33.33, m.Percent, 0.01)
}

func TestCalculate_MultiAllelic(t *testing.T) {
	format := map[string]string{"DP": "1400", "AD": "1000,300,100"}

	first, err := Calculate(format, nil, 1)
	require.NoError(t, err)
	second, err := Calculate(format, nil, 2)
	require.NoError(t, err)

	// Support sums every ALT component; AlleleSupport is per allele.
	assert.Equal(t, 400, first.Support)
	assert.Equal(t, 400, second.Support)
	assert.Equal(t, 300, first.AlleleSupport)
	assert.Equal(t, 100, second.AlleleSupport)
	assert.InDelta(t, 400.0/1400*100, first.Percent, 1e-9)
}

func TestCalculate_Fallbacks(t *testing.T) {
	tests := []struct {
		name        string
		format      map[string]string
		info        map[string]string
		wantDepth   int
		wantSupport int
	}{
		{"INFO DP with FORMAT AD", map[string]string{"AD": "5,5"}, map[string]string{"DP": "10"}, 10, 5},
		{"FORMAT DP wins over INFO DP", map[string]string{"DP": "12", "AD": "6,6"}, map[string]string{"DP": "99"}, 12, 6},
		{"AD only derives depth", map[string]string{"AD": "7,3"}, nil, 10, 3},
		{"DP only has no support", map[string]string{"DP": "25"}, nil, 25, 0},
		{"INFO RO/AO", nil, map[string]string{"DP": "81", "RO": "41", "AO": "40"}, 81, 40},
		{"FORMAT RO/AO multi", map[string]string{"RO": "10", "AO": "5,5"}, nil, 20, 10},
		{"AO without RO", nil, map[string]string{"AO": "4"}, 4, 4},
		{"missing AD components", map[string]string{"AD": ".,8", "DP": "8"}, nil, 8, 8},
		{"depth below allele total is raised", map[string]string{"DP": "5", "AD": "4,6"}, nil, 10, 6},
		{"unparseable AD falls back to AO", map[string]string{"AD": "x,y", "AO": "3", "RO": "1"}, nil, 4, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Calculate(tt.format, tt.info, 1)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDepth, m.Depth)
			assert.Equal(t, tt.wantSupport, m.Support)
			assert.LessOrEqual(t, m.Support, m.Depth)
		})
	}
}

func TestCalculate_MissingCoverageData(t *testing.T) {
	tests := []struct {
		name   string
		format map[string]string
		info   map[string]string
	}{
		{"nothing", nil, nil},
		{"only genotype", map[string]string{"GT": "0/1"}, map[string]string{"TYPE": "snp"}},
		{"missing markers", map[string]string{"DP": ".", "AD": "."}, nil},
		{"unparseable depth", map[string]string{"DP": "many"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Calculate(tt.format, tt.info, 1)
			assert.ErrorIs(t, err, ErrMissingCoverageData)
			assert.Equal(t, Metrics{}, m)
		})
	}
}

func TestCalculate_ZeroDepth(t *testing.T) {
	m, err := Calculate(map[string]string{"DP": "0", "AD": "0,0"}, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Depth)
	assert.Equal(t, 0.0, m.Percent)
}

func TestPercent_Bounds(t *testing.T) {
	for depth := 0; depth <= 50; depth++ {
		for support := 0; support <= depth; support++ {
			p := Percent(support, depth)
			if p < 0 || p > 100 {
				t.Fatalf("Percent(%d, %d) = %f out of range", support, depth, p)
			}
			if (p == 0) != (depth == 0 || support == 0) {
				t.Fatalf("Percent(%d, %d) = %f, zero iff no depth or no support", support, depth, p)
			}
		}
	}
	assert.Equal(t, 100.0, Percent(12, 10))
	assert.Equal(t, 0.0, Percent(5, -1))
}
