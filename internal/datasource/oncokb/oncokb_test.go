package oncokb

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-vcfanno/internal/annotate"
	"github.com/inodb/vibe-vcfanno/internal/vcf"
)

const testGeneList = "Hugo Symbol\tEntrez Gene ID\tGene Type\tOncoKB Annotated\n" +
	"ABL1\t25\tONCOGENE\tYes\n" +
	"KRAS\t3845\tONCOGENE\tYes\n" +
	"TP53\t7157\tTSG\tYes\n" +
	"BRCA1\t672\tTSG\tYes\n" +
	"\t0\tTSG\tNo\n" +
	"SHORT\n"

func TestReadCancerGeneList(t *testing.T) {
	cgl, err := ReadCancerGeneList(strings.NewReader(testGeneList))
	require.NoError(t, err)
	require.Len(t, cgl, 4)

	tests := []struct {
		gene     string
		geneType string
	}{
		{"ABL1", "ONCOGENE"},
		{"TP53", "TSG"},
		{"BRCA1", "TSG"},
		{"KRAS", "ONCOGENE"},
	}
	for _, tt := range tests {
		t.Run(tt.gene, func(t *testing.T) {
			ann, ok := cgl[tt.gene]
			require.True(t, ok, "gene %s should be in cancer gene list", tt.gene)
			assert.Equal(t, tt.gene, ann.HugoSymbol)
			assert.Equal(t, tt.geneType, ann.GeneType)
		})
	}
}

func TestReadCancerGeneList_BadHeader(t *testing.T) {
	_, err := ReadCancerGeneList(strings.NewReader(""))
	assert.ErrorContains(t, err, "empty")

	_, err = ReadCancerGeneList(strings.NewReader("Gene\tGene Type\n"))
	assert.ErrorContains(t, err, "Hugo Symbol")

	_, err = ReadCancerGeneList(strings.NewReader("Hugo Symbol\tType\n"))
	assert.ErrorContains(t, err, "Gene Type")
}

func TestLoadCancerGeneList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cancerGeneList.tsv")
	require.NoError(t, os.WriteFile(path, []byte(testGeneList), 0644))

	cgl, err := LoadCancerGeneList(path)
	require.NoError(t, err)
	assert.True(t, cgl.IsCancerGene("KRAS"))
}

func TestLoadCancerGeneList_NotFound(t *testing.T) {
	_, err := LoadCancerGeneList("/nonexistent/path.tsv")
	assert.Error(t, err)
}

func TestCancerGeneList_IsCancerGene(t *testing.T) {
	cgl := CancerGeneList{
		"TP53": &Annotation{HugoSymbol: "TP53", GeneType: "TSG"},
	}
	assert.True(t, cgl.IsCancerGene("TP53"))
	assert.False(t, cgl.IsCancerGene("UNKNOWN"))
}

func TestSource_Annotate(t *testing.T) {
	src := NewSource(CancerGeneList{
		"KRAS": &Annotation{HugoSymbol: "KRAS", GeneType: "ONCOGENE"},
	})
	assert.Equal(t, "oncokb", src.Name())
	require.Len(t, src.Columns(), 1)

	hit := &annotate.Record{Variant: &vcf.Variant{Ref: "C", Alt: "A",
		Info: map[string]string{"CSQ": "A|missense_variant|MODERATE|KRAS"}}}
	src.Annotate(context.Background(), hit)
	assert.Equal(t, "ONCOGENE", hit.GetExtra("oncokb", "gene_type"))

	miss := &annotate.Record{Variant: &vcf.Variant{Info: map[string]string{"GENE": "TTN"}}}
	src.Annotate(context.Background(), miss)
	assert.Nil(t, miss.Extra)

	none := &annotate.Record{Variant: &vcf.Variant{Info: map[string]string{}}}
	src.Annotate(context.Background(), none)
	assert.Nil(t, none.Extra)
}
