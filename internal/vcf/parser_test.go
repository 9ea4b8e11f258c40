package vcf

import (
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVCF = `##fileformat=VCFv4.2
##INFO=<ID=DP,Number=1,Type=Integer,Description="Total read depth">
##FORMAT=<ID=AD,Number=R,Type=Integer,Description="Allelic depths">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	NORMAL
1	931393	.	G	T	2.1	PASS	TYPE=snp;DP=4124	GT:DP:AD	0/1:30:20,10
1	1647722	rs1	G	GT,GTT	164.3	PASS	TYPE=ins,ins;DP=1400	GT:DP:AD	1/2:1400:1000,300,100
1	1647893	.	C	CTTTCTT	.	PASS	DB;DP=5	GT	0/1
`

func newTestParser(t *testing.T, content string) *Parser {
	t.Helper()
	p, err := NewParserFromReader(strings.NewReader(content))
	require.NoError(t, err)
	return p
}

func TestParser_Records(t *testing.T) {
	p := newTestParser(t, testVCF)

	rec, err := p.Next()
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "1", rec.Chrom)
	assert.Equal(t, int64(931393), rec.Pos)
	assert.Equal(t, "", rec.ID)
	assert.Equal(t, "G", rec.Ref)
	assert.Equal(t, []string{"T"}, rec.Alts)
	require.NotNil(t, rec.Qual)
	assert.InDelta(t, 2.1, *rec.Qual, 1e-9)
	assert.Equal(t, "PASS", rec.Filter)
	assert.Equal(t, "snp", rec.Info["TYPE"])
	assert.Equal(t, "30", rec.Format["DP"])
	assert.Equal(t, "20,10", rec.Format["AD"])
	assert.Equal(t, 5, rec.Line)

	rec, err = p.Next()
	require.NoError(t, err)
	assert.Equal(t, "rs1", rec.ID)
	assert.Equal(t, []string{"GT", "GTT"}, rec.Alts)

	rec, err = p.Next()
	require.NoError(t, err)
	assert.Nil(t, rec.Qual)
	flag, ok := rec.Info["DB"]
	assert.True(t, ok, "flag INFO key should be present")
	assert.Equal(t, "", flag)
	assert.Equal(t, "0/1", rec.Format["GT"])

	rec, err = p.Next()
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestParser_Header(t *testing.T) {
	p := newTestParser(t, testVCF)

	header := p.Header()
	require.Len(t, header, 4)
	assert.Equal(t, "##fileformat=VCFv4.2", header[0])
	assert.True(t, strings.HasPrefix(header[3], "#CHROM"))
	assert.Equal(t, []string{"NORMAL"}, p.SampleNames())
}

func TestParser_MissingHeader(t *testing.T) {
	_, err := NewParserFromReader(strings.NewReader("1\t100\t.\tA\tT\t.\tPASS\t.\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedRecord))
}

func TestParser_MalformedLineDoesNotStopParsing(t *testing.T) {
	content := "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n" +
		"1\tabc\t.\tA\tT\t.\tPASS\t.\n" +
		"1\t200\t.\tA\tC\t.\tPASS\t.\n"
	p := newTestParser(t, content)

	_, err := p.Next()
	require.Error(t, err)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 2, pe.Line)
	assert.True(t, errors.Is(err, ErrMalformedRecord))

	rec, err := p.Next()
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, int64(200), rec.Pos)
}

func TestParser_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.vcf.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(testVCF))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	p, err := NewParser(path)
	require.NoError(t, err)
	defer p.Close()

	count := 0
	for {
		rec, err := p.Next()
		require.NoError(t, err)
		if rec == nil {
			break
		}
		count++
	}
	assert.Equal(t, 3, count)
}

func TestParser_NoTrailingNewline(t *testing.T) {
	content := "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n1\t100\t.\tA\tT\t.\tPASS\t."
	p := newTestParser(t, content)

	rec, err := p.Next()
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, int64(100), rec.Pos)

	rec, err = p.Next()
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestParseFields_Malformed(t *testing.T) {
	base := []string{"1", "100", ".", "A", "T", ".", "PASS", "DP=10"}
	with := func(i int, v string) []string {
		f := append([]string(nil), base...)
		f[i] = v
		return f
	}

	tests := []struct {
		name   string
		fields []string
	}{
		{"too few columns", base[:7]},
		{"missing chromosome", with(0, "")},
		{"missing position", with(1, ".")},
		{"non-numeric position", with(1, "12a")},
		{"zero position", with(1, "0")},
		{"bad ref base", with(3, "AXG")},
		{"empty ref", with(3, "")},
		{"bad alt base", with(4, "T,Q")},
		{"no alt", with(4, ".")},
		{"empty INFO key", with(7, "=5;DP=3")},
		{"duplicate INFO key", with(7, "DP=5;DP=6")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := ParseFields(tt.fields)
			assert.Nil(t, rec)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedRecord))
			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Zero(t, pe.Line)
		})
	}
}

func TestParseFields_Accepted(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		alt  string
	}{
		{"lowercase bases", "acgt", "a"},
		{"N base", "N", "A"},
		{"symbolic CNV", "A", "<CN0>"},
		{"symbolic deletion", "A", "<DEL>"},
		{"overlapping deletion", "A", "*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := ParseFields([]string{"chr1", "5", ".", tt.ref, tt.alt, ".", ".", "."})
			require.NoError(t, err)
			assert.Equal(t, []string{tt.alt}, rec.Alts)
			assert.Empty(t, rec.Info)
		})
	}
}

func TestParseFields_FormatWithoutSample(t *testing.T) {
	rec, err := ParseFields([]string{"1", "5", ".", "A", "T", ".", ".", ".", "GT:DP"})
	require.NoError(t, err)
	assert.Empty(t, rec.Format)
}

func TestParseFields_ShortSample(t *testing.T) {
	rec, err := ParseFields([]string{"1", "5", ".", "A", "T", ".", ".", ".", "GT:DP:AD", "0/1:12"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"GT": "0/1", "DP": "12"}, rec.Format)
}

func TestParseError(t *testing.T) {
	err := &ParseError{
		Line:    42,
		Message: "expected at least 8 columns, found 7",
	}

	expected := "vcf parse error at line 42: expected at least 8 columns, found 7"
	assert.Equal(t, expected, err.Error())
	assert.True(t, errors.Is(err, ErrMalformedRecord))
}
