// Package vcf provides VCF file parsing functionality.
package vcf

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrMalformedRecord is matched (via errors.Is) by every *ParseError.
var ErrMalformedRecord = errors.New("malformed record")

// Parser reads records from a VCF file.
type Parser struct {
	reader      *bufio.Reader
	file        *os.File
	gzipReader  *gzip.Reader
	lineNumber  int
	header      []string
	sampleNames []string // sample names from #CHROM header line
}

// NewParser creates a new VCF parser for the given file.
// Supports both plain VCF and gzipped VCF (.vcf.gz) files.
func NewParser(path string) (*Parser, error) {
	if path == "-" {
		return NewParserFromReader(os.Stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vcf file: %w", err)
	}

	p := &Parser{file: file}

	// Check for gzip magic bytes
	buf := make([]byte, 2)
	if _, err := io.ReadFull(file, buf); err != nil {
		file.Close()
		return nil, fmt.Errorf("read vcf header: %w", err)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("seek vcf file: %w", err)
	}

	if buf[0] == 0x1f && buf[1] == 0x8b {
		p.gzipReader, err = gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		p.reader = bufio.NewReader(p.gzipReader)
	} else {
		p.reader = bufio.NewReader(file)
	}

	if err := p.parseHeader(); err != nil {
		p.Close()
		return nil, err
	}

	return p, nil
}

// NewParserFromReader creates a parser from an io.Reader (e.g., stdin).
func NewParserFromReader(r io.Reader) (*Parser, error) {
	p := &Parser{
		reader: bufio.NewReader(r),
	}

	if err := p.parseHeader(); err != nil {
		return nil, err
	}

	return p, nil
}

// parseHeader reads and stores VCF header lines.
func (p *Parser) parseHeader() error {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("read header: %w", err)
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")

		if strings.HasPrefix(line, "##") {
			p.header = append(p.header, line)
			continue
		}

		if strings.HasPrefix(line, "#CHROM") {
			p.header = append(p.header, line)
			fields := strings.Split(line, "\t")
			if len(fields) > 9 {
				p.sampleNames = fields[9:]
			}
			return nil
		}

		return &ParseError{
			Line:    p.lineNumber,
			Message: "expected #CHROM header line",
		}
	}

	return &ParseError{
		Line:    p.lineNumber,
		Message: "no #CHROM header line found",
	}
}

// Next reads the next record from the VCF file.
// Returns nil, nil when there are no more records.
func (p *Parser) Next() (*Record, error) {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				return nil, fmt.Errorf("read variant line: %w", err)
			}
			if line == "" {
				return nil, nil
			}
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rec, err := ParseFields(strings.Split(line, "\t"))
		if err != nil {
			var perr *ParseError
			if errors.As(err, &perr) {
				perr.Line = p.lineNumber
			}
			return nil, err
		}
		rec.Line = p.lineNumber
		return rec, nil
	}
}

// ParseFields parses the tab-separated columns of one VCF data line.
// Errors are *ParseError values with Line unset; callers that track lines
// fill it in.
func ParseFields(fields []string) (*Record, error) {
	if len(fields) < 8 {
		return nil, &ParseError{Message: fmt.Sprintf("expected at least 8 columns, found %d", len(fields))}
	}

	chrom := strings.TrimSpace(fields[0])
	if chrom == "" || chrom == "." {
		return nil, &ParseError{Message: "missing chromosome"}
	}

	if fields[1] == "" || fields[1] == "." {
		return nil, &ParseError{Message: "missing position"}
	}
	pos, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || pos < 1 {
		return nil, &ParseError{Message: fmt.Sprintf("invalid position: %s", fields[1])}
	}

	ref := fields[3]
	if !isBaseAllele(ref) {
		return nil, &ParseError{Message: fmt.Sprintf("invalid reference allele: %q", ref)}
	}

	if fields[4] == "" || fields[4] == "." {
		return nil, &ParseError{Message: "no alternate allele"}
	}
	alts := strings.Split(fields[4], ",")
	for _, alt := range alts {
		if !isBaseAllele(alt) && !IsSymbolicAllele(alt) {
			return nil, &ParseError{Message: fmt.Sprintf("invalid alternate allele: %q", alt)}
		}
	}

	var qual *float64
	if fields[5] != "." && fields[5] != "" {
		if q, err := strconv.ParseFloat(fields[5], 64); err == nil {
			qual = &q
		}
	}

	info, err := parseInfo(fields[7])
	if err != nil {
		return nil, &ParseError{Message: err.Error()}
	}

	id := fields[2]
	if id == "." {
		id = ""
	}

	rec := &Record{
		Chrom:  chrom,
		Pos:    pos,
		ID:     id,
		Ref:    ref,
		Alts:   alts,
		Qual:   qual,
		Filter: fields[6],
		Info:   info,
		Format: map[string]string{},
	}

	// Only the first sample is read; multi-sample VCFs are out of scope.
	if len(fields) > 9 {
		rec.Format = parseFormat(fields[8], fields[9])
	}

	return rec, nil
}

// parseInfo parses the INFO field into a map.
func parseInfo(info string) (map[string]string, error) {
	result := make(map[string]string)
	if info == "." || info == "" {
		return result, nil
	}

	for _, kv := range strings.Split(info, ";") {
		if kv == "" {
			continue // tolerate trailing ';'
		}
		key, value, _ := strings.Cut(kv, "=")
		if key == "" {
			return nil, fmt.Errorf("invalid INFO entry %q", kv)
		}
		if _, dup := result[key]; dup {
			return nil, fmt.Errorf("duplicate INFO key %q", key)
		}
		// Flag-type INFO fields carry no value.
		result[key] = value
	}

	return result, nil
}

// parseFormat pairs FORMAT keys with one sample's colon-separated values.
// Trailing keys without values are omitted, as VCF allows.
func parseFormat(format, sample string) map[string]string {
	result := make(map[string]string)
	if format == "." || format == "" {
		return result
	}
	keys := strings.Split(format, ":")
	values := strings.Split(sample, ":")
	for i, key := range keys {
		if i >= len(values) {
			break
		}
		result[key] = values[i]
	}
	return result
}

// isBaseAllele reports whether a is a non-empty string over ACGTN.
func isBaseAllele(a string) bool {
	if a == "" {
		return false
	}
	for i := 0; i < len(a); i++ {
		switch a[i] {
		case 'A', 'C', 'G', 'T', 'N', 'a', 'c', 'g', 't', 'n':
		default:
			return false
		}
	}
	return true
}

// Header returns the VCF header lines.
func (p *Parser) Header() []string {
	return p.header
}

// SampleNames returns sample names from the #CHROM header line.
// Returns nil if no sample columns are present.
func (p *Parser) SampleNames() []string {
	return p.sampleNames
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close closes the parser and underlying file.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

// ParseError represents a malformed VCF line with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("vcf parse error at line %d: %s", e.Line, e.Message)
}

// Unwrap lets errors.Is match ErrMalformedRecord.
func (e *ParseError) Unwrap() error {
	return ErrMalformedRecord
}
