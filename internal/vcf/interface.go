// Package vcf provides VCF file parsing functionality.
package vcf

// RecordParser is the interface for parsers that read VCF records.
type RecordParser interface {
	// Next reads the next record.
	// Returns nil, nil when there are no more records. A *ParseError
	// reports a malformed line; the parser stays usable afterwards.
	Next() (*Record, error)

	// Close closes the parser and releases resources.
	Close() error

	// LineNumber returns the current line number being processed.
	LineNumber() int
}
