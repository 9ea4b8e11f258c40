package output

import (
	"go.uber.org/multierr"

	"github.com/inodb/vibe-vcfanno/internal/annotate"
)

// MultiWriter duplicates records to several writers, such as a TSV file and
// a DuckDB sink.
type MultiWriter struct {
	writers []annotate.RecordWriter
}

// NewMultiWriter creates a writer that forwards to all of writers in order.
func NewMultiWriter(writers ...annotate.RecordWriter) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteHeader writes the header of every writer.
func (m *MultiWriter) WriteHeader() error {
	for _, w := range m.writers {
		if err := w.WriteHeader(); err != nil {
			return err
		}
	}
	return nil
}

// Write forwards r to every writer, stopping at the first error.
func (m *MultiWriter) Write(r *annotate.Record) error {
	for _, w := range m.writers {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes every writer, even when an earlier one fails, and returns
// all errors combined.
func (m *MultiWriter) Flush() error {
	var err error
	for _, w := range m.writers {
		err = multierr.Append(err, w.Flush())
	}
	return err
}
