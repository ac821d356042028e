package sink

import (
	"encoding/csv"
	"io"

	"github.com/nao1215/sitescrape/internal/model"
)

// CSVWriter outputs records as comma-separated rows with a header line.
//
// Design decision: We use encoding/csv because RFC 4180 quoting of commas,
// quotes and newlines inside extracted text is exactly what it implements.
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer, opts ...Option) *CSVWriter {
	w := &CSVWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(&w.baseWriter)
	}
	return w
}

// Write outputs the header and one row per record.
func (w *CSVWriter) Write(records []model.Record) error {
	if len(records) == 0 {
		return ErrNoRecords
	}

	cw := csv.NewWriter(w.output)
	columns := header(records)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for _, rec := range records {
		if err := cw.Write(w.cells(rec, columns)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
