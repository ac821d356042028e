package sink

import (
	"encoding/json"
	"io"

	"github.com/nao1215/sitescrape/internal/model"
)

// JSONLWriter outputs one JSON object per line (JSON Lines).
// Multi-valued fields stay arrays and absent fields are null, so no join
// separator is involved.
type JSONLWriter struct {
	output io.Writer
}

// NewJSONLWriter creates a JSONLWriter that outputs to the given writer.
func NewJSONLWriter(output io.Writer) *JSONLWriter {
	return &JSONLWriter{output: output}
}

// Write outputs one line per record with keys in column order.
func (w *JSONLWriter) Write(records []model.Record) error {
	if len(records) == 0 {
		return ErrNoRecords
	}

	enc := json.NewEncoder(w.output)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}
