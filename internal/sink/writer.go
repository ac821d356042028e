package sink

import (
	"io"
	"time"

	"github.com/nao1215/sitescrape/internal/model"
)

// DefaultJoinSeparator joins the items of a multi-valued field into one cell.
const DefaultJoinSeparator = " | "

// Sink persists an ordered sequence of records.
//
// Design decision: We use an interface so that the crawl command can write
// to a file, to stdout, and to the history database with the same call.
type Sink interface {
	// Write persists records in order. It returns ErrNoRecords for an empty slice.
	Write(records []model.Record) error
}

// Summary describes the crawl run a set of records came from. Writers that
// support it (Markdown) print it above the records.
type Summary struct {
	StartURL  string
	Visited   int
	Failed    int
	Pending   int
	StartedAt time.Time
	Duration  time.Duration
}

// MultiSink writes to several sinks in order.
// It stops at the first error, since later sinks usually depend on earlier ones
// (e.g. the history entry points at the output file).
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a Sink that writes to all provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Write outputs the records to all configured sinks.
func (m *MultiSink) Write(records []model.Record) error {
	if len(records) == 0 {
		return ErrNoRecords
	}
	for _, s := range m.sinks {
		if err := s.Write(records); err != nil {
			return err
		}
	}
	return nil
}

// baseWriter provides common functionality for record writers.
type baseWriter struct {
	output io.Writer

	// sep joins multi-valued fields.
	sep string
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output, sep: DefaultJoinSeparator}
}

// Option configures the text writers.
type Option func(*baseWriter)

// WithJoinSeparator sets the separator for multi-valued fields.
func WithJoinSeparator(sep string) Option {
	return func(w *baseWriter) {
		w.sep = sep
	}
}

// header returns the column names defined by the first record.
func header(records []model.Record) []string {
	return records[0].Columns()
}

// cells flattens rec into one string per column.
// Columns the record lacks are empty.
func (w *baseWriter) cells(rec model.Record, columns []string) []string {
	row := make([]string, len(columns))
	for i, col := range columns {
		v, _ := rec.Get(col)
		row[i] = v.Join(w.sep)
	}
	return row
}
