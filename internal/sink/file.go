package sink

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/sitescrape/internal/model"
)

// Format is an output file format.
type Format string

const (
	// FormatCSV writes comma-separated rows.
	FormatCSV Format = "csv"

	// FormatJSONL writes JSON Lines.
	FormatJSONL Format = "jsonl"

	// FormatMarkdown writes a Markdown table.
	FormatMarkdown Format = "markdown"
)

// StdoutPath selects standard output instead of a file.
const StdoutPath = "-"

// ParseFormat returns the Format named by name. "md" and "json" are accepted
// as aliases.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "csv":
		return FormatCSV, nil
	case "jsonl", "json":
		return FormatJSONL, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// DetectFormat infers the format from the file extension, defaulting to CSV.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".json", ".ndjson":
		return FormatJSONL
	case ".md", ".markdown":
		return FormatMarkdown
	default:
		return FormatCSV
	}
}

// FileSink writes records to a file (or stdout) in one format.
type FileSink struct {
	path    string
	format  Format
	sep     string
	summary *Summary
	stdout  io.Writer
}

// FileOption configures a FileSink.
type FileOption func(*FileSink)

// WithFormat overrides the format inferred from the path.
func WithFormat(f Format) FileOption {
	return func(s *FileSink) {
		if f != "" {
			s.format = f
		}
	}
}

// WithFileJoinSeparator sets the separator for multi-valued fields.
func WithFileJoinSeparator(sep string) FileOption {
	return func(s *FileSink) {
		s.sep = sep
	}
}

// WithFileSummary adds a run summary to formats that support one.
func WithFileSummary(summary Summary) FileOption {
	return func(s *FileSink) {
		s.summary = &summary
	}
}

// WithStdout sets the writer used when the path is StdoutPath.
func WithStdout(w io.Writer) FileOption {
	return func(s *FileSink) {
		s.stdout = w
	}
}

// NewFileSink creates a FileSink for path.
func NewFileSink(path string, opts ...FileOption) *FileSink {
	s := &FileSink{
		path:   path,
		format: DetectFormat(path),
		sep:    DefaultJoinSeparator,
		stdout: os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the destination path.
func (s *FileSink) Path() string {
	return s.path
}

// Format returns the output format.
func (s *FileSink) Format() Format {
	return s.format
}

// Write creates (or truncates) the file and writes records to it.
// With no records nothing is created and ErrNoRecords is returned.
// Other failures are returned as *SinkError.
func (s *FileSink) Write(records []model.Record) (err error) {
	if len(records) == 0 {
		return ErrNoRecords
	}

	if s.path == StdoutPath {
		if err := s.writer(s.stdout).Write(records); err != nil {
			return &SinkError{Sink: "stdout", Err: err}
		}
		return nil
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return &SinkError{Sink: s.path, Err: fmt.Errorf("failed to create output directory: %w", err)}
		}
	}

	f, err := os.OpenFile(filepath.Clean(s.path), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return &SinkError{Sink: s.path, Err: fmt.Errorf("failed to create output file: %w", err)}
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = &SinkError{Sink: s.path, Err: closeErr}
		}
	}()

	if err := s.writer(f).Write(records); err != nil {
		return &SinkError{Sink: s.path, Err: err}
	}
	return nil
}

// writer returns the format writer for out.
func (s *FileSink) writer(out io.Writer) Sink {
	switch s.format {
	case FormatJSONL:
		return NewJSONLWriter(out)
	case FormatMarkdown:
		opts := []MarkdownOption{WithMarkdownJoinSeparator(s.sep)}
		if s.summary != nil {
			opts = append(opts, WithSummary(*s.summary))
		}
		return NewMarkdownWriter(out, opts...)
	default:
		return NewCSVWriter(out, WithJoinSeparator(s.sep))
	}
}
