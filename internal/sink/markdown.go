package sink

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/sitescrape/internal/model"
)

// maxCellLength keeps table cells readable; longer text is truncated.
const maxCellLength = 80

// MarkdownWriter outputs records as a Markdown table.
// This format is designed for sharing results in issues and documentation.
type MarkdownWriter struct {
	baseWriter

	// summary is printed above the table when set.
	summary *Summary
}

// MarkdownOption configures a MarkdownWriter.
type MarkdownOption func(*MarkdownWriter)

// WithSummary adds a run summary section.
func WithSummary(s Summary) MarkdownOption {
	return func(w *MarkdownWriter) {
		w.summary = &s
	}
}

// WithMarkdownJoinSeparator sets the separator for multi-valued fields.
func WithMarkdownJoinSeparator(sep string) MarkdownOption {
	return func(w *MarkdownWriter) {
		w.sep = sep
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownOption) *MarkdownWriter {
	w := &MarkdownWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary (if any) and the records table.
func (w *MarkdownWriter) Write(records []model.Record) error {
	if len(records) == 0 {
		return ErrNoRecords
	}

	md := markdown.NewMarkdown(w.output)
	md.H1("Scrape Results")
	md.PlainText("")

	if w.summary != nil {
		w.writeSummary(md, *w.summary, len(records))
	}

	w.writeRecords(md, records)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by sitescrape*")

	return md.Build()
}

// writeSummary writes the run information table and the outcome chart.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, s Summary, records int) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Start URL", "`" + s.StartURL + "`"},
			{"Crawl Date", s.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", s.Duration.Round(time.Millisecond).String()},
			{"Pages Visited", strconv.Itoa(s.Visited)},
			{"Records", strconv.Itoa(records)},
			{"Failed", strconv.Itoa(s.Failed)},
			{"Not Crawled", strconv.Itoa(s.Pending)},
		},
	})
	md.PlainText("")

	if s.Visited > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Page Outcomes"),
			piechart.WithShowData(true),
		)
		if ok := s.Visited - s.Failed; ok > 0 {
			chart.LabelAndIntValue("Fetched", uint64(ok)) //nolint:gosec // ok > 0
		}
		if s.Failed > 0 {
			chart.LabelAndIntValue("Failed", uint64(s.Failed)) //nolint:gosec // Failed > 0
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	switch {
	case s.Failed > 0:
		md.Warningf("%d page(s) could not be fetched and have no record.", s.Failed)
	case s.Pending > 0:
		md.Note(fmt.Sprintf("The page budget was reached with %d URL(s) left uncrawled.", s.Pending))
	default:
		md.Tip("Every discovered page was crawled.")
	}
	md.PlainText("")
}

// writeRecords writes one table row per record.
func (w *MarkdownWriter) writeRecords(md *markdown.Markdown, records []model.Record) {
	md.H2("Records")
	md.PlainText("")

	columns := header(records)
	headings := make([]string, len(columns))
	for i, col := range columns {
		headings[i] = columnTitle(col)
	}

	rows := make([][]string, len(records))
	for i, rec := range records {
		cells := w.cells(rec, columns)
		for j, c := range cells {
			cells[j] = escapeCell(truncateString(c, maxCellLength))
		}
		rows[i] = cells
	}

	md.Table(markdown.TableSet{
		Header: headings,
		Rows:   rows,
	})
	md.PlainText("")
}

// columnTitle turns a field name such as "h1_headings" into "H1 Headings".
func columnTitle(name string) string {
	if name == model.URLField {
		return "URL"
	}
	return cases.Title(language.English).String(strings.ReplaceAll(name, "_", " "))
}

// escapeCell keeps cell text from breaking the table layout.
func escapeCell(s string) string {
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(s, "|", `\|`)
}

// truncateString truncates s to maxLen runes with an ellipsis.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
