// Package sink persists crawl records.
//
// This package contains writers for different output formats:
//   - CSVWriter: delimited rows, the default output
//   - JSONLWriter: one JSON object per record
//   - MarkdownWriter: a human-readable table with a run summary
//
// Every writer takes the column header from the first record (its field
// names in selector order, then "url"). Multi-valued fields are joined with
// a configurable separator in CSV and Markdown and stay arrays in JSON Lines;
// the absence marker is an empty cell or JSON null.
//
// Writing zero records is refused with ErrNoRecords so that an unreachable
// site never leaves an empty file behind.
package sink
