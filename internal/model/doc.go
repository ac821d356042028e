// Package model defines the data structures shared by the crawler, the
// extractor and the output sinks.
//
// This package contains the following main types:
//   - Value: a tagged extracted value (absent, single text, or list of texts)
//   - Record: one extracted row per successfully fetched page
//   - SelectorSpec: the ordered field-name to selector-expression mapping
//   - NormalizePolicy: how URLs are compared for deduplication
//
// Design decision: We keep these types free of HTML and HTTP dependencies so
// that sinks and the database can use them without importing goquery or
// net/http, and so that there are no import cycles between crawler and sink.
package model
