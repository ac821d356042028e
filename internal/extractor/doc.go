// Package extractor turns a parsed page into structured fields and outbound links.
//
// Fields are produced by evaluating each selector of a model.SelectorSpec
// against the page. Every field is evaluated independently:
//   - zero matches give the absence marker
//   - one match gives that element's text, trimmed at both ends
//   - several matches give a list of texts in document order
//
// A selector that fails to compile degrades only its own field to the
// absence marker and is reported as an *ExtractionError; the other fields
// are still extracted.
//
// Links are taken from every <a> element with a non-empty href, resolved
// against the page URL, optionally restricted to one host, and deduplicated
// in first-seen order.
package extractor
