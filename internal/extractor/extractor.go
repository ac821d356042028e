package extractor

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/nao1215/sitescrape/internal/model"
)

// compiledSelector is one selector of the spec, compiled once per crawl.
type compiledSelector struct {
	name    string
	expr    string
	matcher cascadia.Selector

	// err is set when expr does not compile; the field is then always absent.
	err error
}

// Extractor evaluates a SelectorSpec against fetched pages.
// It is read-only after New and safe for concurrent use.
//
// Design decision: We compile every selector once up front instead of on
// each page because:
//  1. The spec is fixed for the whole crawl
//  2. A malformed selector is reported once, not once per page
//  3. goquery's Find silently returns an empty selection for invalid
//     selectors, which would hide the error from the user
type Extractor struct {
	selectors []compiledSelector
	logger    *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// New compiles spec into an Extractor. It never fails: selectors that do not
// compile are kept and yield an *ExtractionError for their field on every page.
func New(spec model.SelectorSpec, opts ...Option) *Extractor {
	e := &Extractor{
		selectors: make([]compiledSelector, 0, len(spec)),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}

	for _, sel := range spec {
		cs := compiledSelector{name: sel.Name, expr: sel.Expr}
		matcher, err := cascadia.Compile(sel.Expr)
		if err != nil {
			cs.err = err
			e.logger.Warn("invalid selector, field will be empty",
				"field", sel.Name,
				"selector", sel.Expr,
				"error", err)
		} else {
			cs.matcher = matcher
		}
		e.selectors = append(e.selectors, cs)
	}

	return e
}

// FieldResult is the outcome of one selector on one page. Err is non-nil
// only for a selector that could not be evaluated; Value is then absent.
type FieldResult struct {
	Name  string
	Value model.Value
	Err   *ExtractionError
}

// Extract evaluates every selector against doc, in spec order.
func (e *Extractor) Extract(doc *goquery.Document) []FieldResult {
	results := make([]FieldResult, 0, len(e.selectors))
	for _, sel := range e.selectors {
		results = append(results, e.extractField(doc, sel))
	}
	return results
}

// Fields is Extract without the error details: every failed field becomes
// the absence marker. The returned errors are in field order.
func (e *Extractor) Fields(doc *goquery.Document) ([]model.Field, []error) {
	results := e.Extract(doc)

	fields := make([]model.Field, 0, len(results))
	var errs []error
	for _, r := range results {
		fields = append(fields, model.Field{Name: r.Name, Value: r.Value})
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return fields, errs
}

func (e *Extractor) extractField(doc *goquery.Document, sel compiledSelector) FieldResult {
	if sel.err != nil {
		return FieldResult{
			Name:  sel.name,
			Value: model.Absent(),
			Err:   &ExtractionError{Field: sel.name, Selector: sel.expr, Err: sel.err},
		}
	}

	matches := doc.FindMatcher(sel.matcher)
	switch matches.Length() {
	case 0:
		return FieldResult{Name: sel.name, Value: model.Absent()}
	case 1:
		return FieldResult{Name: sel.name, Value: model.Text(normalizeText(matches.Text()))}
	default:
		texts := make([]string, 0, matches.Length())
		matches.Each(func(_ int, s *goquery.Selection) {
			texts = append(texts, normalizeText(s.Text()))
		})
		return FieldResult{Name: sel.name, Value: model.List(texts...)}
	}
}

// normalizeText trims leading and trailing whitespace. Inner whitespace is
// kept as the page wrote it.
func normalizeText(s string) string {
	return strings.TrimSpace(s)
}

// Links returns the absolute targets of every <a href> in doc, resolved
// against base. When scope is non-empty, only URLs whose host equals scope
// (case-insensitively) are kept. The result is deduplicated and keeps
// first-seen order.
func Links(doc *goquery.Document, base *url.URL, scope string) []string {
	seen := make(map[string]bool)
	links := make([]string, 0)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}

		abs, ok := resolveURL(base, href)
		if !ok {
			return
		}

		if scope != "" && !inScope(abs, scope) {
			return
		}

		link := abs.String()
		if seen[link] {
			return
		}
		seen[link] = true
		links = append(links, link)
	})

	return links
}

// Scope returns the host component of rawURL, the boundary used by Links.
func Scope(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// resolveURL resolves href relative to base.
func resolveURL(base *url.URL, href string) (*url.URL, bool) {
	ref, err := url.Parse(href)
	if err != nil {
		return nil, false
	}
	if base == nil {
		return ref, ref.IsAbs()
	}
	return base.ResolveReference(ref), true
}

// inScope reports whether u's host equals scope.
func inScope(u *url.URL, scope string) bool {
	return strings.EqualFold(u.Host, scope)
}
