package model

import (
	"fmt"
	"strings"
)

// Selector binds a field name to a CSS selector expression.
type Selector struct {
	// Name is the output column name. Must be unique within a SelectorSpec.
	Name string `yaml:"name" json:"name"`

	// Expr is the CSS selector evaluated against each fetched page.
	Expr string `yaml:"selector" json:"selector"`
}

// SelectorSpec is the ordered set of selectors applied to every page.
// It is supplied once at crawl start and is read-only afterwards.
type SelectorSpec []Selector

// DefaultSelectors returns the selectors used when none are configured.
func DefaultSelectors() SelectorSpec {
	return SelectorSpec{
		{Name: "title", Expr: "title"},
		{Name: "h1_headings", Expr: "h1"},
		{Name: "h2_headings", Expr: "h2"},
		{Name: "paragraphs", Expr: "p"},
		{Name: "links", Expr: "a"},
		{Name: "images", Expr: "img"},
	}
}

// Names returns the field names in order.
func (s SelectorSpec) Names() []string {
	names := make([]string, len(s))
	for i, sel := range s {
		names[i] = sel.Name
	}
	return names
}

// Validate checks that names are present, unique and not reserved.
// Expressions are not compiled here; a malformed expression only degrades
// its own field at extraction time.
func (s SelectorSpec) Validate() error {
	seen := make(map[string]bool, len(s))
	for _, sel := range s {
		switch {
		case strings.TrimSpace(sel.Name) == "":
			return ErrEmptySelectorName
		case sel.Name == URLField:
			return ErrReservedFieldName
		case strings.TrimSpace(sel.Expr) == "":
			return fmt.Errorf("%w: %s", ErrEmptySelectorExpr, sel.Name)
		case seen[sel.Name]:
			return fmt.Errorf("%w: %s", ErrDuplicateSelector, sel.Name)
		}
		seen[sel.Name] = true
	}
	return nil
}

// ParseSelector parses a "name=expression" flag value. Only the first "="
// separates the name, so attribute selectors such as a[rel=next] work.
func ParseSelector(s string) (Selector, error) {
	name, expr, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	expr = strings.TrimSpace(expr)
	if !ok || name == "" || expr == "" {
		return Selector{}, fmt.Errorf("%w: %q", ErrInvalidSelectorFlag, s)
	}
	return Selector{Name: name, Expr: expr}, nil
}
