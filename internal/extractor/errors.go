package extractor

import "fmt"

// ExtractionError reports a selector that could not be evaluated.
// It never aborts extraction of the other fields.
type ExtractionError struct {
	// Field is the field name the selector belongs to.
	Field string

	// Selector is the offending expression.
	Selector string

	// Err is the underlying cause, usually a selector syntax error.
	Err error
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract field %q with selector %q: %v", e.Field, e.Selector, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}
