package model

import "errors"

// Selector and URL policy errors.
var (
	// ErrEmptySelectorName is returned when a selector has no field name.
	ErrEmptySelectorName = errors.New("selector field name must not be empty")

	// ErrEmptySelectorExpr is returned when a selector has no expression.
	ErrEmptySelectorExpr = errors.New("selector expression must not be empty")

	// ErrDuplicateSelector is returned when two selectors share a field name.
	// Field names become column headers, so they must be unique.
	ErrDuplicateSelector = errors.New("duplicate selector field name")

	// ErrReservedFieldName is returned when a selector uses the "url" field name,
	// which every record reserves for the page address.
	ErrReservedFieldName = errors.New(`field name "url" is reserved`)

	// ErrInvalidSelectorFlag is returned when a --selector value is not in name=expression form.
	ErrInvalidSelectorFlag = errors.New("invalid selector: expected name=expression")

	// ErrUnknownNormalizePolicy is returned for an unrecognized URL normalization policy name.
	ErrUnknownNormalizePolicy = errors.New("unknown URL normalization policy: expected none, fragment or canonical")
)
