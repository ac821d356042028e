package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoTarget is returned when no start URL is specified.
	ErrNoTarget = errors.New("no start URL specified")

	// ErrInvalidMaxPages is returned when the page budget is not positive.
	// The budget is the only termination guarantee on cyclic sites.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidDelay is returned when the politeness delay is negative.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidWorkers is returned when the number of fetch workers is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrNoSelectors is returned when the selector set is empty.
	ErrNoSelectors = errors.New("no selectors configured")

	// ErrInvalidSelectors wraps the model error describing the bad selector.
	ErrInvalidSelectors = errors.New("invalid selectors")

	// ErrInvalidNormalize is returned for an unknown URL normalization policy.
	ErrInvalidNormalize = errors.New("invalid normalize policy: expected none, fragment or canonical")

	// ErrInvalidFormat is returned for an unknown output format.
	ErrInvalidFormat = errors.New("invalid format: expected csv, jsonl or markdown")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// A negative body size is invalid; use 0 to use the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidRate is returned when the request rate is negative.
	// Use 0 to disable the rate limit.
	ErrInvalidRate = errors.New("invalid rate: must be non-negative")
)
