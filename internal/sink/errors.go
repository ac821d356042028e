package sink

import (
	"errors"
	"fmt"
)

// Sink errors.
var (
	// ErrNoRecords is returned when there is nothing to write.
	ErrNoRecords = errors.New("no data to save")

	// ErrUnknownFormat is returned for an unrecognized output format name.
	ErrUnknownFormat = errors.New("unknown output format: expected csv, jsonl or markdown")
)

// SinkError reports a persistence failure. The records passed to the sink
// are left untouched, so the caller can retry with another destination.
type SinkError struct { //nolint:revive // sink.SinkError reads better at call sites than sink.Error
	// Sink names the destination, usually a file path.
	Sink string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *SinkError) Error() string {
	return fmt.Sprintf("save to %s: %v", e.Sink, e.Err)
}

// Unwrap returns the underlying cause.
func (e *SinkError) Unwrap() error {
	return e.Err
}
