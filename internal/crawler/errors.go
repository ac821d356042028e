package crawler

import "errors"

// ErrInvalidStartURL is returned when the start URL is not an absolute http(s) URL.
var ErrInvalidStartURL = errors.New("start URL must be an absolute http or https URL")
