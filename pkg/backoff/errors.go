package backoff

import "errors"

var (
	// ErrInvalidPolicy is returned by Validate for policies that cannot produce sane delays.
	ErrInvalidPolicy = errors.New("invalid backoff policy")
)
