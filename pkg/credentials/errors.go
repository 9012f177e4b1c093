package credentials

import "errors"

var (
	ErrNilClient        = errors.New("credentials: redis client is nil")
	ErrNilStorage       = errors.New("credentials: storage or sealer is nil")
	ErrEmptyPath        = errors.New("credentials: file store path is empty")
	ErrCorruptStore     = errors.New("credentials: stored data is corrupt")
	ErrStoreUnavailable = errors.New("credentials: store unavailable")
	ErrInvalidRedisURL  = errors.New("credentials: failed to parse redis connection string")
	ErrRedisNotReady    = errors.New("credentials: redis did not become ready within the given time period")
)
