package pushreg

import "errors"

var (
	ErrInvalidURL       = errors.New("pushreg: invalid api base url")
	ErrMissingToken     = errors.New("pushreg: credential is missing")
	ErrMissingClientID  = errors.New("pushreg: client id is missing")
	ErrTimeout          = errors.New("pushreg: request timed out")
	ErrRequestFailed    = errors.New("pushreg: request failed")
	ErrUnexpectedStatus = errors.New("pushreg: unexpected response status")
	ErrInvalidSignature = errors.New("pushreg: invalid signature")
	ErrNilDependency    = errors.New("pushreg: required dependency is nil")
)
