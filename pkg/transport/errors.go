package transport

import "errors"

var (
	ErrInvalidTarget   = errors.New("transport: invalid target")
	ErrHandshake       = errors.New("transport: handshake failed")
	ErrUnauthorized    = errors.New("transport: credential rejected")
	ErrMalformedFrame  = errors.New("transport: malformed frame")
	ErrPollFailed      = errors.New("transport: poll failed")
	ErrSessionClosed   = errors.New("transport: session closed")
	ErrNoModeAvailable = errors.New("transport: no transport mode available")
)
