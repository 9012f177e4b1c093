package connection

import "errors"

var (
	ErrNilLoop      = errors.New("connection: event loop is nil")
	ErrNilTransport = errors.New("connection: transport is nil")
)
