package eventloop

import "errors"

var (
	ErrClosed = errors.New("eventloop: loop is closed")
	ErrPanic  = errors.New("eventloop: task panicked")
)
