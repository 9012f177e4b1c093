package notifykit

import "errors"

var (
	ErrAlreadyStarted = errors.New("notifykit: listener already started")
	ErrNotStarted     = errors.New("notifykit: listener not started")
	ErrInvalidOption  = errors.New("notifykit: invalid option")
)
