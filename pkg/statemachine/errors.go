package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("invalid transition: from, to and event must be set")
	ErrInvalidState      = errors.New("invalid state: initial state must be set")
)

// ErrNoTransition indicates the current state has no transition for the event,
// or every candidate transition was rejected by its guards.
type ErrNoTransition struct {
	State    string
	Event    string
	Rejected bool
}

func (e *ErrNoTransition) Error() string {
	if e.Rejected {
		return fmt.Sprintf("transition from state '%s' for event '%s' was rejected by guards", e.State, e.Event)
	}
	return fmt.Sprintf("no transition available from state '%s' for event '%s'", e.State, e.Event)
}

// IsNoTransition reports whether err is an *ErrNoTransition.
func IsNoTransition(err error) bool {
	var e *ErrNoTransition
	return errors.As(err, &e)
}
