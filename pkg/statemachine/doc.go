// Package statemachine provides a small finite-state machine keyed by string
// states and events.
//
// The notification channel uses it for the connection state
// (disconnected, connecting, connected, reconnecting) and for the push
// registration loop (idle, scheduled, in flight). Transitions are declared up
// front; firing an event that has no transition from the current state returns
// an *ErrNoTransition and leaves the state unchanged, which lets callers detect
// out-of-order transport events instead of silently corrupting state.
//
// # Usage
//
//	type State string
//	type Event string
//
//	sm := statemachine.MustNew[State, Event]("idle",
//	    statemachine.WithTransition[State, Event]("idle", "scheduled", "trigger"),
//	    statemachine.WithTransition[State, Event]("scheduled", "in_flight", "fire"),
//	    statemachine.WithOnTransition(func(from, to State, ev Event) {
//	        log.Printf("%s -> %s on %s", from, to, ev)
//	    }),
//	)
//
//	if err := sm.Fire("trigger"); err != nil {
//	    // handle ErrNoTransition
//	}
//
// Guards may be attached to a transition; when several transitions share the
// same state and event the first one whose guards pass wins.
//
// Machines are safe for concurrent use. The transition hook runs with the
// machine unlocked, after the state has changed.
package statemachine
