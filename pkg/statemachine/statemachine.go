package statemachine

import (
	"fmt"
	"sync"
)

// Guard decides whether a transition may proceed from the given state.
type Guard[S ~string, E ~string] func(from S, event E) bool

// Transition declares that event moves the machine from From to To.
type Transition[S ~string, E ~string] struct {
	From   S
	To     S
	Event  E
	Guards []Guard[S, E]
}

// Machine is a concurrency-safe finite-state machine.
type Machine[S ~string, E ~string] struct {
	mu           sync.RWMutex
	initial      S
	current      S
	transitions  map[S]map[E][]Transition[S, E]
	onTransition func(from, to S, event E)
}

// Option configures a Machine during construction.
type Option[S ~string, E ~string] func(*Machine[S, E]) error

// New creates a machine in the initial state.
func New[S ~string, E ~string](initial S, opts ...Option[S, E]) (*Machine[S, E], error) {
	if initial == "" {
		return nil, ErrInvalidState
	}

	m := &Machine[S, E]{
		initial:     initial,
		current:     initial,
		transitions: make(map[S]map[E][]Transition[S, E]),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MustNew is New that panics on invalid configuration.
// Transition tables are static, so a failure here is a programming error.
func MustNew[S ~string, E ~string](initial S, opts ...Option[S, E]) *Machine[S, E] {
	m, err := New(initial, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create state machine: %v", err))
	}
	return m
}

// WithTransition adds one transition with optional guards.
func WithTransition[S ~string, E ~string](from, to S, event E, guards ...Guard[S, E]) Option[S, E] {
	return func(m *Machine[S, E]) error {
		return m.add(Transition[S, E]{From: from, To: to, Event: event, Guards: guards})
	}
}

// WithTransitions adds a table of transitions.
func WithTransitions[S ~string, E ~string](ts []Transition[S, E]) Option[S, E] {
	return func(m *Machine[S, E]) error {
		for i, t := range ts {
			if err := m.add(t); err != nil {
				return fmt.Errorf("transition[%d] %s->%s on %s: %w", i, t.From, t.To, t.Event, err)
			}
		}
		return nil
	}
}

// WithOnTransition registers a hook invoked after every successful transition.
func WithOnTransition[S ~string, E ~string](fn func(from, to S, event E)) Option[S, E] {
	return func(m *Machine[S, E]) error {
		m.onTransition = fn
		return nil
	}
}

func (m *Machine[S, E]) add(t Transition[S, E]) error {
	if t.From == "" || t.To == "" || t.Event == "" {
		return ErrInvalidTransition
	}
	if _, ok := m.transitions[t.From]; !ok {
		m.transitions[t.From] = make(map[E][]Transition[S, E])
	}
	m.transitions[t.From][t.Event] = append(m.transitions[t.From][t.Event], t)
	return nil
}

// Current returns the current state.
func (m *Machine[S, E]) Current() S {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Is reports whether the current state is one of states.
func (m *Machine[S, E]) Is(states ...S) bool {
	cur := m.Current()
	for _, s := range states {
		if s == cur {
			return true
		}
	}
	return false
}

// Fire applies event to the current state.
func (m *Machine[S, E]) Fire(event E) error {
	m.mu.Lock()
	from := m.current
	t, err := m.lookup(from, event)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.current = t.To
	hook := m.onTransition
	m.mu.Unlock()

	if hook != nil {
		hook(from, t.To, event)
	}
	return nil
}

// CanFire reports whether Fire(event) would succeed right now.
func (m *Machine[S, E]) CanFire(event E) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, err := m.lookup(m.current, event)
	return err == nil
}

// Reset returns the machine to its initial state without running the hook.
func (m *Machine[S, E]) Reset() {
	m.mu.Lock()
	m.current = m.initial
	m.mu.Unlock()
}

func (m *Machine[S, E]) lookup(from S, event E) (Transition[S, E], error) {
	candidates := m.transitions[from][event]
	if len(candidates) == 0 {
		return Transition[S, E]{}, &ErrNoTransition{State: string(from), Event: string(event)}
	}

	// First transition with passing guards wins.
	for _, t := range candidates {
		if guardsPass(t.Guards, from, event) {
			return t, nil
		}
	}
	return Transition[S, E]{}, &ErrNoTransition{State: string(from), Event: string(event), Rejected: true}
}

func guardsPass[S ~string, E ~string](guards []Guard[S, E], from S, event E) bool {
	for _, g := range guards {
		if g != nil && !g(from, event) {
			return false
		}
	}
	return true
}
