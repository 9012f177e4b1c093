package statemachine_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agathaorg/notifykit/pkg/statemachine"
)

type state string
type event string

const (
	idle      state = "idle"
	scheduled state = "scheduled"
	inFlight  state = "in_flight"

	trigger event = "trigger"
	fire    event = "fire"
	done    event = "done"
)

func newMachine(t *testing.T, opts ...statemachine.Option[state, event]) *statemachine.Machine[state, event] {
	t.Helper()

	base := []statemachine.Option[state, event]{
		statemachine.WithTransitions([]statemachine.Transition[state, event]{
			{From: idle, To: scheduled, Event: trigger},
			{From: scheduled, To: inFlight, Event: fire},
			{From: inFlight, To: idle, Event: done},
		}),
	}
	m, err := statemachine.New(idle, append(base, opts...)...)
	require.NoError(t, err)
	return m
}

func TestMachine_Fire(t *testing.T) {
	t.Parallel()

	m := newMachine(t)
	assert.Equal(t, idle, m.Current())

	require.NoError(t, m.Fire(trigger))
	assert.Equal(t, scheduled, m.Current())
	assert.True(t, m.Is(scheduled, inFlight))
	assert.False(t, m.Is(idle))

	require.NoError(t, m.Fire(fire))
	require.NoError(t, m.Fire(done))
	assert.Equal(t, idle, m.Current())
}

func TestMachine_NoTransition(t *testing.T) {
	t.Parallel()

	m := newMachine(t)

	err := m.Fire(done)
	require.Error(t, err)
	assert.True(t, statemachine.IsNoTransition(err))
	assert.Contains(t, err.Error(), "no transition available from state 'idle' for event 'done'")
	assert.Equal(t, idle, m.Current(), "state must not change on a failed fire")
	assert.False(t, m.CanFire(done))
	assert.True(t, m.CanFire(trigger))
}

func TestMachine_Guards(t *testing.T) {
	t.Parallel()

	allowed := false
	m, err := statemachine.New(idle,
		statemachine.WithTransition(idle, scheduled, trigger, func(from state, ev event) bool {
			return allowed
		}),
	)
	require.NoError(t, err)

	err = m.Fire(trigger)
	var nt *statemachine.ErrNoTransition
	require.ErrorAs(t, err, &nt)
	assert.True(t, nt.Rejected)
	assert.Contains(t, err.Error(), "rejected by guards")

	allowed = true
	require.NoError(t, m.Fire(trigger))
	assert.Equal(t, scheduled, m.Current())
}

func TestMachine_FirstPassingGuardWins(t *testing.T) {
	t.Parallel()

	m := statemachine.MustNew(idle,
		statemachine.WithTransition(idle, inFlight, trigger, func(state, event) bool { return false }),
		statemachine.WithTransition(idle, scheduled, trigger),
	)

	require.NoError(t, m.Fire(trigger))
	assert.Equal(t, scheduled, m.Current())
}

func TestMachine_OnTransition(t *testing.T) {
	t.Parallel()

	type change struct {
		from, to state
		ev       event
	}
	var changes []change

	m := newMachine(t, statemachine.WithOnTransition(func(from, to state, ev event) {
		changes = append(changes, change{from, to, ev})
	}))

	require.NoError(t, m.Fire(trigger))
	require.NoError(t, m.Fire(fire))
	_ = m.Fire(trigger) // rejected, no hook

	assert.Equal(t, []change{
		{idle, scheduled, trigger},
		{scheduled, inFlight, fire},
	}, changes)

	m.Reset()
	assert.Equal(t, idle, m.Current())
	assert.Len(t, changes, 2, "reset does not run the hook")
}

func TestMachine_InvalidConfiguration(t *testing.T) {
	t.Parallel()

	_, err := statemachine.New[state, event]("")
	assert.ErrorIs(t, err, statemachine.ErrInvalidState)

	_, err = statemachine.New(idle, statemachine.WithTransition[state, event](idle, "", trigger))
	assert.ErrorIs(t, err, statemachine.ErrInvalidTransition)

	_, err = statemachine.New(idle, statemachine.WithTransitions([]statemachine.Transition[state, event]{
		{From: idle, To: scheduled},
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transition[0]")

	assert.Panics(t, func() {
		statemachine.MustNew[state, event]("")
	})
}

func TestMachine_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	m := statemachine.MustNew(idle,
		statemachine.WithTransition(idle, scheduled, trigger),
		statemachine.WithTransition(scheduled, idle, trigger),
	)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = m.Fire(trigger)
		}()
		go func() {
			defer wg.Done()
			_ = m.Current()
			_ = m.CanFire(trigger)
		}()
	}
	wg.Wait()

	assert.True(t, m.Is(idle, scheduled))
}
