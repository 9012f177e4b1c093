package connection

import (
	"context"
	"log/slog"
	"time"

	"github.com/agathaorg/notifykit/pkg/backoff"
	"github.com/agathaorg/notifykit/pkg/eventloop"
	"github.com/agathaorg/notifykit/pkg/logger"
	"github.com/agathaorg/notifykit/pkg/statemachine"
	"github.com/agathaorg/notifykit/pkg/transport"
)

// State is the connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

type event string

const (
	evOpen    event = "open"
	evUp      event = "up"
	evDropped event = "dropped"
	evFailed  event = "failed"
	evClose   event = "close"
)

var transitions = []statemachine.Transition[State, event]{
	{From: StateDisconnected, To: StateConnecting, Event: evOpen},
	{From: StateConnecting, To: StateConnecting, Event: evOpen},
	{From: StateConnected, To: StateConnecting, Event: evOpen},
	{From: StateReconnecting, To: StateConnecting, Event: evOpen},

	{From: StateConnecting, To: StateConnected, Event: evUp},
	{From: StateReconnecting, To: StateConnected, Event: evUp},

	{From: StateConnected, To: StateReconnecting, Event: evDropped},

	{From: StateConnecting, To: StateReconnecting, Event: evFailed},
	{From: StateReconnecting, To: StateReconnecting, Event: evFailed},

	{From: StateConnecting, To: StateDisconnected, Event: evClose},
	{From: StateConnected, To: StateDisconnected, Event: evClose},
	{From: StateReconnecting, To: StateDisconnected, Event: evClose},
}

// Connection owns the single transport session.
type Connection struct {
	loop      *eventloop.Loop
	transport transport.Transport
	target    transport.Target
	policy    backoff.Policy
	hooks     Hooks
	logger    *slog.Logger
	ctx       context.Context

	fsm        *statemachine.Machine[State, event]
	session    transport.Session
	generation uint64
	attempts   int
	retry      *eventloop.Slot
	active     bool
}

// New creates a disconnected Connection bound to loop.
func New(loop *eventloop.Loop, tr transport.Transport, opts ...Option) (*Connection, error) {
	if loop == nil {
		return nil, ErrNilLoop
	}
	if tr == nil {
		return nil, ErrNilTransport
	}

	c := &Connection{
		loop:      loop,
		transport: tr,
		target:    transport.Target{Path: "/api/notify"},
		policy:    backoff.ConnectionPolicy(),
		logger:    slog.Default(),
		ctx:       context.Background(),
		retry:     eventloop.NewSlot(loop),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logger.Component("connection"))

	c.fsm = statemachine.MustNew(StateDisconnected,
		statemachine.WithTransitions(transitions),
		statemachine.WithOnTransition(func(from, to State, _ event) {
			if from == to {
				return
			}
			c.logger.LogAttrs(c.ctx, slog.LevelDebug, "state changed",
				logger.Transition(string(from), string(to)))
			if c.hooks.OnStateChange != nil {
				c.hooks.OnStateChange(from, to)
			}
		}),
	)
	return c, nil
}

// Connect tears down any existing session and opens a new one with credential.
// The attempt counter is reset.
func (c *Connection) Connect(credential string) {
	c.retry.Cancel()
	c.teardown()
	c.attempts = 0
	c.target.Credential = credential
	c.active = true
	c.open()
}

// Rearm reconnects immediately unless a session is connected or connecting.
// It reports whether a new session was opened.
func (c *Connection) Rearm() bool {
	if !c.active || c.fsm.Is(StateConnected, StateConnecting) {
		return false
	}
	c.retry.Cancel()
	c.teardown()
	c.open()
	return true
}

// Close tears down the session and cancels any pending retry. It is idempotent.
func (c *Connection) Close() {
	c.active = false
	c.retry.Cancel()
	c.teardown()
	c.transition(evClose)
}

// State returns the current connection state.
func (c *Connection) State() State { return c.fsm.Current() }

// Attempts returns the number of retries scheduled since the last success.
func (c *Connection) Attempts() int { return c.attempts }

// RetryPending reports whether a retry timer is armed.
func (c *Connection) RetryPending() bool { return c.retry.Pending() }

// RetryDue returns when the pending retry fires.
func (c *Connection) RetryDue() (time.Time, bool) { return c.retry.Due() }

// Credential returns the credential of the current or last session.
func (c *Connection) Credential() string { return c.target.Credential }

func (c *Connection) open() {
	c.generation++
	gen := c.generation
	c.transition(evOpen)

	c.logger.LogAttrs(c.ctx, slog.LevelInfo, "opening session",
		slog.String("base_url", c.target.BaseURL),
		slog.String("path", c.target.Path),
		logger.Token(c.target.Credential),
	)

	c.session = c.transport.Open(c.ctx, c.target, func(ev transport.Event) {
		c.loop.Post(func() { c.handle(gen, ev) })
	})
}

// teardown closes the session. References are cleared first so events it
// emits while closing are recognised as stale.
func (c *Connection) teardown() {
	if c.session == nil {
		return
	}
	s := c.session
	c.session = nil
	c.generation++
	if err := s.Close(); err != nil {
		c.logger.LogAttrs(c.ctx, slog.LevelDebug, "session close failed", logger.Error(err))
	}
}

func (c *Connection) handle(gen uint64, ev transport.Event) {
	if gen != c.generation || c.session == nil {
		c.logger.LogAttrs(c.ctx, slog.LevelDebug, "dropping stale session event",
			logger.Event(string(ev.Kind)))
		return
	}

	switch ev.Kind {
	case transport.EventConnected:
		c.retry.Cancel()
		c.attempts = 0
		c.transition(evUp)
		c.logger.LogAttrs(c.ctx, slog.LevelInfo, "connected", logger.Transport(string(ev.Mode)))
		if c.hooks.OnConnected != nil {
			c.hooks.OnConnected(ev.Mode)
		}

	case transport.EventDisconnected:
		c.transition(evDropped)
		c.logger.LogAttrs(c.ctx, slog.LevelInfo, "disconnected",
			logger.Reason(ev.Reason), logger.Error(ev.Err))
		if c.hooks.OnDisconnected != nil {
			c.hooks.OnDisconnected(ev.Reason)
		}

	case transport.EventConnectError:
		c.logger.LogAttrs(c.ctx, slog.LevelWarn, "connect error", logger.Error(ev.Err))
		if c.hooks.OnConnectError != nil {
			c.hooks.OnConnectError(ev.Err)
		}
		if c.fsm.Is(StateConnected) {
			return
		}
		c.teardown()
		c.transition(evFailed)
		c.scheduleRetry()

	case transport.EventMessage:
		if c.hooks.OnMessage != nil {
			c.hooks.OnMessage(ev.Name, ev.Payload)
		}
	}
}

func (c *Connection) scheduleRetry() {
	delay := c.policy.NextDelay(c.attempts + 1)
	if !c.retry.Schedule(delay, c.retryNow) {
		return
	}
	c.attempts++

	c.logger.LogAttrs(c.ctx, slog.LevelInfo, "reconnect scheduled",
		logger.Attempt(c.attempts), logger.Delay(delay))
	if c.hooks.OnRetry != nil {
		c.hooks.OnRetry(c.attempts, delay)
	}
}

func (c *Connection) retryNow() {
	if !c.active || c.session != nil {
		return
	}
	c.open()
}

func (c *Connection) transition(ev event) {
	if err := c.fsm.Fire(ev); err != nil && !statemachine.IsNoTransition(err) {
		c.logger.LogAttrs(c.ctx, slog.LevelError, "state transition failed", logger.Error(err))
	}
}
