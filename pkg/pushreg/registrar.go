package pushreg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/agathaorg/notifykit/pkg/backoff"
	"github.com/agathaorg/notifykit/pkg/credentials"
	"github.com/agathaorg/notifykit/pkg/eventloop"
	"github.com/agathaorg/notifykit/pkg/logger"
	"github.com/agathaorg/notifykit/pkg/statemachine"
)

// State is the registrar state.
type State string

const (
	StateIdle      State = "idle"
	StateScheduled State = "scheduled"
	StateInFlight  State = "in_flight"
)

// Trigger names why an attempt was requested.
type Trigger string

const (
	TriggerStart             Trigger = "start"
	TriggerConnect           Trigger = "connect"
	TriggerDisconnect        Trigger = "disconnect"
	TriggerConnectError      Trigger = "connect_error"
	TriggerForeground        Trigger = "foreground"
	TriggerNetworkRestored   Trigger = "network_restored"
	TriggerCredentialChanged Trigger = "credential_changed"
	TriggerRetry             Trigger = "retry"
)

// Immediate reports whether the trigger asks for an attempt right now.
func (t Trigger) Immediate() bool {
	switch t {
	case TriggerDisconnect, TriggerConnectError, TriggerRetry:
		return false
	}
	return true
}

// Outcome is the result class of one attempt.
type Outcome string

const (
	OutcomeRegistered      Outcome = "registered"
	OutcomeUpToDate        Outcome = "up_to_date"
	OutcomeMissingToken    Outcome = "missing_token"
	OutcomeMissingClientID Outcome = "missing_client_id"
	OutcomeFailed          Outcome = "failed"
)

// Attempt reports a completed attempt.
type Attempt struct {
	Outcome    Outcome
	ClientID   string
	StatusCode int
	Err        error
	// NextDelay is the delay of the retry scheduled after a failure.
	NextDelay time.Duration
}

// ClientIDSource yields the device push client id, or "" while the push
// SDK has not produced one yet.
type ClientIDSource interface {
	ClientID(ctx context.Context) (string, error)
}

// ClientIDFunc adapts a function to ClientIDSource.
type ClientIDFunc func(ctx context.Context) (string, error)

// ClientID calls f.
func (f ClientIDFunc) ClientID(ctx context.Context) (string, error) { return f(ctx) }

// StaticClientID is a fixed client id.
type StaticClientID string

// ClientID returns s.
func (s StaticClientID) ClientID(context.Context) (string, error) { return string(s), nil }

type event string

const (
	evSchedule event = "schedule"
	evFire     event = "fire"
	evDone     event = "done"
)

var transitions = []statemachine.Transition[State, event]{
	{From: StateIdle, To: StateScheduled, Event: evSchedule},
	{From: StateScheduled, To: StateInFlight, Event: evFire},
	{From: StateInFlight, To: StateIdle, Event: evDone},
}

// Registrar owns the registration retry loop. All methods must be called on
// the loop goroutine.
type Registrar struct {
	loop   *eventloop.Loop
	client Registerer
	store  credentials.Storage
	ids    ClientIDSource

	policy     backoff.Policy
	platform   string
	appID      string
	apiBase    string
	idAttempts int
	idDelay    time.Duration
	logger     *slog.Logger
	ctx        context.Context
	now        func() time.Time
	onSchedule func(Trigger, time.Duration)
	onResult   func(Attempt)

	fsm        *statemachine.Machine[State, event]
	timer      *eventloop.Slot
	delay      time.Duration
	generation uint64
	cancel     context.CancelFunc
	last       Attempt
	stopped    bool
}

// NewRegistrar creates an idle registrar.
func NewRegistrar(loop *eventloop.Loop, client Registerer, store credentials.Storage, ids ClientIDSource, opts ...Option) (*Registrar, error) {
	if loop == nil || client == nil || store == nil || ids == nil {
		return nil, fmt.Errorf("%w: loop, client, store and client id source are required", ErrNilDependency)
	}

	r := &Registrar{
		loop:       loop,
		client:     client,
		store:      store,
		ids:        ids,
		policy:     backoff.RegistrationPolicy(),
		platform:   DefaultPlatform,
		appID:      DefaultAppID,
		idAttempts: DefaultClientIDAttempts,
		idDelay:    DefaultClientIDDelay,
		logger:     slog.Default(),
		ctx:        context.Background(),
		now:        time.Now,
		timer:      eventloop.NewSlot(loop),
		fsm:        statemachine.MustNew(StateIdle, statemachine.WithTransitions(transitions)),
	}
	if b, ok := client.(interface{ APIBase() string }); ok {
		r.apiBase = b.APIBase()
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(logger.Component("pushreg"))
	r.delay = r.policy.Reset()
	return r, nil
}

// Trigger requests an attempt.
func (r *Registrar) Trigger(t Trigger) {
	if r.stopped {
		return
	}

	switch r.fsm.Current() {
	case StateInFlight:
		r.logger.LogAttrs(r.ctx, slog.LevelDebug, "trigger dropped while in flight",
			logger.Event(string(t)))
		return

	case StateScheduled:
		if !t.Immediate() {
			return
		}
		if due, ok := r.timer.Due(); ok && due.After(r.now()) {
			r.timer.Reschedule(0, r.run)
			r.scheduled(t, 0)
		}
		return
	}

	delay := r.delay
	if t.Immediate() {
		delay = 0
	}
	r.schedule(t, delay)
}

// Reset cancels the pending timer and any in-flight attempt and restores
// the delay to the policy floor.
func (r *Registrar) Reset() {
	r.timer.Cancel()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.generation++
	r.delay = r.policy.Reset()
	r.fsm.Reset()
}

// Stop resets the registrar and ignores every later trigger.
func (r *Registrar) Stop() {
	r.Reset()
	r.stopped = true
}

// State returns the registration state. Call it on the loop.
func (r *Registrar) State() State { return r.fsm.Current() }

// Delay returns the delay the next non-immediate attempt will wait.
func (r *Registrar) Delay() time.Duration { return r.delay }

// Last returns the most recent completed attempt.
func (r *Registrar) Last() Attempt { return r.last }

func (r *Registrar) schedule(t Trigger, delay time.Duration) {
	if !r.timer.Schedule(delay, r.run) {
		return
	}
	r.transition(evSchedule)
	r.scheduled(t, delay)
}

func (r *Registrar) scheduled(t Trigger, delay time.Duration) {
	r.logger.LogAttrs(r.ctx, slog.LevelDebug, "registration scheduled",
		logger.Event(string(t)), logger.Delay(delay))
	if r.onSchedule != nil {
		r.onSchedule(t, delay)
	}
}

func (r *Registrar) run() {
	if r.stopped || !r.fsm.Is(StateScheduled) {
		return
	}
	r.transition(evFire)

	gen := r.generation
	ctx, cancel := context.WithCancel(r.ctx)
	r.cancel = cancel

	eventloop.Go(r.loop, ctx, r.attempt, func(a Attempt, err error) {
		cancel()
		r.complete(gen, a, err)
	})
}

// attempt runs off the loop.
func (r *Registrar) attempt(ctx context.Context) (Attempt, error) {
	token, err := r.store.Token(ctx)
	if err != nil {
		return Attempt{Outcome: OutcomeFailed}, err
	}
	if token == "" {
		return Attempt{Outcome: OutcomeMissingToken}, ErrMissingToken
	}

	cid, err := r.clientID(ctx)
	if cid == "" {
		if err == nil {
			err = ErrMissingClientID
		}
		return Attempt{Outcome: OutcomeMissingClientID}, err
	}

	rec, err := r.store.LoadRecord(ctx)
	if err != nil {
		r.logger.LogAttrs(ctx, slog.LevelWarn, "failed to load push record", logger.Error(err))
	} else if rec.Trusted(cid, r.apiBase) {
		return Attempt{Outcome: OutcomeUpToDate, ClientID: cid}, nil
	}

	res, err := r.client.Register(ctx, token, Request{CID: cid, Platform: r.platform, AppID: r.appID})
	if err != nil {
		return Attempt{Outcome: OutcomeFailed, ClientID: cid, StatusCode: res.StatusCode}, err
	}
	return Attempt{Outcome: OutcomeRegistered, ClientID: cid, StatusCode: res.StatusCode}, nil
}

func (r *Registrar) clientID(ctx context.Context) (string, error) {
	var lastErr error
	for i := range r.idAttempts {
		if i > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(r.idDelay):
			}
		}
		id, err := r.ids.ClientID(ctx)
		if id = strings.TrimSpace(id); id != "" {
			return id, nil
		}
		lastErr = err
	}
	if lastErr != nil {
		return "", errors.Join(ErrMissingClientID, lastErr)
	}
	return "", ErrMissingClientID
}

func (r *Registrar) complete(gen uint64, a Attempt, err error) {
	if gen != r.generation || r.stopped {
		return
	}
	r.cancel = nil
	r.transition(evDone)

	if err != nil && a.Outcome == "" {
		a.Outcome = OutcomeFailed
	}
	a.Err = err

	switch a.Outcome {
	case OutcomeRegistered:
		rec := credentials.PushRecord{ClientID: a.ClientID, RegisteredAt: r.now(), APIBase: r.apiBase}
		if err := r.store.SaveRecord(r.ctx, rec); err != nil {
			r.logger.LogAttrs(r.ctx, slog.LevelWarn, "failed to save push record", logger.Error(err))
		}
		r.delay = r.policy.Reset()
		r.logger.LogAttrs(r.ctx, slog.LevelInfo, "push client registered",
			logger.ClientID(a.ClientID), slog.Int("status", a.StatusCode))

	case OutcomeUpToDate:
		r.delay = r.policy.Reset()
		r.logger.LogAttrs(r.ctx, slog.LevelDebug, "push registration up to date",
			logger.ClientID(a.ClientID))

	default:
		r.delay = r.policy.Grow(r.delay)
		a.NextDelay = r.delay
		r.logger.LogAttrs(r.ctx, slog.LevelWarn, "push registration failed",
			slog.String("outcome", string(a.Outcome)), logger.Error(err), logger.Delay(r.delay))
		r.schedule(TriggerRetry, r.delay)
	}

	r.last = a
	if r.onResult != nil {
		r.onResult(a)
	}
}

func (r *Registrar) transition(ev event) {
	if err := r.fsm.Fire(ev); err != nil {
		r.logger.LogAttrs(r.ctx, slog.LevelError, "state transition failed", logger.Error(err))
	}
}
