package notifykit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/agathaorg/notifykit/pkg/backoff"
	"github.com/agathaorg/notifykit/pkg/connection"
	"github.com/agathaorg/notifykit/pkg/credentials"
	"github.com/agathaorg/notifykit/pkg/eventloop"
	"github.com/agathaorg/notifykit/pkg/logger"
	"github.com/agathaorg/notifykit/pkg/notifications"
	"github.com/agathaorg/notifykit/pkg/pushreg"
	"github.com/agathaorg/notifykit/pkg/transport"
)

// NotifyFunc consumes decoded notification payloads. It runs on the loop:
// it must not block and must not call Stop or SetCredentialAndReconnect.
type NotifyFunc func(ctx context.Context, p notifications.Payload)

// Listener is the notification channel handle.
type Listener struct {
	opts   options
	logger *slog.Logger
	status *statusTracker

	mu  sync.Mutex
	run *run
}

// run is the state of one Start/Stop cycle. Fields below the loop are
// loop-owned.
type run struct {
	l       *Listener
	ctx     context.Context
	cancel  context.CancelFunc
	group   *errgroup.Group
	watcher *credentials.Watcher
	notify  NotifyFunc

	loop  *eventloop.Loop
	conn  *connection.Connection
	reg   *pushreg.Registrar
	token string
}

// New creates a stopped Listener.
func New(opts ...Option) (*Listener, error) {
	o := options{
		path:         DefaultSocketPath,
		policy:       backoff.ConnectionPolicy(),
		pollInterval: credentials.DefaultPollInterval,
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if err := o.policy.Validate(); err != nil {
		return nil, errors.Join(ErrInvalidOption, err)
	}
	if o.registerer != nil && o.clientIDs == nil {
		return nil, fmt.Errorf("%w: registration requires a client id source", ErrInvalidOption)
	}
	if o.store == nil {
		o.store = credentials.NewMemoryStore("")
	}
	if o.transport == nil {
		o.transport = transport.NewNative(transport.WithLogger(o.logger))
	}
	if o.dispatcher == nil {
		o.dispatcher = notifications.NewDispatcher(
			notifications.NewConsoleBackend(o.logger),
			notifications.WithLogger(o.logger),
		)
	}

	return &Listener{
		opts:   o,
		logger: o.logger.With(logger.Component("listener")),
		status: newStatusTracker(o.now),
	}, nil
}

// Start reads the stored credential, starts the credential watcher, opens
// the connection and arms push registration. onNotify replaces the
// dispatcher as the consumer of notifications when non-nil.
//
// ctx is the parent of all background I/O. Stop must be called to release
// the listener.
func (l *Listener) Start(ctx context.Context, onNotify NotifyFunc) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.run != nil {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(logger.WithRunID(ctx, uuid.NewString()))
	r := &run{
		l:      l,
		ctx:    runCtx,
		cancel: cancel,
		notify: onNotify,
		loop:   eventloop.New(eventloop.WithLogger(l.opts.logger)),
	}

	token, err := l.opts.store.Token(runCtx)
	if err != nil {
		l.logger.LogAttrs(runCtx, slog.LevelWarn, "failed to read credential", logger.Error(err))
		token = ""
	}

	r.conn, err = connection.New(r.loop, l.opts.transport,
		connection.WithEndpoint(l.opts.baseURL, l.opts.path),
		connection.WithPolicy(l.opts.policy),
		connection.WithContext(runCtx),
		connection.WithLogger(l.opts.logger),
		connection.WithHooks(r.hooks()),
	)
	if err != nil {
		r.loop.Close()
		cancel()
		return err
	}

	if l.opts.registerer != nil {
		regOpts := append([]pushreg.Option{
			pushreg.WithContext(runCtx),
			pushreg.WithLogger(l.opts.logger),
		}, l.opts.regOpts...)
		regOpts = append(regOpts, pushreg.WithOnResult(func(a pushreg.Attempt) {
			l.status.setRegistration(a.Outcome)
		}))
		r.reg, err = pushreg.NewRegistrar(r.loop, l.opts.registerer, l.opts.store, l.opts.clientIDs, regOpts...)
		if err != nil {
			r.loop.Close()
			cancel()
			return err
		}
	}

	r.watcher = credentials.NewWatcher(l.opts.store, token, func(tok string) {
		r.loop.Post(func() { r.applyCredential(tok, false) })
	},
		credentials.WithPollInterval(l.opts.pollInterval),
		credentials.WithWatcherLogger(l.opts.logger),
	)

	var gctx context.Context
	r.group, gctx = errgroup.WithContext(runCtx)
	r.group.Go(func() error { return r.watcher.Run(gctx) })

	if err := r.loop.Call(func() { r.begin(token) }); err != nil {
		cancel()
		_ = r.group.Wait()
		r.loop.Close()
		return err
	}

	l.run = r
	l.logger.LogAttrs(runCtx, slog.LevelInfo, "listener started",
		slog.String("base_url", l.opts.baseURL),
		slog.String("path", l.opts.path),
		slog.Bool("registration", r.reg != nil),
	)
	return nil
}

// Run starts the listener and returns a function suitable for errgroup. The
// function blocks until ctx is done and then stops the listener.
func (l *Listener) Run(ctx context.Context, onNotify NotifyFunc) func() error {
	return func() error {
		if err := l.Start(ctx, onNotify); err != nil {
			return err
		}

		<-ctx.Done()

		l.Stop()
		return nil
	}
}

// Stop closes the connection, cancels every timer and waits for background
// goroutines. No callbacks fire after it returns. It is idempotent and a
// stopped listener may be started again.
func (l *Listener) Stop() {
	l.mu.Lock()
	r := l.run
	l.run = nil
	l.mu.Unlock()
	if r == nil {
		return
	}

	_ = r.loop.Call(func() {
		r.conn.Close()
		if r.reg != nil {
			r.reg.Stop()
		}
	})
	r.cancel()
	if err := r.group.Wait(); err != nil {
		l.logger.LogAttrs(r.ctx, slog.LevelWarn, "background task failed", logger.Error(err))
	}
	r.loop.Close()

	l.status.setAttempts(0)
	l.status.set(StateStopped, "")
	l.logger.LogAttrs(context.Background(), slog.LevelInfo, "listener stopped")
}

// SetCredentialAndReconnect stores token, tears down the connection and
// reconnects with it. Changing the credential invalidates the push record
// and restarts registration. An empty token disconnects until a credential
// arrives. When the listener is not started the token is only stored.
func (l *Listener) SetCredentialAndReconnect(token string) error {
	token = strings.TrimSpace(token)

	l.mu.Lock()
	r := l.run
	l.mu.Unlock()

	if r == nil {
		return l.opts.store.SetToken(context.Background(), token)
	}

	if err := l.opts.store.SetToken(r.ctx, token); err != nil {
		l.logger.LogAttrs(r.ctx, slog.LevelWarn, "failed to store credential", logger.Error(err))
		return err
	}
	r.watcher.Observe(token)

	if err := r.loop.Call(func() { r.applyCredential(token, true) }); err != nil {
		return ErrNotStarted
	}
	return nil
}

// AppForeground marks the app as visible and re-arms reconnection and
// registration.
func (l *Listener) AppForeground() {
	l.opts.dispatcher.SetForeground(true)
	l.post(func(r *run) {
		r.conn.Rearm()
		r.trigger(pushreg.TriggerForeground)
	})
}

// AppBackground marks the app as hidden so notifications use the system channel.
func (l *Listener) AppBackground() {
	l.opts.dispatcher.SetForeground(false)
}

// NetworkRestored re-arms reconnection and registration.
func (l *Listener) NetworkRestored() {
	l.post(func(r *run) {
		r.conn.Rearm()
		r.trigger(pushreg.TriggerNetworkRestored)
	})
}

// Status returns a snapshot of the channel state.
func (l *Listener) Status() Status {
	return l.status.snapshot()
}

// Running reports whether the listener is started.
func (l *Listener) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.run != nil
}

func (l *Listener) post(fn func(r *run)) {
	l.mu.Lock()
	r := l.run
	l.mu.Unlock()
	if r == nil {
		return
	}
	r.loop.Post(func() { fn(r) })
}

func (l *Listener) ctx() context.Context {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.run != nil {
		return l.run.ctx
	}
	return context.Background()
}

func (r *run) begin(token string) {
	r.token = token
	switch {
	case r.l.opts.baseURL == "":
		r.l.status.set(StateDisabled, "")
	case token == "":
		r.l.status.set(StateWaitingToken, "")
	default:
		r.conn.Connect(token)
	}
	r.trigger(pushreg.TriggerStart)
}

// applyCredential runs on the loop.
func (r *run) applyCredential(token string, explicit bool) {
	changed := token != r.token
	if !changed && (!explicit || r.conn.State() == connection.StateConnected) {
		return
	}
	r.token = token

	if changed {
		if err := r.l.opts.store.ClearRecord(r.ctx); err != nil {
			r.l.logger.LogAttrs(r.ctx, slog.LevelWarn, "failed to clear push record", logger.Error(err))
		}
		r.l.logger.LogAttrs(r.ctx, slog.LevelInfo, "credential changed", logger.Token(token))
	}

	if r.reg != nil {
		r.reg.Reset()
	}

	switch {
	case r.l.opts.baseURL == "":
		r.l.status.set(StateDisabled, "")
		return
	case token == "":
		r.conn.Close()
		r.l.status.setAttempts(0)
		r.l.status.set(StateWaitingToken, "")
		return
	}

	r.conn.Connect(token)
	r.trigger(pushreg.TriggerCredentialChanged)
}

func (r *run) trigger(t pushreg.Trigger) {
	if r.reg != nil {
		r.reg.Trigger(t)
	}
}

func (r *run) hooks() connection.Hooks {
	st := r.l.status
	return connection.Hooks{
		OnStateChange: func(_, to connection.State) {
			if to == connection.StateConnecting {
				st.set(StateConnecting, "")
			}
		},
		OnConnected: func(transport.Mode) {
			st.setAttempts(0)
			st.set(StateConnected, "")
			r.trigger(pushreg.TriggerConnect)
		},
		OnDisconnected: func(reason string) {
			st.set(StateDisconnected, reason)
			r.trigger(pushreg.TriggerDisconnect)
		},
		OnConnectError: func(err error) {
			msg := ""
			if err != nil {
				msg = err.Error()
			}
			st.set(StateConnectError, msg)
			r.trigger(pushreg.TriggerConnectError)
		},
		OnRetry: func(attempt int, _ time.Duration) {
			st.setAttempts(attempt)
		},
		OnMessage: func(name string, payload json.RawMessage) {
			if name != transport.EventNotifyMessage {
				return
			}
			r.deliver(payload)
		},
	}
}

func (r *run) deliver(raw json.RawMessage) {
	p, err := notifications.DecodePayload(raw)
	if err != nil {
		r.l.logger.LogAttrs(r.ctx, slog.LevelWarn, "dropping malformed payload", logger.Error(err))
		return
	}

	if r.notify != nil {
		r.notify(r.ctx, p)
		return
	}

	if _, err := r.l.opts.dispatcher.Dispatch(r.ctx, p); err != nil {
		switch {
		case errors.Is(err, notifications.ErrPermissionDenied):
			r.l.status.set(StateNoPermission, err.Error())
		case errors.Is(err, notifications.ErrNotificationsDisabled):
			r.l.status.set(StateNotificationsDisabled, err.Error())
		case errors.Is(err, notifications.ErrUnsupported):
		default:
			r.l.status.set(StateNotifyError, err.Error())
		}
	}
}
