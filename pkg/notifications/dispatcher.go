package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/agathaorg/notifykit/pkg/logger"
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithSystemInForeground also posts a system notification while in the foreground.
func WithSystemInForeground(enabled bool) Option {
	return func(d *Dispatcher) { d.systemInForeground = enabled }
}

// WithForeground sets the initial foreground state. The default is true.
func WithForeground(fg bool) Option {
	return func(d *Dispatcher) { d.foreground.Store(fg) }
}

// WithClock sets the clock used for alert timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// WithLogger sets the logger for render failures. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// Dispatcher decides how each payload is rendered.
type Dispatcher struct {
	backend            Backend
	systemInForeground bool
	foreground         atomic.Bool
	now                func() time.Time
	logger             *slog.Logger
}

// NewDispatcher creates a dispatcher. A nil backend falls back to NoOpBackend.
func NewDispatcher(backend Backend, opts ...Option) *Dispatcher {
	if backend == nil {
		backend = NoOpBackend{}
	}
	d := &Dispatcher{
		backend: backend,
		now:     time.Now,
		logger:  slog.Default(),
	}
	d.foreground.Store(true)
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With(logger.Component("dispatcher"))
	return d
}

// SetForeground updates the cached app state.
func (d *Dispatcher) SetForeground(fg bool) {
	d.foreground.Store(fg)
}

// Foreground returns the cached app state.
func (d *Dispatcher) Foreground() bool {
	return d.foreground.Load()
}

// Handle decodes raw and dispatches it. Malformed payloads are logged and
// reported as ErrMalformedPayload.
func (d *Dispatcher) Handle(ctx context.Context, raw json.RawMessage) (Alert, error) {
	p, err := DecodePayload(raw)
	if err != nil {
		d.logger.LogAttrs(ctx, slog.LevelWarn, "dropping malformed payload", logger.Error(err))
		return Alert{}, err
	}
	return d.Dispatch(ctx, p)
}

// Dispatch renders p in the foreground or background channel.
// Rendering errors are logged and returned; they are never retried.
func (d *Dispatcher) Dispatch(ctx context.Context, p Payload) (Alert, error) {
	fg := d.Foreground()
	a := NewAlert(p, fg, d.now())

	var err error
	if fg {
		if toastErr := d.backend.Toast(ctx, a); toastErr != nil && !errors.Is(toastErr, ErrUnsupported) {
			err = toastErr
		}
		if d.systemInForeground {
			err = errors.Join(err, d.backend.Notify(ctx, a))
		}
	} else {
		err = d.backend.Notify(ctx, a)
	}

	if err != nil {
		d.logger.LogAttrs(ctx, levelFor(err), "notification not shown",
			logger.ChatID(a.ChatID),
			slog.Bool("foreground", fg),
			logger.Error(err),
		)
		return a, err
	}

	d.logger.LogAttrs(ctx, slog.LevelDebug, "notification shown",
		logger.ChatID(a.ChatID),
		slog.Bool("foreground", fg),
	)
	return a, nil
}

func levelFor(err error) slog.Level {
	switch {
	case errors.Is(err, ErrPermissionDenied),
		errors.Is(err, ErrNotificationsDisabled),
		errors.Is(err, ErrUnsupported):
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}
