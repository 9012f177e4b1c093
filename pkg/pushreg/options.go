package pushreg

import (
	"context"
	"log/slog"
	"time"

	"github.com/agathaorg/notifykit/pkg/backoff"
)

const (
	DefaultPlatform         = "android"
	DefaultAppID            = "minechat"
	DefaultClientIDAttempts = 5
	DefaultClientIDDelay    = 500 * time.Millisecond
)

// Option configures a Registrar.
type Option func(*Registrar)

// WithPolicy sets the retry curve. Invalid policies are ignored.
func WithPolicy(p backoff.Policy) Option {
	return func(r *Registrar) {
		if p.Validate() == nil {
			r.policy = p
		}
	}
}

// WithPlatform sets the platform sent with each registration. Empty is ignored.
func WithPlatform(platform string) Option {
	return func(r *Registrar) {
		if platform != "" {
			r.platform = platform
		}
	}
}

// WithAppID sets the application id sent with each registration. Empty is ignored.
func WithAppID(appID string) Option {
	return func(r *Registrar) {
		if appID != "" {
			r.appID = appID
		}
	}
}

// WithAPIBase sets the API base a stored record must match to be trusted.
// Defaults to the client's own API base when it exposes one.
func WithAPIBase(base string) Option {
	return func(r *Registrar) {
		if base != "" {
			r.apiBase = base
		}
	}
}

// WithClientIDRetry sets how often and how far apart the client id is
// requested within a single attempt.
func WithClientIDRetry(attempts int, delay time.Duration) Option {
	return func(r *Registrar) {
		if attempts > 0 {
			r.idAttempts = attempts
		}
		if delay >= 0 {
			r.idDelay = delay
		}
	}
}

// WithLogger sets the registrar logger. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registrar) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithContext sets the parent context of every attempt.
func WithContext(ctx context.Context) Option {
	return func(r *Registrar) {
		if ctx != nil {
			r.ctx = ctx
		}
	}
}

// WithOnSchedule is called on the loop whenever an attempt is scheduled or
// pulled forward.
func WithOnSchedule(fn func(trigger Trigger, delay time.Duration)) Option {
	return func(r *Registrar) { r.onSchedule = fn }
}

// WithOnResult is called on the loop after every completed attempt.
func WithOnResult(fn func(Attempt)) Option {
	return func(r *Registrar) { r.onResult = fn }
}

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registrar) {
		if now != nil {
			r.now = now
		}
	}
}
