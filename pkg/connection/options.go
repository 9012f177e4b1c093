package connection

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/agathaorg/notifykit/pkg/backoff"
	"github.com/agathaorg/notifykit/pkg/transport"
)

// Hooks receive connection events on the loop. Nil hooks are skipped.
type Hooks struct {
	OnConnected    func(mode transport.Mode)
	OnDisconnected func(reason string)
	OnConnectError func(err error)
	OnRetry        func(attempt int, delay time.Duration)
	OnMessage      func(name string, payload json.RawMessage)
	OnStateChange  func(from, to State)
}

// Option configures a Connection.
type Option func(*Connection)

// WithEndpoint sets the base URL and socket path.
func WithEndpoint(baseURL, path string) Option {
	return func(c *Connection) {
		c.target.BaseURL = baseURL
		if path != "" {
			c.target.Path = path
		}
	}
}

// WithPolicy sets the reconnect policy.
func WithPolicy(p backoff.Policy) Option {
	return func(c *Connection) {
		if p.Validate() == nil {
			c.policy = p
		}
	}
}

// WithHooks sets the event hooks.
func WithHooks(h Hooks) Option {
	return func(c *Connection) { c.hooks = h }
}

// WithContext sets the parent context of every session.
func WithContext(ctx context.Context) Option {
	return func(c *Connection) {
		if ctx != nil {
			c.ctx = ctx
		}
	}
}

// WithLogger sets the connection logger. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(c *Connection) {
		if l != nil {
			c.logger = l
		}
	}
}
