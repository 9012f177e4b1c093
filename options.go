package notifykit

import (
	"log/slog"
	"time"

	"github.com/agathaorg/notifykit/pkg/backoff"
	"github.com/agathaorg/notifykit/pkg/credentials"
	"github.com/agathaorg/notifykit/pkg/notifications"
	"github.com/agathaorg/notifykit/pkg/pushreg"
	"github.com/agathaorg/notifykit/pkg/transport"
)

// DefaultSocketPath is used when no socket path is configured.
const DefaultSocketPath = "/api/notify"

type options struct {
	store        credentials.Storage
	transport    transport.Transport
	baseURL      string
	path         string
	policy       backoff.Policy
	dispatcher   *notifications.Dispatcher
	registerer   pushreg.Registerer
	clientIDs    pushreg.ClientIDSource
	regOpts      []pushreg.Option
	pollInterval time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// Option configures a Listener.
type Option func(*options)

// WithStore sets the credential store. Defaults to an empty MemoryStore.
func WithStore(s credentials.Storage) Option {
	return func(o *options) { o.store = s }
}

// WithTransport sets the transport. Defaults to the websocket-only transport.
func WithTransport(t transport.Transport) Option {
	return func(o *options) { o.transport = t }
}

// WithEndpoint sets the socket base URL and path. An empty path keeps
// DefaultSocketPath.
func WithEndpoint(baseURL, path string) Option {
	return func(o *options) {
		o.baseURL = baseURL
		if path != "" {
			o.path = path
		}
	}
}

// WithReconnectPolicy sets the connection retry curve.
func WithReconnectPolicy(p backoff.Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithDispatcher sets the default notification consumer.
func WithDispatcher(d *notifications.Dispatcher) Option {
	return func(o *options) { o.dispatcher = d }
}

// WithRegistration enables the push registration loop.
func WithRegistration(client pushreg.Registerer, ids pushreg.ClientIDSource, opts ...pushreg.Option) Option {
	return func(o *options) {
		o.registerer = client
		o.clientIDs = ids
		o.regOpts = opts
	}
}

// WithPollInterval sets how often the credential store is polled.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) { o.pollInterval = d }
}

// WithLogger sets the logger passed to every component. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides the status time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithClientIDSource replaces the client id source of the registration loop.
func WithClientIDSource(ids pushreg.ClientIDSource) Option {
	return func(o *options) {
		if ids != nil {
			o.clientIDs = ids
		}
	}
}
