package transport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	DefaultHandshakeTimeout = 20 * time.Second
	DefaultRedialMin        = time.Second
	DefaultRedialMax        = 5 * time.Second
	DefaultPollIdle         = time.Second
	DefaultReadLimit        = 1 << 20
)

type options struct {
	dialer           *websocket.Dialer
	httpClient       *http.Client
	handshakeTimeout time.Duration
	redialMin        time.Duration
	redialMax        time.Duration
	pollIdle         time.Duration
	readLimit        int64
	logger           *slog.Logger
}

// Option configures a transport.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		handshakeTimeout: DefaultHandshakeTimeout,
		redialMin:        DefaultRedialMin,
		redialMax:        DefaultRedialMax,
		pollIdle:         DefaultPollIdle,
		readLimit:        DefaultReadLimit,
		logger:           slog.Default(),
	}
}

func newOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.dialer == nil {
		o.dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: o.handshakeTimeout,
		}
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{}
	}
	return o
}

// WithDialer sets the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(o *options) {
		if d != nil {
			o.dialer = d
		}
	}
}

// WithHTTPClient sets the client used for long-polling.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithHandshakeTimeout bounds each dial.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.handshakeTimeout = d
		}
	}
}

// WithRedial sets the delay range for redialing after a drop.
func WithRedial(minDelay, maxDelay time.Duration) Option {
	return func(o *options) {
		if minDelay > 0 && maxDelay >= minDelay {
			o.redialMin = minDelay
			o.redialMax = maxDelay
		}
	}
}

// WithPollIdle sets the pause after an idle (204) poll.
func WithPollIdle(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.pollIdle = d
		}
	}
}

// WithReadLimit caps the size of an inbound websocket message.
func WithReadLimit(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.readLimit = n
		}
	}
}

// WithLogger sets the session logger. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
