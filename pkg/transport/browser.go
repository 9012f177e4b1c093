package transport

import "context"

// BrowserTransport connects over websocket and falls back to long-polling.
type BrowserTransport struct {
	opts *options
}

// NewBrowser creates a transport with a polling fallback.
func NewBrowser(opts ...Option) *BrowserTransport {
	return &BrowserTransport{opts: newOptions(opts)}
}

// Open starts a session. Events are reported through emit until the session is closed.
func (t *BrowserTransport) Open(ctx context.Context, target Target, emit Emitter) Session {
	return openSession(ctx, t.opts, t.Modes(), target, emit)
}

// Modes lists websocket, then polling.
func (t *BrowserTransport) Modes() []Mode {
	return []Mode{ModeWebsocket, ModePolling}
}

// ForMode returns the transport for a configured mode name: "browser"
// selects BrowserTransport, anything else NativeTransport.
func ForMode(name string, opts ...Option) Transport {
	if name == "browser" {
		return NewBrowser(opts...)
	}
	return NewNative(opts...)
}
