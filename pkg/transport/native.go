package transport

import "context"

// NativeTransport connects over websocket only.
type NativeTransport struct {
	opts *options
}

// NewNative creates a websocket-only transport.
func NewNative(opts ...Option) *NativeTransport {
	return &NativeTransport{opts: newOptions(opts)}
}

// Open starts a session. Events are reported through emit until the session is closed.
func (t *NativeTransport) Open(ctx context.Context, target Target, emit Emitter) Session {
	return openSession(ctx, t.opts, t.Modes(), target, emit)
}

// Modes lists websocket only.
func (t *NativeTransport) Modes() []Mode {
	return []Mode{ModeWebsocket}
}
