package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Mode is a wire mode a session can use.
type Mode string

const (
	ModeWebsocket Mode = "websocket"
	ModePolling   Mode = "polling"
)

// EventNotifyMessage is the frame event carrying a notification payload.
const EventNotifyMessage = "notify.message"

// EventKind classifies session events.
type EventKind string

const (
	EventConnected    EventKind = "connected"
	EventDisconnected EventKind = "disconnected"
	EventConnectError EventKind = "connect_error"
	EventMessage      EventKind = "message"
)

// Event is reported by a session through its Emitter.
type Event struct {
	Kind    EventKind
	Mode    Mode            // connected
	Reason  string          // disconnected
	Err     error           // connect_error, disconnected
	Name    string          // message
	Payload json.RawMessage // message
}

// Emitter receives session events.
type Emitter func(Event)

// Transport opens sessions to a Target.
type Transport interface {
	Open(ctx context.Context, target Target, emit Emitter) Session
	Modes() []Mode
}

// Session is a live or connecting link.
type Session interface {
	Close() error
}

// Target identifies the notification endpoint and credential.
type Target struct {
	BaseURL    string
	Path       string
	Credential string
}

// URL returns the endpoint URL for mode, with the credential as the token
// query parameter. Websocket URLs use ws or wss.
func (t Target) URL(mode Mode) (string, error) {
	u, err := url.Parse(strings.TrimSpace(t.BaseURL))
	if err != nil {
		return "", errors.Join(ErrInvalidTarget, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: base url %q has no host", ErrInvalidTarget, t.BaseURL)
	}

	switch mode {
	case ModeWebsocket:
		switch u.Scheme {
		case "http", "ws":
			u.Scheme = "ws"
		case "https", "wss":
			u.Scheme = "wss"
		default:
			return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidTarget, u.Scheme)
		}
	case ModePolling:
		switch u.Scheme {
		case "http", "ws":
			u.Scheme = "http"
		case "https", "wss":
			u.Scheme = "https"
		default:
			return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidTarget, u.Scheme)
		}
	default:
		return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidTarget, mode)
	}

	path := t.Path
	if path == "" {
		path = "/api/notify"
	}
	u.Path = strings.TrimRight(u.Path, "/") + path

	q := u.Query()
	if t.Credential != "" {
		q.Set("token", t.Credential)
	}
	if mode == ModePolling {
		q.Set("transport", string(ModePolling))
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Header returns the handshake headers carrying the credential.
func (t Target) Header() http.Header {
	h := http.Header{}
	if t.Credential != "" {
		h.Set("Authorization", "Bearer "+t.Credential)
	}
	return h
}

// Frame is the wire envelope of every inbound message.
type Frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DecodeFrame parses a single frame.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, errors.Join(ErrMalformedFrame, err)
	}
	if f.Event == "" {
		return Frame{}, fmt.Errorf("%w: missing event name", ErrMalformedFrame)
	}
	return f, nil
}

// DecodeFrames parses a JSON array of frames, skipping malformed elements.
// The returned count is the number of skipped elements.
func DecodeFrames(data []byte) ([]Frame, int, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, errors.Join(ErrMalformedFrame, err)
	}

	frames := make([]Frame, 0, len(raw))
	skipped := 0
	for _, r := range raw {
		f, err := DecodeFrame(r)
		if err != nil {
			skipped++
			continue
		}
		frames = append(frames, f)
	}
	return frames, skipped, nil
}
