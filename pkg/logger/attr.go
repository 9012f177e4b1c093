package logger

import (
	"log/slog"
	"time"
)

// tokenPrefixLen is how much of a credential Token keeps.
const tokenPrefixLen = 8

// Error returns err under "error", or an empty Attr for nil so it can be
// passed unconditionally to LogAttrs.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component names the package or subsystem emitting the record.
func Component(name string) slog.Attr { return slog.String("component", name) }

// Event is a transport event or registration trigger name.
func Event(name string) slog.Attr { return slog.String("event", name) }

// State is a state machine state.
func State(s string) slog.Attr { return slog.String("state", s) }

// Transition groups a from/to state pair.
func Transition(from, to string) slog.Attr {
	return slog.Group("transition", slog.String("from", from), slog.String("to", to))
}

// Attempt is a 1-based retry counter.
func Attempt(n int) slog.Attr { return slog.Int("attempt", n) }

// Delay is the wait before the next scheduled try.
func Delay(d time.Duration) slog.Attr { return slog.Duration("delay", d) }

// Reason explains a disconnect or state change.
func Reason(r string) slog.Attr { return slog.String("reason", r) }

// Transport is the session mode, websocket or polling.
func Transport(mode string) slog.Attr { return slog.String("transport", mode) }

// ChatID is omitted when id is empty.
func ChatID(id string) slog.Attr { return optional("chat_id", id) }

// ClientID is the push client id, omitted when empty.
func ClientID(id string) slog.Attr { return optional("client_id", id) }

// Token logs a credential as its first few characters only. Short tokens
// are fully masked.
func Token(token string) slog.Attr {
	switch {
	case token == "":
		return slog.String("token", "")
	case len(token) <= tokenPrefixLen:
		return slog.String("token", "***")
	}
	return slog.String("token", token[:tokenPrefixLen]+"...")
}

func optional(key, v string) slog.Attr {
	if v == "" {
		return slog.Attr{}
	}
	return slog.String(key, v)
}
