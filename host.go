package notifykit

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/agathaorg/notifykit/pkg/logger"
)

// HostMessageToken is the type of the message an embedded login view posts
// after a successful login.
const HostMessageToken = "minechat-token"

type hostMessage struct {
	Type  string          `json:"type"`
	Token json.RawMessage `json:"token"`
}

// ParseHostMessage extracts the credential from a login message. It reports
// false for any other message, including one with an empty token.
func ParseHostMessage(data []byte) (string, bool) {
	var msg hostMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type != HostMessageToken {
		return "", false
	}

	var token string
	if err := json.Unmarshal(msg.Token, &token); err != nil {
		// Non-string tokens are taken verbatim.
		token = string(msg.Token)
	}
	token = strings.TrimSpace(token)
	if token == "" || token == "null" || token == "false" {
		return "", false
	}
	return token, true
}

// HandleHostMessage applies a login message posted by the host. It reports
// whether data was a login message.
func (l *Listener) HandleHostMessage(data []byte) bool {
	token, ok := ParseHostMessage(data)
	if !ok {
		return false
	}
	l.logger.LogAttrs(l.ctx(), slog.LevelInfo, "credential received from host", logger.Token(token))
	if err := l.SetCredentialAndReconnect(token); err != nil {
		l.logger.LogAttrs(l.ctx(), slog.LevelWarn, "failed to apply host credential", logger.Error(err))
	}
	return true
}
