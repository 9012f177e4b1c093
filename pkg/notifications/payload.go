package notifications

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DefaultTitle is used when a payload carries no chat information at all.
const DefaultTitle = "Minechat"

// ChatID is a chat identifier sent either as a JSON number or string.
type ChatID string

// UnmarshalJSON accepts a string or a number. null and any other JSON
// type decode to an empty id.
func (c *ChatID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*c = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = ChatID(s)
	case data[0] == '-' || (data[0] >= '0' && data[0] <= '9'):
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*c = ChatID(n.String())
	default:
		*c = ""
	}
	return nil
}

// Chat is the optional nested chat descriptor.
type Chat struct {
	Name string `json:"name"`
}

// Payload is the body of a notify.message frame.
type Payload struct {
	ChatID   ChatID          `json:"chatId"`
	ChatName string          `json:"chatName,omitempty"`
	Chat     *Chat           `json:"chat,omitempty"`
	Message  json.RawMessage `json:"message,omitempty"`
}

// DecodePayload parses raw and checks that it carries a message.
func DecodePayload(raw []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, errors.Join(ErrMalformedPayload, err)
	}
	if !truthy(p.Message) {
		return Payload{}, fmt.Errorf("%w: missing message", ErrMalformedPayload)
	}
	return p, nil
}

// Title returns the display title.
func (p Payload) Title() string {
	if p.ChatName != "" {
		return p.ChatName
	}
	if p.Chat != nil && p.Chat.Name != "" {
		return p.Chat.Name
	}
	if p.ChatID != "" {
		return "会话 " + string(p.ChatID)
	}
	return DefaultTitle
}

// Body returns the display body.
func (p Payload) Body() string {
	var msg struct {
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(p.Message, &msg); err != nil {
		return ""
	}
	return contentText(msg.Content)
}

func contentText(content json.RawMessage) string {
	content = bytes.TrimSpace(content)
	if len(content) == 0 {
		return ""
	}

	switch content[0] {
	case '"':
		var s string
		if err := json.Unmarshal(content, &s); err != nil {
			return ""
		}
		return s
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(content, &fields); err != nil {
			return ""
		}
		if s := textField(fields["text"]); s != "" {
			return s
		}
		if s := textField(fields["body"]); s != "" {
			return s
		}
		return compactJSON(content)
	case '[':
		return compactJSON(content)
	default:
		return ""
	}
}

// textField returns a truthy field rendered as text.
func textField(raw json.RawMessage) string {
	if !truthy(raw) {
		return ""
	}
	raw = bytes.TrimSpace(raw)
	if raw[0] == '"' {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
		return ""
	}
	if raw[0] == '{' || raw[0] == '[' {
		return compactJSON(raw)
	}
	return string(raw)
}

func compactJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return strings.TrimSpace(string(raw))
	}
	return buf.String()
}

// truthy follows the loose truthiness the server payloads are written against:
// missing, null, false, 0 and "" are false.
func truthy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	switch string(raw) {
	case "", "null", "false", "0", `""`:
		return false
	}
	return true
}
