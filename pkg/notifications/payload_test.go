package notifications_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agathaorg/notifykit/pkg/notifications"
)

func TestPayloadTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"chat name wins", `{"chatId":7,"chatName":"Team","chat":{"name":"Other"},"message":{"content":"hi"}}`, "Team"},
		{"nested chat name", `{"chatId":7,"chat":{"name":"Nested"},"message":{"content":"hi"}}`, "Nested"},
		{"numeric id fallback", `{"chatId":7,"message":{"content":"hi"}}`, "会话 7"},
		{"string id fallback", `{"chatId":"abc","message":{"content":"hi"}}`, "会话 abc"},
		{"empty name falls through", `{"chatId":3,"chatName":"","message":{"content":"hi"}}`, "会话 3"},
		{"no chat info", `{"message":{"content":"hi"}}`, "Minechat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := notifications.DecodePayload([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Title())
		})
	}
}

func TestPayloadBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"string content", `{"chatId":7,"message":{"content":"hi"}}`, "hi"},
		{"text field", `{"message":{"content":{"text":"hello"}}}`, "hello"},
		{"body field", `{"message":{"content":{"body":"from body"}}}`, "from body"},
		{"text beats body", `{"message":{"content":{"text":"t","body":"b"}}}`, "t"},
		{"empty object", `{"message":{"content":{}}}`, "{}"},
		{"object without text", `{"message":{"content":{"image":"a.png","size":2}}}`, `{"image":"a.png","size":2}`},
		{"empty text falls back", `{"message":{"content":{"text":"","url":"x"}}}`, `{"text":"","url":"x"}`},
		{"array", `{"message":{"content":[1, 2]}}`, "[1,2]"},
		{"missing content", `{"message":{}}`, ""},
		{"null content", `{"message":{"content":null}}`, ""},
		{"numeric content", `{"message":{"content":42}}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := notifications.DecodePayload([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Body())
		})
	}
}

func TestDecodePayloadMalformed(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		`not json`,
		`[]`,
		`{"chatId":7}`,
		`{"chatId":7,"message":null}`,
		`{"chatId":7,"message":""}`,
	} {
		_, err := notifications.DecodePayload([]byte(raw))
		assert.ErrorIs(t, err, notifications.ErrMalformedPayload, raw)
	}
}
