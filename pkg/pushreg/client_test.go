package pushreg_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agathaorg/notifykit/pkg/notifytest"
	"github.com/agathaorg/notifykit/pkg/pushreg"
)

func TestNewClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		base    string
		wantErr bool
		want    string
	}{
		{name: "https", base: "https://example.com/api", want: "https://example.com/api/users/me/push/register"},
		{name: "trailing slash", base: "http://example.com/api/", want: "http://example.com/api/users/me/push/register"},
		{name: "ws scheme", base: "ws://example.com/api", wantErr: true},
		{name: "no host", base: "https:///api", wantErr: true},
		{name: "empty", base: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, err := pushreg.NewClient(tt.base)
			if tt.wantErr {
				assert.ErrorIs(t, err, pushreg.ErrInvalidURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Endpoint())
		})
	}
}

func TestClientRegister(t *testing.T) {
	t.Parallel()

	req := pushreg.Request{CID: "cid-1", Platform: "android", AppID: "minechat"}

	t.Run("posts bearer and body", func(t *testing.T) {
		t.Parallel()
		srv := notifytest.NewServer(t)
		c, err := pushreg.NewClient(srv.APIBase())
		require.NoError(t, err)

		res, err := c.Register(context.Background(), "tok-123", req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.StatusCode)

		regs := srv.Registrations()
		require.Len(t, regs, 1)
		assert.Equal(t, "tok-123", regs[0].Token)
		assert.Equal(t, "cid-1", regs[0].CID)
		assert.Equal(t, "android", regs[0].Platform)
		assert.Equal(t, "minechat", regs[0].AppID)
		assert.Empty(t, regs[0].Signature)
	})

	t.Run("non 2xx fails", func(t *testing.T) {
		t.Parallel()
		srv := notifytest.NewServer(t)
		srv.QueueRegisterStatus(http.StatusServiceUnavailable)
		c, err := pushreg.NewClient(srv.APIBase())
		require.NoError(t, err)

		res, err := c.Register(context.Background(), "tok", req)
		assert.ErrorIs(t, err, pushreg.ErrUnexpectedStatus)
		assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
	})

	t.Run("missing token never calls", func(t *testing.T) {
		t.Parallel()
		srv := notifytest.NewServer(t)
		c, err := pushreg.NewClient(srv.APIBase())
		require.NoError(t, err)

		_, err = c.Register(context.Background(), "", req)
		assert.ErrorIs(t, err, pushreg.ErrMissingToken)
		_, err = c.Register(context.Background(), "tok", pushreg.Request{})
		assert.ErrorIs(t, err, pushreg.ErrMissingClientID)
		assert.Zero(t, srv.RegisterCalls())
	})

	t.Run("signed request verifies", func(t *testing.T) {
		t.Parallel()
		srv := notifytest.NewServer(t)
		c, err := pushreg.NewClient(srv.APIBase(), pushreg.WithSigningSecret("s3cret"))
		require.NoError(t, err)

		_, err = c.Register(context.Background(), "tok", req)
		require.NoError(t, err)

		regs := srv.Registrations()
		require.Len(t, regs, 1)
		h := http.Header{}
		h.Set(pushreg.SignatureHeader, regs[0].Signature)
		h.Set(pushreg.TimestampHeader, regs[0].Timestamp)
		assert.NotEmpty(t, regs[0].ID)
		assert.NoError(t, pushreg.Verify("s3cret", regs[0].Body, h, time.Minute))
	})

	t.Run("unreachable host", func(t *testing.T) {
		t.Parallel()
		srv := notifytest.NewServer(t)
		base := srv.APIBase()
		srv.Close()

		c, err := pushreg.NewClient(base, pushreg.WithTimeout(time.Second))
		require.NoError(t, err)
		_, err = c.Register(context.Background(), "tok", req)
		assert.ErrorIs(t, err, pushreg.ErrRequestFailed)
	})
}

func TestClientErrorKeepsWholeCharacters(t *testing.T) {
	t.Parallel()

	body := "x" + strings.Repeat("服务器错误", 60)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	client, err := pushreg.NewClient(srv.URL)
	require.NoError(t, err)

	res, err := client.Register(context.Background(), "tok", pushreg.Request{CID: "cid"})
	require.ErrorIs(t, err, pushreg.ErrUnexpectedStatus)
	assert.Equal(t, http.StatusBadGateway, res.StatusCode)

	msg := err.Error()
	assert.True(t, utf8.ValidString(msg))
	assert.True(t, strings.HasSuffix(msg, "..."))
	_, detail, ok := strings.Cut(msg, ": 502: ")
	require.True(t, ok)
	assert.Equal(t, 200, utf8.RuneCountInString(strings.TrimSuffix(detail, "...")))
}
