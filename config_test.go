package notifykit_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agathaorg/notifykit"
	"github.com/agathaorg/notifykit/pkg/config"
	"github.com/agathaorg/notifykit/pkg/credentials"
	"github.com/agathaorg/notifykit/pkg/logger"
	"github.com/agathaorg/notifykit/pkg/notifytest"
	"github.com/agathaorg/notifykit/pkg/pushreg"
)

func configFor(t *testing.T, srv *notifytest.Server) config.Config {
	t.Helper()

	path := filepath.Join(t.TempDir(), "notifyd.yaml")
	doc := fmt.Sprintf("ws_base: %s\nsocket_path: %s\napi_base: %s\ntoken_poll_interval: 10ms\n",
		srv.URL(), srv.SocketPath(), srv.APIBase())
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := config.FromFile(path)
	require.NoError(t, err)
	return cfg
}

func TestNewFromConfigWithClientIDSource(t *testing.T) {
	t.Parallel()

	srv := notifytest.NewServer(t)
	cfg := configFor(t, srv)
	require.Empty(t, cfg.ClientID)

	ids := pushreg.ClientIDFunc(func(context.Context) (string, error) { return "cid-from-host", nil })
	l, err := notifykit.NewFromConfig(cfg, logger.Discard(),
		notifykit.WithStore(credentials.NewMemoryStore("tok")),
		notifykit.WithClientIDSource(ids),
	)
	require.NoError(t, err)
	t.Cleanup(l.Stop)

	require.NoError(t, l.Start(context.Background(), nil))
	waitState(t, l, notifykit.StateConnected)
	require.Eventually(t, func() bool { return srv.RegisterCalls() == 1 }, waitFor, tick)

	reg := srv.Registrations()[0]
	assert.Equal(t, "cid-from-host", reg.CID)
	assert.Equal(t, "tok", reg.Token)
	assert.Equal(t, cfg.Platform, reg.Platform)
	assert.Equal(t, cfg.AppID, reg.AppID)
}

func TestNewFromConfigRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	srv := notifytest.NewServer(t)
	cfg := configFor(t, srv)
	cfg.Transport = "smoke-signals"

	_, err := notifykit.NewFromConfig(cfg, logger.Discard())
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
