package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agathaorg/notifykit/pkg/config"
	"github.com/agathaorg/notifykit/pkg/credentials"
	"github.com/agathaorg/notifykit/pkg/notifytest"
	"github.com/agathaorg/notifykit/pkg/secrets"
)

func TestBuildRootCmdIncludesSubcommands(t *testing.T) {
	t.Parallel()

	cmd := buildRootCmd()
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, name := range []string{"run", "config", "register"} {
		assert.True(t, names[name], "missing subcommand %q", name)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notifyd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestConfigCommandMasksSecret(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "register_secret: topsecret\nplatform: ios\n")

	var out bytes.Buffer
	cmd := buildRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "--config", path})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "platform: ios")
	assert.Contains(t, out.String(), "***")
	assert.NotContains(t, out.String(), "topsecret")
}

func TestOpenStore(t *testing.T) {
	t.Parallel()

	cfg, err := config.FromFile(writeConfig(t, "store: memory\n"))
	require.NoError(t, err)
	s, release, err := openStore(context.Background(), cfg)
	require.NoError(t, err)
	release()
	assert.IsType(t, &credentials.MemoryStore{}, s)

	cfg.Store = config.StoreFile
	cfg.StorePath = filepath.Join(t.TempDir(), "store.json")
	s, release, err = openStore(context.Background(), cfg)
	require.NoError(t, err)
	defer release()
	require.NoError(t, s.SetToken(context.Background(), "persisted"))

	again, err := credentials.NewFileStore(cfg.StorePath)
	require.NoError(t, err)
	tok, err := again.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "persisted", tok)
}

func TestRegisterOnce(t *testing.T) {
	t.Parallel()

	srv := notifytest.NewServer(t)
	path := writeConfig(t, strings.Join([]string{
		"api_base: " + srv.APIBase(),
		"register_secret: s3cret",
		"app_id: testapp",
	}, "\n")+"\n")

	var out bytes.Buffer
	require.NoError(t, registerOnce(context.Background(), path, "tok", "cid-9", &out))
	assert.Contains(t, out.String(), "registered cid-9")

	regs := srv.Registrations()
	require.Len(t, regs, 1)
	assert.Equal(t, "tok", regs[0].Token)
	assert.Equal(t, "cid-9", regs[0].CID)
	assert.Equal(t, "testapp", regs[0].AppID)
	assert.NotEmpty(t, regs[0].Signature)

	err := registerOnce(context.Background(), path, "", "cid-9", &out)
	assert.Error(t, err)
	assert.Equal(t, 1, srv.RegisterCalls())
}

func TestOpenStoreSealsWithKey(t *testing.T) {
	t.Parallel()

	key, err := secrets.GenerateKey()
	require.NoError(t, err)

	cfg, err := config.FromFile(writeConfig(t, "store: file\n"))
	require.NoError(t, err)
	cfg.StorePath = filepath.Join(t.TempDir(), "store.json")
	cfg.StoreKey = hex.EncodeToString(key)

	s, release, err := openStore(context.Background(), cfg)
	require.NoError(t, err)
	defer release()
	require.NoError(t, s.SetToken(context.Background(), "sealed-token"))

	data, err := os.ReadFile(cfg.StorePath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sealed-token")

	tok, err := s.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sealed-token", tok)
}
