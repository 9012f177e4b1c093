package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agathaorg/notifykit/pkg/logger"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	line, _, _ := strings.Cut(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	return entry
}

func TestNewFormats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts []logger.Option
		json bool
	}{
		{name: "json by default", json: true},
		{name: "text", opts: []logger.Option{logger.WithFormat(logger.FormatText)}},
		{name: "last format wins", opts: []logger.Option{logger.WithFormat(logger.FormatText), logger.WithFormat(logger.FormatJSON)}, json: true},
		{name: "environment then json", opts: []logger.Option{logger.WithEnvironment("development", ""), logger.WithFormat(logger.FormatJSON)}, json: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			buf := &bytes.Buffer{}
			log := logger.New(append(tt.opts, logger.WithOutput(buf))...)
			log.Info("socket open", logger.Component("connection"))

			if tt.json {
				entry := decodeLine(t, buf)
				assert.Equal(t, "socket open", entry["msg"])
				assert.Equal(t, "connection", entry["component"])
				return
			}
			assert.Contains(t, buf.String(), `msg="socket open"`)
			assert.Contains(t, buf.String(), "component=connection")
		})
	}

	t.Run("unknown format panics", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { logger.New(logger.WithFormat(logger.Format("xml"))) })
	})
}

func TestRunID(t *testing.T) {
	t.Parallel()

	ring := logger.NewRing(4)
	buf := &bytes.Buffer{}
	log := logger.New(logger.WithOutput(buf), logger.WithRing(ring))

	ctx := logger.WithRunID(context.Background(), "run-7")
	assert.Equal(t, "run-7", logger.RunID(ctx))
	log.InfoContext(ctx, "listener started")

	assert.Equal(t, "run-7", decodeLine(t, buf)["run_id"])
	require.Equal(t, 1, ring.Len())
	assert.Equal(t, "run-7", ring.Entries()[0].Attrs["run_id"])

	t.Run("absent without id", func(t *testing.T) {
		t.Parallel()

		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf))
		log.InfoContext(logger.WithRunID(context.Background(), ""), "idle")
		assert.NotContains(t, decodeLine(t, buf), "run_id")
	})

	t.Run("survives derived loggers", func(t *testing.T) {
		t.Parallel()

		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf)).With(logger.Component("pushreg")).WithGroup("http")
		log.InfoContext(logger.WithRunID(context.Background(), "run-8"), "register", slog.Int("status", 200))

		entry := decodeLine(t, buf)
		assert.Equal(t, "pushreg", entry["component"])
		group, ok := entry["http"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "run-8", group["run_id"])
		assert.InDelta(t, 200, group["status"], 0)
	})
}

func TestContextExtractors(t *testing.T) {
	t.Parallel()

	type sessionKey struct{}
	buf := &bytes.Buffer{}
	log := logger.New(
		logger.WithOutput(buf),
		logger.WithContextValue("session", sessionKey{}),
		logger.WithContextExtractors(nil, func(ctx context.Context) (slog.Attr, bool) {
			return slog.String("transport", "native"), true
		}),
	)

	ctx := context.WithValue(context.Background(), sessionKey{}, "s-1")
	log.WarnContext(ctx, "connect error")

	entry := decodeLine(t, buf)
	assert.Equal(t, "s-1", entry["session"])
	assert.Equal(t, "native", entry["transport"])
	assert.Equal(t, "WARN", entry["level"])
}

func TestWithEnvironment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		env       string
		wantEnv   string
		debugSeen bool
	}{
		{env: "development", wantEnv: "development", debugSeen: true},
		{env: "", wantEnv: "development", debugSeen: true},
		{env: "prod", wantEnv: "production"},
		{env: "STAGE", wantEnv: "staging"},
	}

	for _, tt := range tests {
		t.Run(tt.wantEnv+"/"+tt.env, func(t *testing.T) {
			t.Parallel()

			buf := &bytes.Buffer{}
			log := logger.New(logger.WithEnvironment(tt.env, "notifyd"), logger.WithOutput(buf))

			log.Debug("token poll")
			if !tt.debugSeen {
				assert.Empty(t, buf.String())
				log.Info("token poll")
				entry := decodeLine(t, buf)
				assert.Equal(t, "notifyd", entry["service"])
				assert.Equal(t, tt.wantEnv, entry["env"])
				return
			}
			assert.Contains(t, buf.String(), "level=DEBUG")
			assert.Contains(t, buf.String(), "service=notifyd")
			assert.Contains(t, buf.String(), "env="+tt.wantEnv)
		})
	}

	t.Run("later level wins", func(t *testing.T) {
		t.Parallel()

		buf := &bytes.Buffer{}
		log := logger.New(
			logger.WithEnvironment("development", ""),
			logger.WithLevel(slog.LevelWarn),
			logger.WithOutput(buf),
		)
		log.Info("dropped")
		assert.Empty(t, buf.String())
	})
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: " WARN ", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "loud", want: slog.LevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		lvl, err := logger.ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
		} else {
			assert.NoError(t, err, tt.in)
		}
		assert.Equal(t, tt.want, lvl, tt.in)
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	f, err := logger.ParseFormat(" TEXT ")
	require.NoError(t, err)
	assert.Equal(t, logger.FormatText, f)

	f, err = logger.ParseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, logger.FormatJSON, f)

	_, err = logger.ParseFormat("logfmt")
	assert.Error(t, err)
}

func TestDiscard(t *testing.T) {
	t.Parallel()
	assert.False(t, logger.Discard().Enabled(context.Background(), slog.LevelError))
}
