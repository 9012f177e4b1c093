package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agathaorg/notifykit"
	"github.com/agathaorg/notifykit/pkg/config"
	"github.com/agathaorg/notifykit/pkg/credentials"
	"github.com/agathaorg/notifykit/pkg/logger"
	"github.com/agathaorg/notifykit/pkg/notifications"
	"github.com/agathaorg/notifykit/pkg/pushreg"
	"github.com/agathaorg/notifykit/pkg/secrets"
)

type runOptions struct {
	configPath     string
	token          string
	debug          bool
	statusInterval time.Duration
	stdin          io.Reader
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.FromFile(path)
	}
	return config.FromEnv()
}

func newLogger(cfg config.Config, debug bool, ring *logger.Ring) (*slog.Logger, error) {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if debug {
		level = slog.LevelDebug
	}
	format, err := logger.ParseFormat(cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	return logger.New(
		logger.WithEnvironment(cfg.AppEnv, "notifyd"),
		logger.WithLevel(level),
		logger.WithFormat(format),
		logger.WithRing(ring),
	), nil
}

// openStore returns the configured store and a function releasing it. With
// a store key the credential is sealed before it is written.
func openStore(ctx context.Context, cfg config.Config) (credentials.Storage, func(), error) {
	store, release, err := openBackingStore(ctx, cfg)
	if err != nil || cfg.StoreKey == "" {
		return store, release, err
	}

	key, err := secrets.ParseKey(cfg.StoreKey)
	if err != nil {
		release()
		return nil, nil, err
	}
	sealer, err := secrets.NewSealer(key, cfg.Store+":"+cfg.RedisKey)
	if err != nil {
		release()
		return nil, nil, err
	}
	sealed, err := credentials.NewSealedStore(store, sealer)
	if err != nil {
		release()
		return nil, nil, err
	}
	return sealed, release, nil
}

func openBackingStore(ctx context.Context, cfg config.Config) (credentials.Storage, func(), error) {
	switch cfg.Store {
	case config.StoreFile:
		s, err := credentials.NewFileStore(cfg.StorePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil

	case config.StoreRedis:
		client, err := credentials.ConnectRedis(ctx, credentials.RedisConfig{
			ConnectionURL:  cfg.RedisURL,
			RetryAttempts:  3,
			RetryInterval:  2 * time.Second,
			ConnectTimeout: 30 * time.Second,
		})
		if err != nil {
			return nil, nil, err
		}
		s, err := credentials.NewRedisStore(client, cfg.RedisKey)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return s, func() { _ = client.Close() }, nil

	default:
		return credentials.NewMemoryStore(""), func() {}, nil
	}
}

func runListener(ctx context.Context, opts runOptions) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	ring := logger.NewRing(logger.DefaultRingSize)
	log, err := newLogger(cfg, opts.debug, ring)
	if err != nil {
		return err
	}
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Store, err)
	}
	defer closeStore()

	if opts.token != "" {
		if err := store.SetToken(ctx, opts.token); err != nil {
			return fmt.Errorf("failed to store credential: %w", err)
		}
	}

	dispatcher := notifications.NewDispatcher(
		notifications.NewConsoleBackend(log),
		notifications.WithLogger(log),
		notifications.WithForeground(false),
	)
	l, err := notifykit.NewFromConfig(cfg, log,
		notifykit.WithStore(store),
		notifykit.WithDispatcher(dispatcher),
	)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(l.Run(gctx, nil))
	g.Go(func() error { return readHostInput(gctx, opts.stdin, l, ring, log) })
	if opts.statusInterval > 0 {
		g.Go(func() error { return logStatus(gctx, l, opts.statusInterval, log) })
	}

	log.LogAttrs(ctx, slog.LevelInfo, "notifyd started",
		slog.String("version", version),
		slog.String("store", cfg.Store),
		slog.String("transport", cfg.Transport),
	)
	err = g.Wait()
	log.LogAttrs(context.Background(), slog.LevelInfo, "notifyd stopped")
	return err
}

// readHostInput feeds stdin lines to the listener until ctx is done.
func readHostInput(ctx context.Context, r io.Reader, l *notifykit.Listener, ring *logger.Ring, log *slog.Logger) error {
	if r == nil {
		<-ctx.Done()
		return nil
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				// stdin closed; keep running until signalled.
				<-ctx.Done()
				return nil
			}
			handleHostLine(ctx, strings.TrimSpace(line), l, ring, log)
		}
	}
}

func handleHostLine(ctx context.Context, line string, l *notifykit.Listener, ring *logger.Ring, log *slog.Logger) {
	switch line {
	case "":
	case "foreground":
		l.AppForeground()
	case "background":
		l.AppBackground()
	case "network":
		l.NetworkRestored()
	case "status":
		logSnapshot(ctx, l, log)
	case "log":
		for _, e := range ring.Entries() {
			fmt.Fprintf(os.Stderr, "%s %-5s %s\n", e.Time.Format(time.RFC3339), e.Level, e.Message)
		}
	default:
		if !l.HandleHostMessage([]byte(line)) {
			log.LogAttrs(ctx, slog.LevelWarn, "ignoring unknown host input", slog.Int("bytes", len(line)))
		}
	}
}

func logStatus(ctx context.Context, l *notifykit.Listener, every time.Duration, log *slog.Logger) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			logSnapshot(ctx, l, log)
		}
	}
}

func logSnapshot(ctx context.Context, l *notifykit.Listener, log *slog.Logger) {
	st := l.Status()
	log.LogAttrs(ctx, slog.LevelInfo, st.Text(),
		logger.State(string(st.State)),
		slog.String("last_error", st.LastError),
		logger.Attempt(st.Attempts),
		slog.String("registration", string(st.Registration)),
	)
}

func registerOnce(ctx context.Context, configPath, token, clientID string, out io.Writer) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if clientID == "" {
		clientID = cfg.ClientID
	}
	if clientID == "" {
		return pushreg.ErrMissingClientID
	}

	if token == "" {
		store, closeStore, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore()
		if token, err = store.Token(ctx); err != nil {
			return err
		}
	}
	if token == "" {
		return pushreg.ErrMissingToken
	}

	client, err := pushreg.NewClient(cfg.APIBase,
		pushreg.WithTimeout(cfg.RegisterTimeout),
		pushreg.WithSigningSecret(cfg.RegisterSecret),
		pushreg.WithUserAgent("notifyd/"+version),
	)
	if err != nil {
		return err
	}

	res, err := client.Register(ctx, token, pushreg.Request{CID: clientID, Platform: cfg.Platform, AppID: cfg.AppID})
	if err != nil {
		if errors.Is(err, pushreg.ErrUnexpectedStatus) {
			return fmt.Errorf("registration rejected: %w", err)
		}
		return err
	}
	_, err = fmt.Fprintf(out, "registered %s with %s (status %d, %s)\n",
		clientID, client.Endpoint(), res.StatusCode, res.Duration.Round(time.Millisecond))
	return err
}
