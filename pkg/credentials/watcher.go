package credentials

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/agathaorg/notifykit/pkg/logger"
)

// DefaultPollInterval is how often Watcher reads the store.
const DefaultPollInterval = 1500 * time.Millisecond

// Watcher polls a Store and reports credential changes.
type Watcher struct {
	store    Store
	interval time.Duration
	onChange func(token string)
	logger   *slog.Logger

	mu      sync.Mutex
	last    string
	version uint64
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithPollInterval sets the polling period. Non-positive values are ignored.
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithWatcherLogger sets the logger for read failures.
func WithWatcherLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher creates a watcher calling onChange once per observed change.
// initial is the value considered current when watching starts.
func NewWatcher(store Store, initial string, onChange func(token string), opts ...WatcherOption) *Watcher {
	w := &Watcher{
		store:    store,
		interval: DefaultPollInterval,
		onChange: onChange,
		logger:   slog.Default(),
		last:     normalizeToken(initial),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Observe records token as seen so a write made by the caller is not
// reported back as a change.
func (w *Watcher) Observe(token string) {
	w.mu.Lock()
	w.last = normalizeToken(token)
	w.version++
	w.mu.Unlock()
}

// Last returns the last observed credential.
func (w *Watcher) Last() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// Run polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.Poll(ctx)
		}
	}
}

// Poll reads the store once and reports a change if there is one. A read
// that overlaps an Observe is discarded; the next poll sees the new value.
func (w *Watcher) Poll(ctx context.Context) {
	w.mu.Lock()
	seen := w.version
	w.mu.Unlock()

	token, err := w.store.Token(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.LogAttrs(ctx, slog.LevelWarn, "credential poll failed",
				logger.Component("credentials"),
				logger.Error(err),
			)
		}
		return
	}

	w.mu.Lock()
	if w.version != seen {
		w.mu.Unlock()
		return
	}
	changed := token != w.last
	if changed {
		w.last = token
	}
	w.mu.Unlock()

	if changed && w.onChange != nil {
		w.onChange(token)
	}
}
