package eventloop

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/agathaorg/notifykit/pkg/logger"
)

// Loop executes posted tasks one at a time on a dedicated goroutine.
type Loop struct {
	mu    sync.Mutex
	tasks []func()
	wake  chan struct{}

	done      chan struct{}
	exited    chan struct{}
	closeOnce sync.Once

	logger *slog.Logger
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger used to report recovered task panics.
func WithLogger(l *slog.Logger) Option {
	return func(loop *Loop) {
		if l != nil {
			loop.logger = l
		}
	}
}

// New creates a loop and starts its goroutine.
func New(opts ...Option) *Loop {
	l := &Loop{
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}

	go l.run()
	return l
}

// Post enqueues fn. It returns false if the loop is closed, in which case fn never runs.
func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	select {
	case <-l.done:
		return false
	default:
	}

	l.tasks = append(l.tasks, fn)
	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Call posts fn and waits until it has run.
// It must not be called from a loop task.
func (l *Loop) Call(fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrClosed
	}

	select {
	case <-finished:
		return nil
	case <-l.exited:
		// The loop may have finished fn right before exiting.
		select {
		case <-finished:
			return nil
		default:
			return ErrClosed
		}
	}
}

// Close stops the loop after the running task, discards queued tasks and
// waits for the loop goroutine to exit. It is idempotent and must not be
// called from a loop task.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		close(l.done)
		l.tasks = nil
		l.mu.Unlock()
	})
	<-l.exited
}

// Done is closed when Close has been called.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) run() {
	defer close(l.exited)

	for {
		select {
		case <-l.done:
			return
		case <-l.wake:
		}

		for {
			fn, ok := l.next()
			if !ok {
				break
			}
			l.exec(fn)
		}
	}
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	select {
	case <-l.done:
		return nil, false
	default:
	}

	if len(l.tasks) == 0 {
		return nil, false
	}
	fn := l.tasks[0]
	l.tasks[0] = nil
	l.tasks = l.tasks[1:]
	return fn, true
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.LogAttrs(context.Background(), slog.LevelError, "eventloop task panicked",
				logger.Component("eventloop"),
				logger.Error(fmt.Errorf("%w: %v", ErrPanic, r)),
			)
		}
	}()
	fn()
}
