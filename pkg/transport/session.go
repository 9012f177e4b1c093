package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/agathaorg/notifykit/pkg/logger"
)

// link is an established connection in one mode.
type link interface {
	mode() Mode
	// serve delivers frames until the link fails or ctx is done.
	serve(ctx context.Context, deliver func(Frame)) error
	close()
}

type session struct {
	opts   *options
	target Target
	modes  []Mode
	emit   Emitter
	log    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	emitMu sync.Mutex
	closed bool

	linkMu  sync.Mutex
	current link
}

func openSession(ctx context.Context, opts *options, modes []Mode, target Target, emit Emitter) *session {
	sctx, cancel := context.WithCancel(ctx)
	s := &session{
		opts:   opts,
		target: target,
		modes:  modes,
		emit:   emit,
		log:    opts.logger.With(logger.Component("transport")),
		ctx:    sctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

// Close stops the session and waits for its goroutine.
func (s *session) Close() error {
	s.emitMu.Lock()
	s.closed = true
	s.emitMu.Unlock()

	s.cancel()

	s.linkMu.Lock()
	if s.current != nil {
		s.current.close()
	}
	s.linkMu.Unlock()

	<-s.done
	return nil
}

func (s *session) fire(ev Event) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	if s.closed || s.emit == nil {
		return
	}
	s.emit(ev)
}

func (s *session) run() {
	defer close(s.done)

	delay := s.opts.redialMin
	for {
		l, err := s.dial()
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.log.LogAttrs(s.ctx, slog.LevelDebug, "dial failed", logger.Error(err))
			s.fire(Event{Kind: EventConnectError, Err: err})
		} else {
			delay = s.opts.redialMin
			s.fire(Event{Kind: EventConnected, Mode: l.mode()})

			err = l.serve(s.ctx, s.deliver)
			l.close()
			s.setLink(nil)

			if s.ctx.Err() != nil {
				return
			}
			s.fire(Event{Kind: EventDisconnected, Reason: disconnectReason(err), Err: err})
		}

		select {
		case <-s.ctx.Done():
			return
		case <-time.After(delay):
		}
		delay = min(delay*2, s.opts.redialMax)
	}
}

func (s *session) setLink(l link) bool {
	s.linkMu.Lock()
	defer s.linkMu.Unlock()
	if l != nil && s.ctx.Err() != nil {
		return false
	}
	s.current = l
	return true
}

func (s *session) dial() (link, error) {
	if len(s.modes) == 0 {
		return nil, ErrNoModeAvailable
	}

	var errs []error
	for _, m := range s.modes {
		var (
			l   link
			err error
		)
		switch m {
		case ModeWebsocket:
			l, err = s.dialWebsocket()
		case ModePolling:
			l, err = s.dialPolling()
		default:
			err = fmt.Errorf("%w: %s", ErrNoModeAvailable, m)
		}
		if err == nil {
			if !s.setLink(l) {
				l.close()
				return nil, ErrSessionClosed
			}
			return l, nil
		}
		if s.ctx.Err() != nil {
			return nil, s.ctx.Err()
		}
		errs = append(errs, fmt.Errorf("%s: %w", m, err))
	}
	return nil, errors.Join(errs...)
}

func (s *session) deliver(f Frame) {
	s.fire(Event{Kind: EventMessage, Name: f.Event, Payload: f.Payload})
}

func (s *session) dialWebsocket() (link, error) {
	u, err := s.target.URL(ModeWebsocket)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.opts.handshakeTimeout)
	defer cancel()

	conn, resp, err := s.opts.dialer.DialContext(ctx, u, s.target.Header())
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, statusError(resp.StatusCode, err)
		}
		return nil, errors.Join(ErrHandshake, err)
	}

	conn.SetReadLimit(s.opts.readLimit)
	return &wsLink{conn: conn, log: s.log}, nil
}

func (s *session) dialPolling() (link, error) {
	u, err := s.target.URL(ModePolling)
	if err != nil {
		return nil, err
	}

	p := &pollLink{
		client: s.opts.httpClient,
		url:    u,
		header: s.target.Header(),
		idle:   s.opts.pollIdle,
		log:    s.log,
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.opts.handshakeTimeout)
	defer cancel()

	frames, err := p.poll(ctx)
	if err != nil {
		return nil, err
	}
	p.pending = frames
	return p, nil
}

func statusError(code int, cause error) error {
	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		return fmt.Errorf("%w: status %d", ErrUnauthorized, code)
	}
	if cause == nil {
		return fmt.Errorf("%w: status %d", ErrHandshake, code)
	}
	return fmt.Errorf("%w: status %d: %w", ErrHandshake, code, cause)
}

func disconnectReason(err error) string {
	var ce *websocket.CloseError
	switch {
	case err == nil:
		return "io server disconnect"
	case errors.As(err, &ce):
		if ce.Text != "" {
			return ce.Text
		}
		return fmt.Sprintf("close %d", ce.Code)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return "transport close"
	default:
		return "transport error"
	}
}

type wsLink struct {
	conn *websocket.Conn
	log  *slog.Logger
	once sync.Once
}

func (w *wsLink) mode() Mode { return ModeWebsocket }

func (w *wsLink) serve(ctx context.Context, deliver func(Frame)) error {
	for {
		kind, data, err := w.conn.ReadMessage()
		if err != nil {
			return err
		}
		if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
			continue
		}

		f, err := DecodeFrame(data)
		if err != nil {
			w.log.LogAttrs(ctx, slog.LevelWarn, "dropping malformed frame",
				logger.Transport(string(ModeWebsocket)),
				logger.Error(err),
			)
			continue
		}
		deliver(f)
	}
}

func (w *wsLink) close() {
	w.once.Do(func() {
		_ = w.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client close"),
			time.Now().Add(time.Second))
		_ = w.conn.Close()
	})
}

type pollLink struct {
	client  *http.Client
	url     string
	header  http.Header
	idle    time.Duration
	log     *slog.Logger
	pending []Frame
}

func (p *pollLink) mode() Mode { return ModePolling }

func (p *pollLink) serve(ctx context.Context, deliver func(Frame)) error {
	for _, f := range p.pending {
		deliver(f)
	}
	p.pending = nil

	for {
		frames, err := p.poll(ctx)
		if err != nil {
			return err
		}
		if len(frames) > 0 {
			for _, f := range frames {
				deliver(f)
			}
			continue
		}
		if p.idle > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.idle):
			}
		}
	}
}

func (p *pollLink) close() {}

func (p *pollLink) poll(ctx context.Context) ([]Frame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, errors.Join(ErrPollFailed, err)
	}
	for k, v := range p.header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Join(ErrPollFailed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return nil, nil
	case resp.StatusCode == http.StatusOK:
	default:
		return nil, statusError(resp.StatusCode, ErrPollFailed)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, DefaultReadLimit))
	if err != nil {
		return nil, errors.Join(ErrPollFailed, err)
	}
	if len(body) == 0 {
		return nil, nil
	}

	frames, skipped, err := DecodeFrames(body)
	if err != nil {
		return nil, errors.Join(ErrPollFailed, err)
	}
	if skipped > 0 {
		p.log.LogAttrs(ctx, slog.LevelWarn, "dropping malformed frames",
			logger.Transport(string(ModePolling)),
			slog.Int("count", skipped),
		)
	}
	return frames, nil
}
