package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the record encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Environment names understood by WithEnvironment.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Option adjusts how New builds a logger.
type Option func(*settings)

type settings struct {
	level      slog.Level
	format     Format
	out        io.Writer
	static     []slog.Attr
	extractors []ContextExtractor
	ring       *Ring
}

// New returns a logger writing JSON at info level to stderr unless options
// say otherwise. Records are enriched from context (run_id and any
// registered extractors) and optionally mirrored into a Ring.
func New(opts ...Option) *slog.Logger {
	s := settings{level: slog.LevelInfo, format: FormatJSON, out: os.Stderr}
	for _, opt := range opts {
		opt(&s)
	}

	h := s.encoder()
	if s.ring != nil {
		h = newRingHandler(h, s.ring)
	}
	if len(s.static) > 0 {
		h = h.WithAttrs(s.static)
	}
	return slog.New(withContextAttrs(h, s.extractors))
}

func (s settings) encoder() slog.Handler {
	ho := &slog.HandlerOptions{Level: s.level}
	if s.format == FormatText {
		return slog.NewTextHandler(s.out, ho)
	}
	return slog.NewJSONHandler(s.out, ho)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// SetAsDefault installs l as the process-wide slog default.
func SetAsDefault(l *slog.Logger) { slog.SetDefault(l) }

// ParseLevel converts debug, info, warn or error into a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return l, nil
}

// ParseFormat accepts "json" or "text", in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatText:
		return f, nil
	}
	return "", fmt.Errorf("invalid log format %q: want %q or %q", s, FormatJSON, FormatText)
}

// WithLevel sets the minimum level.
func WithLevel(l slog.Level) Option {
	return func(s *settings) { s.level = l }
}

// WithFormat panics on an unknown format; use ParseFormat for user input.
func WithFormat(f Format) Option {
	if _, err := ParseFormat(string(f)); err != nil {
		panic(err)
	}
	return func(s *settings) { s.format = f }
}

// WithOutput redirects records to w. A nil writer is ignored.
func WithOutput(w io.Writer) Option {
	return func(s *settings) {
		if w != nil {
			s.out = w
		}
	}
}

// WithAttr attaches attrs to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(s *settings) { s.static = append(s.static, attrs...) }
}

// WithContextExtractors adds extractors run on each record's context.
func WithContextExtractors(fns ...ContextExtractor) Option {
	return func(s *settings) { s.extractors = append(s.extractors, fns...) }
}

// WithContextValue logs ctx.Value(key) under name when present.
func WithContextValue(name string, key any) Option {
	if name == "" || key == nil {
		return func(*settings) {}
	}
	return WithContextExtractors(func(ctx context.Context) (slog.Attr, bool) {
		v := ctx.Value(key)
		return slog.Any(name, v), v != nil
	})
}

// WithRing mirrors every enabled record into r.
func WithRing(r *Ring) Option {
	return func(s *settings) {
		if r != nil {
			s.ring = r
		}
	}
}

// WithEnvironment sets level and format for env and tags records with
// service and env. Development (and anything unrecognised) logs debug text;
// staging and production log info JSON. Later options override it.
func WithEnvironment(env, service string) Option {
	return func(s *settings) {
		name := EnvDevelopment
		s.level, s.format = slog.LevelDebug, FormatText
		switch strings.ToLower(env) {
		case EnvProduction, "prod":
			name = EnvProduction
			s.level, s.format = slog.LevelInfo, FormatJSON
		case EnvStaging, "stage":
			name = EnvStaging
			s.level, s.format = slog.LevelInfo, FormatJSON
		}
		if service != "" {
			s.static = append(s.static, slog.String("service", service))
		}
		s.static = append(s.static, slog.String("env", name))
	}
}
