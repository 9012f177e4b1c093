package logger

import (
	"context"
	"log/slog"
)

// ContextExtractor returns an attribute carried by ctx, if any.
type ContextExtractor func(ctx context.Context) (slog.Attr, bool)

type runIDKey struct{}

// WithRunID tags ctx with the id of one listener run. Every record logged
// with a descendant context carries it as run_id.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunID returns the run id set by WithRunID.
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

func runIDAttr(ctx context.Context) (slog.Attr, bool) {
	if id := RunID(ctx); id != "" {
		return slog.String("run_id", id), true
	}
	return slog.Attr{}, false
}

// contextHandler appends context-derived attributes before delegating.
type contextHandler struct {
	slog.Handler
	extract []ContextExtractor
}

func withContextAttrs(next slog.Handler, extra []ContextExtractor) slog.Handler {
	extract := make([]ContextExtractor, 0, len(extra)+1)
	extract = append(extract, runIDAttr)
	for _, fn := range extra {
		if fn != nil {
			extract = append(extract, fn)
		}
	}
	return contextHandler{Handler: next, extract: extract}
}

func (h contextHandler) Handle(ctx context.Context, rec slog.Record) error {
	if ctx != nil {
		for _, fn := range h.extract {
			if attr, ok := fn(ctx); ok {
				rec.AddAttrs(attr)
			}
		}
	}
	return h.Handler.Handle(ctx, rec)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{Handler: h.Handler.WithAttrs(attrs), extract: h.extract}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{Handler: h.Handler.WithGroup(name), extract: h.extract}
}
