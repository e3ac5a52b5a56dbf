// Package log provides ContextHandler, adapted verbatim in shape from the
// teacher's internal/log/handler.go: it enriches every record with a
// correlation id pulled from context before delegating to an inner
// slog.Handler.
package log

import (
	"context"
	"io"
	"log/slog"

	"github.com/kpopdotlink/fleetcron/internal/requestid"
)

// ContextHandler wraps an slog.Handler and automatically extracts
// request_id from the context of each log record.
type ContextHandler struct {
	inner slog.Handler
}

// NewContextHandler returns a handler that enriches every record with
// context values (currently request_id) before delegating to inner.
func NewContextHandler(inner slog.Handler) *ContextHandler {
	return &ContextHandler{inner: inner}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := requestid.FromContext(ctx); id != "" {
		r.AddAttrs(slog.String("request_id", id))
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{inner: h.inner.WithGroup(name)}
}

// New builds the top-level logger: tint for local/dev console output,
// JSON otherwise, both wrapped in ContextHandler (SPEC_FULL.md AMBIENT
// STACK, "Logging").
func New(env string, w io.Writer) *slog.Logger {
	var inner slog.Handler
	if env == "local" || env == "" {
		inner = tintHandler(w)
	} else {
		inner = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return slog.New(NewContextHandler(inner))
}
