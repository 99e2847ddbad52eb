package logger

import (
	"context"
	"log/slog"

	"github.com/jungyuya/new-blog-sub000/internal/middleware"
)

// ContextHandler decorates every record with the correlation_id found in the
// context, so request and change-feed logs can be stitched together.
type ContextHandler struct {
	slog.Handler
}

func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: h}
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ctx.Value(middleware.CorrelationKey).(string); ok && id != "" {
		r.AddAttrs(slog.String("correlation_id", id))
	}
	return h.Handler.Handle(ctx, r)
}
