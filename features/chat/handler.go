package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	chatsvc "github.com/jungyuya/new-blog-sub000/internal/chat"
	"github.com/jungyuya/new-blog-sub000/internal/middleware"
	"github.com/jungyuya/new-blog-sub000/internal/quota"
)

type QuotaReader interface {
	Peek(ctx context.Context) (quota.Status, error)
}

type Handler struct {
	service *chatsvc.Service
	quota   QuotaReader
}

func NewHandler(service *chatsvc.Service, quota QuotaReader) *Handler {
	return &Handler{service: service, quota: quota}
}

// Ask streams the answer for one question. The response body is plain text:
// a sources frame first, then answer tokens flushed as they arrive. Errors
// found before the first byte map to JSON error responses; once streaming
// has begun the connection is simply closed.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	var req chatsvc.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(ctx, w, "VALIDATION_ERROR", "invalid request body", http.StatusBadRequest)
		return
	}

	sink := newFlushSink(w)

	err := h.service.Ask(ctx, req, sink)
	if err == nil {
		return
	}

	if sink.wrote {
		// Headers are gone; nothing left to do but log and drop the stream.
		slog.ErrorContext(ctx, "chat stream aborted", "error", err, "correlationId", correlationID)
		return
	}

	var rejection *chatsvc.GuardrailRejection
	switch {
	case errors.As(err, &rejection):
		slog.InfoContext(ctx, "question blocked", "stage", rejection.Stage, "correlationId", correlationID)
		h.writeError(ctx, w, "GUARDRAIL_BLOCKED", rejection.Reason, http.StatusBadRequest)
	case errors.Is(err, chatsvc.ErrQuotaExceeded):
		h.writeError(ctx, w, "QUOTA_EXCEEDED", "daily chat quota exceeded, try again tomorrow", http.StatusTooManyRequests)
	default:
		slog.ErrorContext(ctx, "chat pipeline failed", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to answer the question", http.StatusInternalServerError)
	}
}

// GetQuota reports today's remaining budget without consuming any of it.
func (h *Handler) GetQuota(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status, err := h.quota.Peek(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to read quota", "error", err, "correlationId", middleware.GetCorrelationID(ctx))
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to read quota", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeError emits the flat chat error body the widget consumes:
// {"error": "<code>", "message": "<detail>"}. The correlation id stays in
// the logs; these two endpoints keep their wire shape stable for the UI.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]string{
		"error":   code,
		"message": message,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// flushSink streams fragments straight to the client. The first write
// commits the response as a chunked text stream.
type flushSink struct {
	w     http.ResponseWriter
	wrote bool
}

func newFlushSink(w http.ResponseWriter) *flushSink {
	return &flushSink{w: w}
}

func (s *flushSink) WriteText(text string) error {
	if !s.wrote {
		s.w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		s.w.Header().Set("Cache-Control", "no-cache")
		s.w.WriteHeader(http.StatusOK)
		s.wrote = true
	}
	if _, err := s.w.Write([]byte(text)); err != nil {
		return err
	}
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
