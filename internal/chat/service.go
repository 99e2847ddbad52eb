package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jungyuya/new-blog-sub000/internal/guardrail"
	"github.com/jungyuya/new-blog-sub000/internal/settings"
)

// Stage names the steps of the chat pipeline. Each request advances through
// them in order; the first failure terminates the run.
type Stage string

const (
	StageValidating    Stage = "validating"
	StageQuotaChecking Stage = "quota_checking"
	StageExpanding     Stage = "expanding"
	StageRetrieving    Stage = "retrieving"
	StageStreaming     Stage = "streaming"
)

// StageError ties a pipeline failure to the stage it happened in. Only
// Validating and QuotaChecking failures map to user-facing rejections; every
// later stage is an internal error.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// GuardrailRejection is the user-facing refusal of an unsafe question.
type GuardrailRejection struct {
	Stage  guardrail.Stage
	Reason string
}

func (e *GuardrailRejection) Error() string { return e.Reason }

// ErrQuotaExceeded reports that today's global chat budget is spent.
var ErrQuotaExceeded = errors.New("daily chat quota exceeded")

type QuotaLimiter interface {
	TryConsume(ctx context.Context) (bool, error)
}

type Request struct {
	Question string `json:"question"`
	History  []Turn `json:"history,omitempty"`
}

type Service struct {
	quota       QuotaLimiter
	expander    *Expander
	retriever   *Retriever
	streamer    *Streamer
	settings    *settings.Service
	defaultTopK int
}

func NewService(quota QuotaLimiter, expander *Expander, retriever *Retriever, streamer *Streamer, set *settings.Service, defaultTopK int) *Service {
	if defaultTopK <= 0 {
		defaultTopK = 3
	}
	return &Service{
		quota:       quota,
		expander:    expander,
		retriever:   retriever,
		streamer:    streamer,
		settings:    set,
		defaultTopK: defaultTopK,
	}
}

// Ask runs the full pipeline for one question and streams the answer into
// sink. Nothing is written to sink until validation, quota, and retrieval
// have all succeeded, so callers can still send a clean rejection.
func (s *Service) Ask(ctx context.Context, req Request, sink Sink) error {
	// Validating: pure check, runs before any network call.
	if r := guardrail.Validate(req.Question); !r.Valid {
		return &StageError{StageValidating, &GuardrailRejection{Stage: r.Stage, Reason: r.Reason}}
	}

	// QuotaChecking: the only stage allowed to consume budget. Storage
	// errors fail closed and surface as internal errors.
	granted, err := s.quota.TryConsume(ctx)
	if err != nil {
		return &StageError{StageQuotaChecking, err}
	}
	if !granted {
		return &StageError{StageQuotaChecking, ErrQuotaExceeded}
	}

	// Expanding never fails; it degrades to the verbatim question.
	expanded := s.expander.Expand(ctx, req.Question, req.History)
	if expanded.Query != req.Question {
		slog.InfoContext(ctx, "query expanded", "keywords", expanded.Keywords)
	}

	rag, err := s.retriever.Retrieve(ctx, expanded.Query, s.topK(ctx))
	if err != nil {
		if errors.Is(err, ErrNoContext) {
			if ferr := s.streamer.StreamFallback(ctx, sink); ferr != nil {
				return &StageError{StageStreaming, ferr}
			}
			return nil
		}
		return &StageError{StageRetrieving, err}
	}

	if err := s.streamer.Stream(ctx, sink, req.Question, req.History, rag); err != nil {
		return &StageError{StageStreaming, err}
	}
	return nil
}

func (s *Service) topK(ctx context.Context) int {
	if s.settings == nil {
		return s.defaultTopK
	}
	cfg, err := s.settings.Get(ctx)
	if err != nil || cfg.SearchTopK <= 0 {
		return s.defaultTopK
	}
	return cfg.SearchTopK
}
