package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// SourcesMarker delimits the out-of-band sources frame at the head of every
// chat response stream. Consumers parse the frame before rendering any
// answer text.
const SourcesMarker = "__SOURCES__"

// FallbackAnswer is streamed when retrieval finds nothing relevant. The
// generation service is not called in that case.
const FallbackAnswer = "관련된 글을 찾지 못했어요. 블로그에 있는 내용으로 다시 질문해 주시겠어요?"

var errEmptyStream = errors.New("generation returned no stream")

const systemPrompt = `You are the assistant of a personal tech blog. Answer questions using ONLY the
article excerpts supplied in the prompt. If the excerpts do not contain the
answer, say so plainly instead of guessing. Answer in the language of the
question. Keep answers concise and reference the articles naturally.`

const answerPromptTemplate = `Article excerpts:
%s

Question: %s`

// Sink receives ordered response fragments. Implementations are expected to
// flush each fragment so tokens reach the client as they are generated.
type Sink interface {
	WriteText(s string) error
}

// StreamGenerator produces the answer as a consumer-driven token stream.
// Implementations must stop promptly when ctx is cancelled or onDelta
// returns an error.
type StreamGenerator interface {
	GenerateStream(ctx context.Context, system string, history []Turn, prompt string, onDelta func(string) error) error
}

type Streamer struct {
	generator StreamGenerator
}

func NewStreamer(g StreamGenerator) *Streamer {
	return &Streamer{generator: g}
}

// Stream writes the sources frame followed by the generated answer tokens.
// The frame always goes first so consumers can attribute the answer before
// displaying it.
func (s *Streamer) Stream(ctx context.Context, sink Sink, question string, history []Turn, rag *Context) error {
	if err := writeSourcesFrame(sink, rag.Sources); err != nil {
		return err
	}

	prompt := fmt.Sprintf(answerPromptTemplate, rag.Text, question)

	deltas := 0
	err := s.generator.GenerateStream(ctx, systemPrompt, boundHistory(history), prompt, func(delta string) error {
		deltas++
		return sink.WriteText(delta)
	})
	if err != nil {
		return fmt.Errorf("generate answer: %w", err)
	}
	if deltas == 0 {
		// No body at all is a dependency failure, not an empty answer.
		return errEmptyStream
	}
	return nil
}

// StreamFallback writes an empty sources frame and the fixed no-context
// answer, without touching the generation service.
func (s *Streamer) StreamFallback(ctx context.Context, sink Sink) error {
	if err := writeSourcesFrame(sink, nil); err != nil {
		return err
	}
	slog.InfoContext(ctx, "no retrieval context, streaming fallback answer")
	return sink.WriteText(FallbackAnswer)
}

func writeSourcesFrame(sink Sink, sources []Source) error {
	if sources == nil {
		sources = []Source{}
	}
	payload, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("marshal sources: %w", err)
	}
	return sink.WriteText(SourcesMarker + string(payload) + SourcesMarker)
}

func boundHistory(history []Turn) []Turn {
	if len(history) > HistoryWindow {
		return history[len(history)-HistoryWindow:]
	}
	return history
}
