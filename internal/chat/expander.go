package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// Turn is one prior message of the conversation. History is caller-supplied
// and never persisted here.
type Turn struct {
	Role    string `json:"role"` // "user" | "assistant"
	Content string `json:"content"`
}

const (
	// HistoryWindow bounds how many prior turns a request may carry.
	HistoryWindow = 6
	// expandHistoryWindow bounds how many turns the query rewriter sees.
	expandHistoryWindow = 4
)

// TextGenerator makes a single non-streaming generation call that is
// expected to return JSON.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// ExpandedQuery is the retrieval-optimized rewrite of a user question.
type ExpandedQuery struct {
	Query    string   `json:"query"`
	Keywords []string `json:"keywords"`
}

type Expander struct {
	generator TextGenerator
}

func NewExpander(g TextGenerator) *Expander {
	return &Expander{generator: g}
}

const expandPromptTemplate = `You rewrite blog-search questions into retrieval queries.

Rules:
- Resolve pronouns and vague references ("that", "it", "저거") using the recent conversation.
- Drop filler words; keep the question's intent.
- Extract 3-5 salient keywords. Keep Korean technical terms in Korean where the question uses them.
- Respond with JSON only: {"query": "...", "keywords": ["...", "..."]}

Recent conversation:
%s

Question: %s`

// Expand rewrites the question using up to the last four turns of history.
// Expansion is an optimization, never a gate: on any failure the original
// question is returned verbatim with no keywords.
func (e *Expander) Expand(ctx context.Context, question string, history []Turn) ExpandedQuery {
	fallback := ExpandedQuery{Query: question}

	prompt := fmt.Sprintf(expandPromptTemplate, formatHistory(history, expandHistoryWindow), question)

	raw, err := e.generator.GenerateText(ctx, prompt)
	if err != nil {
		slog.WarnContext(ctx, "query expansion failed, using original question", "error", err)
		return fallback
	}

	var out ExpandedQuery
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &out); err != nil {
		slog.WarnContext(ctx, "query expansion returned malformed JSON, using original question", "error", err)
		return fallback
	}
	if strings.TrimSpace(out.Query) == "" {
		return fallback
	}
	return out
}

func formatHistory(history []Turn, window int) string {
	if len(history) > window {
		history = history[len(history)-window:]
	}
	if len(history) == 0 {
		return "(none)"
	}

	var b strings.Builder
	for _, t := range history {
		b.WriteString(t.Role)
		b.WriteString(": ")
		b.WriteString(t.Content)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// stripCodeFence unwraps ```json fences that models wrap around JSON output
// even when asked not to.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
