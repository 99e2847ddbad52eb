package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/jungyuya/new-blog-sub000/internal/chat"
)

// ModelFunc resolves which models to use for a call. It runs on every
// request, so admin model changes apply without restarting the process.
type ModelFunc func(ctx context.Context) (embedding, generation string)

// StaticModels pins both models to fixed names.
func StaticModels(embedding, generation string) ModelFunc {
	return func(context.Context) (string, string) { return embedding, generation }
}

// Client wraps one genai connection for both embedding and generation.
type Client struct {
	client *genai.Client
	models ModelFunc
}

func NewClient(ctx context.Context, apiKey string, models ModelFunc, opts ...option.ClientOption) (*Client, error) {
	if models == nil {
		return nil, errors.New("gemini: model resolver is required")
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{client: client, models: models}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddingModel, _ := c.models(ctx)
	slog.DebugContext(ctx, "embedding content", "model", embeddingModel, "length", len(text))
	em := c.client.EmbeddingModel(embeddingModel)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		slog.ErrorContext(ctx, "embedding failed", "error", err)
		return nil, err
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, errors.New("empty embedding received")
	}
	return res.Embedding.Values, nil
}

// GenerateText makes one non-streaming call constrained to JSON output. Used
// by the query rewriter.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	_, generationModel := c.models(ctx)
	model := c.client.GenerativeModel(generationModel)
	model.GenerationConfig.ResponseMIMEType = "application/json"

	res, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	return joinText(res), nil
}

// GenerateStream runs a chat turn and forwards each text delta to onDelta in
// arrival order. It stops at the first onDelta error so a gone client does
// not keep the generation running.
func (c *Client) GenerateStream(ctx context.Context, system string, history []chat.Turn, prompt string, onDelta func(string) error) error {
	_, generationModel := c.models(ctx)
	model := c.client.GenerativeModel(generationModel)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	cs := model.StartChat()
	cs.History = toGenaiHistory(history)

	iter := cs.SendMessageStream(ctx, genai.Text(prompt))
	for {
		res, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("generation stream: %w", err)
		}
		if delta := joinText(res); delta != "" {
			if err := onDelta(delta); err != nil {
				return err
			}
		}
	}
}

func toGenaiHistory(history []chat.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, t := range history {
		role := "user"
		if t.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(t.Content)},
		})
	}
	return contents
}

func joinText(res *genai.GenerateContentResponse) string {
	if res == nil {
		return ""
	}
	var out string
	for _, cand := range res.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				out += string(text)
			}
		}
	}
	return out
}
