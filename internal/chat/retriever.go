package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoContext reports that retrieval found nothing relevant. Callers render
// a fixed fallback answer instead of generating one from thin air.
var ErrNoContext = errors.New("no relevant context found")

// Hit is one retrieved chunk from the vector index.
type Hit struct {
	Content      string
	Title        string
	ParentPostID string
	Distance     float32
}

// Source identifies one parent article behind the retrieved chunks.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Context is the grounded input handed to the answer generator.
type Context struct {
	Text    string
	Sources []Source
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorSearcher runs nearest-neighbor search over eligible chunks.
type VectorSearcher interface {
	SearchNearVector(ctx context.Context, vector []float32, limit int) ([]Hit, error)
}

type Retriever struct {
	embedder Embedder
	store    VectorSearcher
	baseURL  string
}

func NewRetriever(embedder Embedder, store VectorSearcher, blogBaseURL string) *Retriever {
	return &Retriever{
		embedder: embedder,
		store:    store,
		baseURL:  strings.TrimRight(blogBaseURL, "/"),
	}
}

// Retrieve embeds the query, searches the top-k chunks, and assembles the
// generation context. Sources are de-duplicated by parent post in first-seen
// order, so an article matched by several chunks appears once.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) (*Context, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := r.store.SearchNearVector(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if len(hits) == 0 {
		return nil, ErrNoContext
	}

	var texts []string
	var sources []Source
	seen := make(map[string]bool)
	for _, h := range hits {
		texts = append(texts, h.Content)
		if h.ParentPostID == "" || seen[h.ParentPostID] {
			continue
		}
		seen[h.ParentPostID] = true
		sources = append(sources, Source{
			Title: h.Title,
			URL:   r.baseURL + "/posts/" + h.ParentPostID,
		})
	}

	return &Context{
		Text:    strings.Join(texts, "\n\n---\n\n"),
		Sources: sources,
	}, nil
}
