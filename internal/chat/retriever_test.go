package chat_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/jungyuya/new-blog-sub000/internal/chat"
)

func TestRetriever_Retrieve(t *testing.T) {
	ctx := context.Background()
	vec := []float32{0.1, 0.2, 0.3}

	t.Run("Dedupes Sources By Parent Post", func(t *testing.T) {
		embedder := new(MockEmbedder)
		searcher := new(MockVectorSearcher)
		embedder.On("Embed", mock.Anything, "go scheduler").Return(vec, nil)
		searcher.On("SearchNearVector", mock.Anything, vec, 3).Return([]chat.Hit{
			{Content: "chunk one", Title: "Scheduler Deep Dive", ParentPostID: "p1"},
			{Content: "chunk two", Title: "Scheduler Deep Dive", ParentPostID: "p1"},
			{Content: "chunk three", Title: "GC Notes", ParentPostID: "p2"},
		}, nil)

		r := chat.NewRetriever(embedder, searcher, "https://blog.example.com/")

		out, err := r.Retrieve(ctx, "go scheduler", 3)
		require.NoError(t, err)

		// Three chunks from two posts yield exactly two sources, first-seen order.
		require.Len(t, out.Sources, 2)
		assert.Equal(t, "Scheduler Deep Dive", out.Sources[0].Title)
		assert.Equal(t, "https://blog.example.com/posts/p1", out.Sources[0].URL)
		assert.Equal(t, "https://blog.example.com/posts/p2", out.Sources[1].URL)

		// All three chunk bodies survive into the generation context.
		assert.Contains(t, out.Text, "chunk one")
		assert.Contains(t, out.Text, "chunk two")
		assert.Contains(t, out.Text, "chunk three")
		assert.Contains(t, out.Text, "\n\n---\n\n")
	})

	t.Run("Zero Hits Is ErrNoContext", func(t *testing.T) {
		embedder := new(MockEmbedder)
		searcher := new(MockVectorSearcher)
		embedder.On("Embed", mock.Anything, mock.Anything).Return(vec, nil)
		searcher.On("SearchNearVector", mock.Anything, vec, 3).Return([]chat.Hit{}, nil)

		r := chat.NewRetriever(embedder, searcher, "https://blog.example.com")

		_, err := r.Retrieve(ctx, "unrelated question", 3)
		assert.ErrorIs(t, err, chat.ErrNoContext)
	})

	t.Run("Embed Failure Propagates", func(t *testing.T) {
		embedder := new(MockEmbedder)
		searcher := new(MockVectorSearcher)
		embedder.On("Embed", mock.Anything, mock.Anything).Return(nil, errors.New("embed api down"))

		r := chat.NewRetriever(embedder, searcher, "https://blog.example.com")

		_, err := r.Retrieve(ctx, "anything", 3)
		require.Error(t, err)
		assert.NotErrorIs(t, err, chat.ErrNoContext)
		searcher.AssertNotCalled(t, "SearchNearVector")
	})

	t.Run("Search Failure Propagates", func(t *testing.T) {
		embedder := new(MockEmbedder)
		searcher := new(MockVectorSearcher)
		embedder.On("Embed", mock.Anything, mock.Anything).Return(vec, nil)
		searcher.On("SearchNearVector", mock.Anything, vec, 3).Return(nil, errors.New("weaviate down"))

		r := chat.NewRetriever(embedder, searcher, "https://blog.example.com")

		_, err := r.Retrieve(ctx, "anything", 3)
		require.Error(t, err)
		assert.NotErrorIs(t, err, chat.ErrNoContext)
	})

	t.Run("Hit Without Parent Still Contributes Text", func(t *testing.T) {
		embedder := new(MockEmbedder)
		searcher := new(MockVectorSearcher)
		embedder.On("Embed", mock.Anything, mock.Anything).Return(vec, nil)
		searcher.On("SearchNearVector", mock.Anything, vec, 2).Return([]chat.Hit{
			{Content: "orphan chunk", Title: "Untitled"},
			{Content: "normal chunk", Title: "GC Notes", ParentPostID: "p2"},
		}, nil)

		r := chat.NewRetriever(embedder, searcher, "https://blog.example.com")

		out, err := r.Retrieve(ctx, "anything", 2)
		require.NoError(t, err)
		assert.Contains(t, out.Text, "orphan chunk")
		require.Len(t, out.Sources, 1)
		assert.Equal(t, "GC Notes", out.Sources[0].Title)
	})
}
