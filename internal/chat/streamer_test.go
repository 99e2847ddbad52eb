package chat_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/jungyuya/new-blog-sub000/internal/chat"
)

func TestStreamer_Stream(t *testing.T) {
	ctx := context.Background()
	rag := &chat.Context{
		Text: "excerpt body",
		Sources: []chat.Source{
			{Title: "Scheduler Deep Dive", URL: "https://blog.example.com/posts/p1"},
		},
	}

	t.Run("Sources Frame Precedes All Tokens", func(t *testing.T) {
		gen := &fakeStreamGenerator{deltas: []string{"답변 ", "첫 ", "부분"}}
		sink := &recordSink{}

		err := chat.NewStreamer(gen).Stream(ctx, sink, "question", nil, rag)
		require.NoError(t, err)

		require.GreaterOrEqual(t, len(sink.writes), 2)
		frame := sink.writes[0]
		assert.True(t, strings.HasPrefix(frame, chat.SourcesMarker))
		assert.True(t, strings.HasSuffix(frame, chat.SourcesMarker))
		assert.Contains(t, frame, `"url":"https://blog.example.com/posts/p1"`)

		assert.Equal(t, []string{"답변 ", "첫 ", "부분"}, sink.writes[1:])
	})

	t.Run("Empty Stream Is An Error", func(t *testing.T) {
		gen := &fakeStreamGenerator{}
		sink := &recordSink{}

		err := chat.NewStreamer(gen).Stream(ctx, sink, "question", nil, rag)
		require.Error(t, err)
		// The frame was already written; the handler logs and aborts.
		require.Len(t, sink.writes, 1)
	})

	t.Run("Sink Failure Stops Generation", func(t *testing.T) {
		gen := &fakeStreamGenerator{deltas: []string{"a", "b", "c"}}
		sink := &recordSink{failAt: 2} // frame, then first token fails

		err := chat.NewStreamer(gen).Stream(ctx, sink, "question", nil, rag)
		require.Error(t, err)
		assert.Len(t, sink.writes, 2)
	})

	t.Run("Generator Failure Propagates", func(t *testing.T) {
		gen := &fakeStreamGenerator{err: errors.New("gemini unavailable")}
		sink := &recordSink{}

		err := chat.NewStreamer(gen).Stream(ctx, sink, "question", nil, rag)
		require.Error(t, err)
	})
}

func TestStreamer_StreamFallback(t *testing.T) {
	gen := &fakeStreamGenerator{deltas: []string{"should not appear"}}
	sink := &recordSink{}

	err := chat.NewStreamer(gen).StreamFallback(context.Background(), sink)
	require.NoError(t, err)

	// Empty frame first, then the canned answer. No generation call.
	require.Len(t, sink.writes, 2)
	assert.Equal(t, chat.SourcesMarker+"[]"+chat.SourcesMarker, sink.writes[0])
	assert.Equal(t, chat.FallbackAnswer, sink.writes[1])
	assert.Zero(t, gen.calls)
}
