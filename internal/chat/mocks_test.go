package chat_test

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/jungyuya/new-blog-sub000/internal/chat"
)

type MockTextGenerator struct {
	mock.Mock
}

func (m *MockTextGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockVectorSearcher struct {
	mock.Mock
}

func (m *MockVectorSearcher) SearchNearVector(ctx context.Context, vector []float32, limit int) ([]chat.Hit, error) {
	args := m.Called(ctx, vector, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]chat.Hit), args.Error(1)
}

// fakeStreamGenerator replays a fixed set of deltas through onDelta. A
// testify mock is awkward for callback-driven APIs, so this is hand-rolled.
type fakeStreamGenerator struct {
	deltas  []string
	err     error
	calls   int
	lastSys string
}

func (f *fakeStreamGenerator) GenerateStream(ctx context.Context, system string, history []chat.Turn, prompt string, onDelta func(string) error) error {
	f.calls++
	f.lastSys = system
	if f.err != nil {
		return f.err
	}
	for _, d := range f.deltas {
		if err := onDelta(d); err != nil {
			return err
		}
	}
	return nil
}

// recordSink captures each fragment in order.
type recordSink struct {
	writes []string
	failAt int // 1-based write index to fail on, 0 disables
}

func (s *recordSink) WriteText(text string) error {
	s.writes = append(s.writes, text)
	if s.failAt > 0 && len(s.writes) == s.failAt {
		return context.Canceled
	}
	return nil
}

type fakeQuota struct {
	granted bool
	err     error
	calls   int
}

func (f *fakeQuota) TryConsume(ctx context.Context) (bool, error) {
	f.calls++
	return f.granted, f.err
}
