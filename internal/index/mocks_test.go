package index

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/jungyuya/new-blog-sub000/internal/blog"
)

type MockReader struct{ mock.Mock }

func (m *MockReader) GetByID(ctx context.Context, id string) (*blog.Post, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*blog.Post), args.Error(1)
}

func (m *MockReader) ListIndexable(ctx context.Context, afterID string, limit int) ([]blog.Post, error) {
	args := m.Called(ctx, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]blog.Post), args.Error(1)
}

type MockPatcher struct{ mock.Mock }

func (m *MockPatcher) MarkIndexed(ctx context.Context, id string, chunkCount int) error {
	args := m.Called(ctx, id, chunkCount)
	return args.Error(0)
}

type MockEmbedder struct{ mock.Mock }

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockChunkStore struct{ mock.Mock }

func (m *MockChunkStore) UpsertChunks(ctx context.Context, chunks []Chunk) error {
	args := m.Called(ctx, chunks)
	return args.Error(0)
}

func (m *MockChunkStore) DeleteByParent(ctx context.Context, postID string) error {
	args := m.Called(ctx, postID)
	return args.Error(0)
}

func (m *MockChunkStore) ResetIndex(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockJobSaver struct{ mock.Mock }

func (m *MockJobSaver) SaveFailed(ctx context.Context, record ChangeRecord, reason string) error {
	args := m.Called(ctx, record, reason)
	return args.Error(0)
}
