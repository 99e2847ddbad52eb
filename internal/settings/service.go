package settings

import (
	"context"
)

// Settings is the runtime-tunable chat configuration, stored as a single row.
type Settings struct {
	ID              int    `json:"-"`
	SearchTopK      int    `json:"search_top_k"`
	DailyQuota      int    `json:"daily_quota"`
	EmbeddingModel  string `json:"embedding_model"`
	GenerationModel string `json:"generation_model"`
}

type Repository interface {
	Get(ctx context.Context) (*Settings, error)
	Update(ctx context.Context, s *Settings) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context) (*Settings, error) {
	return s.repo.Get(ctx)
}

func (s *Service) Update(ctx context.Context, set *Settings) error {
	return s.repo.Update(ctx, set)
}
