package settings

import (
	"context"
	"database/sql"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Get(ctx context.Context) (*Settings, error) {
	s := &Settings{}
	query := `SELECT id, search_top_k, daily_quota, embedding_model, generation_model FROM chat_settings WHERE id = 1`
	err := r.db.QueryRowContext(ctx, query).Scan(&s.ID, &s.SearchTopK, &s.DailyQuota, &s.EmbeddingModel, &s.GenerationModel)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *PostgresRepo) Update(ctx context.Context, s *Settings) error {
	query := `
		UPDATE chat_settings
		SET search_top_k = $1, daily_quota = $2, embedding_model = $3, generation_model = $4, updated_at = NOW()
		WHERE id = 1
	`
	_, err := r.db.ExecContext(ctx, query, s.SearchTopK, s.DailyQuota, s.EmbeddingModel, s.GenerationModel)
	return err
}
