package blog

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const postColumns = `id, title, content, tags, status, visibility, created_at, deleted_at`

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (*Post, error) {
	p := &Post{}
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Title, &p.Content, pq.Array(&p.Tags),
		&p.Status, &p.Visibility, &p.CreatedAt, &p.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresRepo) ListIndexable(ctx context.Context, afterID string, limit int) ([]Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE status = 'published' AND visibility = 'public' AND deleted_at IS NULL
		AND id > $1 ORDER BY id ASC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(
			&p.ID, &p.Title, &p.Content, pq.Array(&p.Tags),
			&p.Status, &p.Visibility, &p.CreatedAt, &p.DeletedAt,
		); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (r *PostgresRepo) MarkIndexed(ctx context.Context, id string, chunkCount int) error {
	query := `UPDATE posts SET indexed_chunk_count = $1, indexed_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, chunkCount, id)
	return err
}

// CountIndexable returns the number of posts eligible for the vector index.
func (r *PostgresRepo) CountIndexable(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM posts
		WHERE status = 'published' AND visibility = 'public' AND deleted_at IS NULL`
	err := r.db.QueryRowContext(ctx, query).Scan(&count)
	return count, err
}
