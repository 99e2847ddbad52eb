// Package blog holds the narrow contracts this subsystem consumes from the
// CRUD post storage layer: fetching posts for indexing and patching the
// cached index-summary fields. The table layout itself is owned elsewhere.
package blog

import (
	"context"
	"time"
)

const (
	StatusPublished = "published"
	StatusDraft     = "draft"

	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

type Post struct {
	ID         string
	Title      string
	Content    string // rendered plain/markdown text
	Tags       []string
	Status     string
	Visibility string
	CreatedAt  time.Time
	DeletedAt  *time.Time
}

// Indexable reports whether the post's chunks belong in the vector store.
func (p *Post) Indexable() bool {
	return p.DeletedAt == nil &&
		p.Status == StatusPublished &&
		p.Visibility == VisibilityPublic
}

// Reader is the read contract against the post store.
type Reader interface {
	GetByID(ctx context.Context, id string) (*Post, error)
	// ListIndexable returns one page of indexable posts ordered by id,
	// strictly after afterID. An empty afterID starts from the beginning.
	// The cursor is stable, so a crashed rebuild can resume mid-run.
	ListIndexable(ctx context.Context, afterID string, limit int) ([]Post, error)
}

// SummaryPatcher updates the cached indexing summary on a post. Calls are
// best-effort; a failure never fails the indexing run.
type SummaryPatcher interface {
	MarkIndexed(ctx context.Context, id string, chunkCount int) error
}
