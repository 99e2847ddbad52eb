package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jungyuya/new-blog-sub000/internal/blog"
	"github.com/jungyuya/new-blog-sub000/internal/text"
)

type Indexer struct {
	posts       blog.Reader
	patcher     blog.SummaryPatcher
	embedder    Embedder
	store       ChunkStore
	maxChars    int
	pageSize    int
	concurrency int
}

type IndexerOpts struct {
	ChunkMaxChars int
	PageSize      int
	Concurrency   int
}

func NewIndexer(posts blog.Reader, patcher blog.SummaryPatcher, embedder Embedder, store ChunkStore, opts IndexerOpts) *Indexer {
	if opts.ChunkMaxChars <= 0 {
		opts.ChunkMaxChars = text.DefaultMaxChars
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Indexer{
		posts:       posts,
		patcher:     patcher,
		embedder:    embedder,
		store:       store,
		maxChars:    opts.ChunkMaxChars,
		pageSize:    opts.PageSize,
		concurrency: opts.Concurrency,
	}
}

// Rebuild drops and recreates the vector index, then re-indexes every
// indexable post. Paging uses a keyset cursor over post IDs, so a crashed run
// re-executed from scratch neither skips nor duplicates documents (upserts
// are id-keyed). Cross-post work is bounded by the concurrency limit to
// respect the embedding service's rate limits.
func (ix *Indexer) Rebuild(ctx context.Context) error {
	if err := ix.store.ResetIndex(ctx); err != nil {
		return fmt.Errorf("reset index: %w", err)
	}

	sem := make(chan struct{}, ix.concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	cursor := ""
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := ix.posts.ListIndexable(ctx, cursor, ix.pageSize)
		if err != nil {
			return fmt.Errorf("list posts after %q: %w", cursor, err)
		}
		if len(page) == 0 {
			break
		}

		for i := range page {
			post := page[i]
			wg.Add(1)
			sem <- struct{}{}
			go func() {
				defer wg.Done()
				defer func() { <-sem }()
				if err := ix.IndexPost(ctx, &post); err != nil {
					slog.ErrorContext(ctx, "failed to index post", "post_id", post.ID, "error", err)
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
				}
			}()
		}

		total += len(page)
		cursor = page[len(page)-1].ID
	}
	wg.Wait()

	if firstErr != nil {
		return fmt.Errorf("rebuild finished with failures (%d posts paged): %w", total, firstErr)
	}
	slog.InfoContext(ctx, "index rebuild completed", "posts", total)
	return nil
}

// IndexPost recomputes and replaces all chunks of one post. Posts that are no
// longer indexable (draft, private, soft-deleted) have their chunks removed
// instead, so unpublish transitions converge to the same state as removal.
func (ix *Indexer) IndexPost(ctx context.Context, post *blog.Post) error {
	if !post.Indexable() {
		return ix.RemovePost(ctx, post.ID)
	}

	parts := text.SplitArticle(post.Content, ix.maxChars)

	chunks := make([]Chunk, 0, len(parts))
	for i, part := range parts {
		vec, err := ix.embedder.Embed(ctx, part)
		if err != nil {
			// One failed embedding must not abort the document.
			slog.ErrorContext(ctx, "embedding failed, skipping chunk",
				"post_id", post.ID, "chunk_index", i, "error", err)
			continue
		}
		chunks = append(chunks, Chunk{
			ID:           ChunkID(post.ID, i),
			ParentPostID: post.ID,
			Ordinal:      i,
			Title:        post.Title,
			Content:      part,
			Tags:         post.Tags,
			Status:       post.Status,
			Visibility:   post.Visibility,
			CreatedAt:    post.CreatedAt,
			Vector:       vec,
		})
	}

	// Delete-then-upsert keeps the store consistent when the post shrank and
	// old ordinals no longer exist.
	if err := ix.store.DeleteByParent(ctx, post.ID); err != nil {
		return fmt.Errorf("delete stale chunks of %s: %w", post.ID, err)
	}
	if len(chunks) > 0 {
		if err := ix.store.UpsertChunks(ctx, chunks); err != nil {
			return fmt.Errorf("upsert chunks of %s: %w", post.ID, err)
		}
	}

	ix.markIndexed(ctx, post.ID, len(chunks))

	slog.InfoContext(ctx, "post indexed", "post_id", post.ID, "chunks", len(chunks), "skipped", len(parts)-len(chunks))
	return nil
}

// RemovePost removes every chunk belonging to the post.
func (ix *Indexer) RemovePost(ctx context.Context, postID string) error {
	if err := ix.store.DeleteByParent(ctx, postID); err != nil {
		return fmt.Errorf("remove chunks of %s: %w", postID, err)
	}
	slog.InfoContext(ctx, "post chunks removed", "post_id", postID)
	return nil
}

// markIndexed patches the cached summary fields on the post record.
// Best-effort: failures are logged and never fail the indexing run.
func (ix *Indexer) markIndexed(ctx context.Context, postID string, chunkCount int) {
	if ix.patcher == nil {
		return
	}
	if err := ix.patcher.MarkIndexed(ctx, postID, chunkCount); err != nil {
		slog.WarnContext(ctx, "failed to patch index summary", "post_id", postID, "error", err)
	}
}
