package index

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// chunkNamespace seeds deterministic chunk IDs. A chunk's ID depends only on
// its parent post and ordinal, so re-indexing the same post overwrites its
// chunks in place and retries are safe.
var chunkNamespace = uuid.MustParse("8c1f76a2-31cc-4f0e-9a64-2b0d6f3e5a17")

// Chunk is the unit stored in the vector index.
type Chunk struct {
	ID           string
	ParentPostID string
	Ordinal      int
	Title        string
	Content      string
	Tags         []string
	Status       string
	Visibility   string
	CreatedAt    time.Time
	Vector       []float32
}

// ChunkID derives the stable vector-store object ID for a post chunk.
func ChunkID(parentPostID string, ordinal int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(fmt.Sprintf("%s:%d", parentPostID, ordinal))).String()
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ChunkStore is the write contract against the vector index.
type ChunkStore interface {
	UpsertChunks(ctx context.Context, chunks []Chunk) error
	DeleteByParent(ctx context.Context, postID string) error
	ResetIndex(ctx context.Context) error
}

// BulkUpsertError reports a partially failed batch write. The failed IDs are
// carried so the caller can alert or retry the specific chunks.
type BulkUpsertError struct {
	FailedIDs []string
	Reasons   []string
}

func (e *BulkUpsertError) Error() string {
	return fmt.Sprintf("bulk upsert failed for %d chunk(s) [%s]: %s",
		len(e.FailedIDs), strings.Join(e.FailedIDs, ", "), strings.Join(e.Reasons, "; "))
}
