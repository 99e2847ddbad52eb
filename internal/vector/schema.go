package vector

import (
	"context"

	"github.com/weaviate/weaviate/entities/models"
)

// ClassName is the vector index document type for article chunks.
const ClassName = "ArticleChunk"

// SchemaClient defines the schema operations needed against Weaviate.
type SchemaClient interface {
	ClassExists(ctx context.Context, className string) (bool, error)
	CreateClass(ctx context.Context, class *models.Class) error
	GetClass(ctx context.Context, className string) (*models.Class, error)
	AddProperty(ctx context.Context, className string, property *models.Property) error
	DeleteClass(ctx context.Context, className string) error
}

func chunkProperties() []*models.Property {
	return []*models.Property{
		{
			Name:     "content",
			DataType: []string{"text"},
		},
		{
			Name:     "title",
			DataType: []string{"text"},
		},
		{
			Name:     "tags",
			DataType: []string{"text[]"},
		},
		{
			Name:     "status",
			DataType: []string{"string"}, // published | draft (exact match)
		},
		{
			Name:     "visibility",
			DataType: []string{"string"}, // public | private (exact match)
		},
		{
			Name:     "postId",
			DataType: []string{"string"}, // the chunk's own deterministic id
		},
		{
			Name:     "parentPostId",
			DataType: []string{"string"},
		},
		{
			Name:     "chunkIndex",
			DataType: []string{"int"},
		},
		{
			Name:     "createdAt",
			DataType: []string{"date"},
		},
	}
}

func chunkClass() *models.Class {
	return &models.Class{
		Class:           ClassName,
		Description:     "A retrieval-sized passage of a blog article",
		Vectorizer:      "none", // vectors are supplied by the embedding client
		VectorIndexType: "hnsw",
		VectorIndexConfig: map[string]interface{}{
			"distance": "cosine",
		},
		Properties: chunkProperties(),
	}
}

// EnsureSchema creates the chunk class if missing and backfills any missing
// properties on an existing class.
func EnsureSchema(ctx context.Context, client SchemaClient) error {
	exists, err := client.ClassExists(ctx, ClassName)
	if err != nil {
		return err
	}

	if !exists {
		return client.CreateClass(ctx, chunkClass())
	}

	class, err := client.GetClass(ctx, ClassName)
	if err != nil {
		return err
	}

	existing := make(map[string]bool)
	for _, p := range class.Properties {
		existing[p.Name] = true
	}

	for _, p := range chunkProperties() {
		if !existing[p.Name] {
			if err := client.AddProperty(ctx, ClassName, p); err != nil {
				return err
			}
		}
	}

	return nil
}

// ResetSchema drops the chunk class and recreates it empty. This is the full
// rebuild path; every chunk is gone afterwards until re-indexed.
func ResetSchema(ctx context.Context, client SchemaClient) error {
	exists, err := client.ClassExists(ctx, ClassName)
	if err != nil {
		return err
	}
	if exists {
		if err := client.DeleteClass(ctx, ClassName); err != nil {
			return err
		}
	}
	return client.CreateClass(ctx, chunkClass())
}
