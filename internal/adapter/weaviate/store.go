package weaviate

import (
	"context"
	"fmt"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"github.com/jungyuya/new-blog-sub000/internal/chat"
	"github.com/jungyuya/new-blog-sub000/internal/index"
	"github.com/jungyuya/new-blog-sub000/internal/vector"
)

type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

// EnsureSchema brings the chunk class up to date without touching data.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return vector.EnsureSchema(ctx, vector.NewWeaviateClientAdapter(s.client))
}

// ResetIndex drops and recreates the chunk class. Used by full rebuilds.
func (s *Store) ResetIndex(ctx context.Context) error {
	return vector.ResetSchema(ctx, vector.NewWeaviateClientAdapter(s.client))
}

// UpsertChunks writes one batch of chunks. Object IDs are deterministic per
// post and ordinal, so a rewrite of the same post replaces its chunks in
// place. Per-object failures are collected into an *index.BulkUpsertError.
func (s *Store) UpsertChunks(ctx context.Context, chunks []index.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	objs := make([]*models.Object, 0, len(chunks))
	for _, c := range chunks {
		objs = append(objs, &models.Object{
			ID:    strfmt.UUID(c.ID),
			Class: vector.ClassName,
			Properties: map[string]interface{}{
				"content":      c.Content,
				"title":        c.Title,
				"tags":         c.Tags,
				"status":       c.Status,
				"visibility":   c.Visibility,
				"postId":       c.ID,
				"parentPostId": c.ParentPostID,
				"chunkIndex":   c.Ordinal,
				"createdAt":    c.CreatedAt.Format(time.RFC3339),
			},
			Vector: models.C11yVector(c.Vector),
		})
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objs...).Do(ctx)
	if err != nil {
		return fmt.Errorf("batch upsert: %w", err)
	}

	bulkErr := &index.BulkUpsertError{}
	for _, obj := range resp {
		if obj.Result == nil || obj.Result.Errors == nil || len(obj.Result.Errors.Error) == 0 {
			continue
		}
		bulkErr.FailedIDs = append(bulkErr.FailedIDs, obj.ID.String())
		for _, e := range obj.Result.Errors.Error {
			if e != nil {
				bulkErr.Reasons = append(bulkErr.Reasons, e.Message)
			}
		}
	}
	if len(bulkErr.FailedIDs) > 0 {
		return bulkErr
	}
	return nil
}

// DeleteByParent removes every chunk belonging to one post.
func (s *Store) DeleteByParent(ctx context.Context, postID string) error {
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(vector.ClassName).
		WithOutput("minimal").
		WithWhere(filters.Where().
			WithPath([]string{"parentPostId"}).
			WithOperator(filters.Equal).
			WithValueString(postID)).
		Do(ctx)
	return err
}

// SearchNearVector returns the chunks nearest to the query vector. Only
// published public chunks are eligible; the filter backstops indexing bugs
// rather than relying on write-time eligibility alone.
func (s *Store) SearchNearVector(ctx context.Context, vec []float32, limit int) ([]chat.Hit, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(vec)

	where := filters.Where().
		WithOperator(filters.And).
		WithOperands([]*filters.WhereBuilder{
			filters.Where().
				WithPath([]string{"status"}).
				WithOperator(filters.Equal).
				WithValueString("published"),
			filters.Where().
				WithPath([]string{"visibility"}).
				WithOperator(filters.Equal).
				WithValueString("public"),
		})

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "title"},
		{Name: "parentPostId"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassName).
		WithNearVector(nearVector).
		WithWhere(where).
		WithLimit(limit).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors)
	}

	var hits []chat.Hit
	data, ok := res.Data["Get"].(map[string]interface{})
	if !ok {
		return hits, nil
	}
	raw, ok := data[vector.ClassName].([]interface{})
	if !ok {
		return hits, nil
	}
	for _, r := range raw {
		props, ok := r.(map[string]interface{})
		if !ok {
			continue
		}
		hit := chat.Hit{}
		if content, ok := props["content"].(string); ok {
			hit.Content = content
		}
		if title, ok := props["title"].(string); ok {
			hit.Title = title
		}
		if parent, ok := props["parentPostId"].(string); ok {
			hit.ParentPostID = parent
		}
		if additional, ok := props["_additional"].(map[string]interface{}); ok {
			if distance, ok := additional["distance"].(float64); ok {
				hit.Distance = float32(distance)
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// CountChunks reports how many chunks the index currently holds.
func (s *Store) CountChunks(ctx context.Context) (int, error) {
	res, err := s.client.GraphQL().Aggregate().
		WithClassName(vector.ClassName).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(res.Errors) > 0 {
		return 0, fmt.Errorf("graphql error: %v", res.Errors)
	}

	agg, ok := res.Data["Aggregate"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	rows, ok := agg[vector.ClassName].([]interface{})
	if !ok || len(rows) == 0 {
		return 0, nil
	}
	row, ok := rows[0].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	meta, ok := row["meta"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	count, _ := meta["count"].(float64)
	return int(count), nil
}
