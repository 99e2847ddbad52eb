package weaviate_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	adapter "github.com/jungyuya/new-blog-sub000/internal/adapter/weaviate"
	"github.com/jungyuya/new-blog-sub000/internal/index"
)

func mockWeaviate(t *testing.T, handler http.HandlerFunc) (*weaviate.Client, *httptest.Server) {
	ts := httptest.NewServer(handler)
	cfg := weaviate.Config{Host: ts.Listener.Addr().String(), Scheme: "http"}
	client, err := weaviate.NewClient(cfg)
	assert.NoError(t, err)
	return client, ts
}

func sampleChunk(ordinal int) index.Chunk {
	return index.Chunk{
		ID:           index.ChunkID("post-1", ordinal),
		ParentPostID: "post-1",
		Ordinal:      ordinal,
		Title:        "Scheduler Deep Dive",
		Content:      "chunk body",
		Tags:         []string{"go"},
		Status:       "published",
		Visibility:   "public",
		CreatedAt:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Vector:       []float32{0.1, 0.2},
	}
}

func TestStore_UpsertChunks(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/v1/meta" {
				w.Write([]byte(`{"version": "1.25.0"}`))
				return
			}
			assert.Equal(t, "/v1/batch/objects", r.URL.Path)
			assert.Equal(t, "POST", r.Method)

			var body map[string]interface{}
			json.NewDecoder(r.Body).Decode(&body)
			objects := body["objects"].([]interface{})
			require.Len(t, objects, 1)
			obj := objects[0].(map[string]interface{})
			assert.Equal(t, "ArticleChunk", obj["class"])
			assert.Equal(t, index.ChunkID("post-1", 0), obj["id"])
			props := obj["properties"].(map[string]interface{})
			assert.Equal(t, "chunk body", props["content"])
			assert.Equal(t, index.ChunkID("post-1", 0), props["postId"])
			assert.Equal(t, "post-1", props["parentPostId"])

			json.NewEncoder(w).Encode([]map[string]interface{}{
				{"id": obj["id"], "result": map[string]interface{}{"status": "SUCCESS"}},
			})
		})
		defer ts.Close()

		err := adapter.NewStore(client).UpsertChunks(context.Background(), []index.Chunk{sampleChunk(0)})
		assert.NoError(t, err)
	})

	t.Run("Partial Failure Reports Failed IDs", func(t *testing.T) {
		client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/v1/meta" {
				w.Write([]byte(`{"version": "1.25.0"}`))
				return
			}
			json.NewEncoder(w).Encode([]map[string]interface{}{
				{"id": index.ChunkID("post-1", 0), "result": map[string]interface{}{"status": "SUCCESS"}},
				{"id": index.ChunkID("post-1", 1), "result": map[string]interface{}{
					"errors": map[string]interface{}{
						"error": []map[string]string{{"message": "vector length mismatch"}},
					},
				}},
			})
		})
		defer ts.Close()

		err := adapter.NewStore(client).UpsertChunks(context.Background(),
			[]index.Chunk{sampleChunk(0), sampleChunk(1)})

		var bulkErr *index.BulkUpsertError
		require.ErrorAs(t, err, &bulkErr)
		assert.Equal(t, []string{index.ChunkID("post-1", 1)}, bulkErr.FailedIDs)
		assert.Contains(t, bulkErr.Reasons, "vector length mismatch")
	})

	t.Run("Empty Batch Is A No-Op", func(t *testing.T) {
		client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/v1/meta" {
				w.Write([]byte(`{"version": "1.25.0"}`))
				return
			}
			t.Error("no request expected for an empty batch")
		})
		defer ts.Close()

		err := adapter.NewStore(client).UpsertChunks(context.Background(), nil)
		assert.NoError(t, err)
	})
}

func TestStore_DeleteByParent(t *testing.T) {
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/meta" {
			w.Write([]byte(`{"version": "1.25.0"}`))
			return
		}
		assert.Equal(t, "/v1/batch/objects", r.URL.Path)
		assert.Equal(t, "DELETE", r.Method)

		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		match := body["match"].(map[string]interface{})
		assert.Equal(t, "ArticleChunk", match["class"])

		json.NewEncoder(w).Encode(map[string]interface{}{})
	})
	defer ts.Close()

	err := adapter.NewStore(client).DeleteByParent(context.Background(), "post-1")
	assert.NoError(t, err)
}

func TestStore_SearchNearVector(t *testing.T) {
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/meta" {
			w.Write([]byte(`{"version": "1.25.0"}`))
			return
		}
		assert.Equal(t, "/v1/graphql", r.URL.Path)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"Get": map[string]interface{}{
					"ArticleChunk": []interface{}{
						map[string]interface{}{
							"content":      "first chunk",
							"title":        "Scheduler Deep Dive",
							"parentPostId": "post-1",
							"_additional":  map[string]interface{}{"distance": 0.12},
						},
						map[string]interface{}{
							"content":      "second chunk",
							"title":        "GC Notes",
							"parentPostId": "post-2",
							"_additional":  map[string]interface{}{"distance": 0.34},
						},
					},
				},
			},
		})
	})
	defer ts.Close()

	hits, err := adapter.NewStore(client).SearchNearVector(context.Background(), []float32{0.1, 0.2}, 3)
	require.NoError(t, err)

	require.Len(t, hits, 2)
	assert.Equal(t, "first chunk", hits[0].Content)
	assert.Equal(t, "post-1", hits[0].ParentPostID)
	assert.InDelta(t, 0.12, hits[0].Distance, 0.001)
	assert.Equal(t, "GC Notes", hits[1].Title)
}

func TestStore_CountChunks(t *testing.T) {
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/meta" {
			w.Write([]byte(`{"version": "1.25.0"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"Aggregate": map[string]interface{}{
					"ArticleChunk": []interface{}{
						map[string]interface{}{
							"meta": map[string]interface{}{"count": float64(42)},
						},
					},
				},
			},
		})
	})
	defer ts.Close()

	count, err := adapter.NewStore(client).CountChunks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, count)
}
