package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/jungyuya/new-blog-sub000/internal/adapter/gemini"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*gemini.Client, *httptest.Server) {
	ts := httptest.NewServer(handler)
	client, err := gemini.NewClient(context.Background(), "test-key",
		gemini.StaticModels("gemini-embedding-001", "gemini-2.0-flash"),
		option.WithEndpoint(ts.URL))
	require.NoError(t, err)
	return client, ts
}

func TestClient_Embed(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		client, ts := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"embedding": map[string]interface{}{
					"values": []float32{0.1, 0.2, 0.3},
				},
			})
		})
		defer ts.Close()
		defer client.Close()

		vec, err := client.Embed(context.Background(), "hello world")
		assert.NoError(t, err)
		if assert.Len(t, vec, 3) {
			assert.Equal(t, float32(0.1), vec[0])
		}
	})

	t.Run("Empty Embedding Is An Error", func(t *testing.T) {
		client, ts := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"embedding": map[string]interface{}{"values": []float32{}},
			})
		})
		defer ts.Close()
		defer client.Close()

		_, err := client.Embed(context.Background(), "hello")
		assert.Error(t, err)
	})
}

func TestClient_ModelsResolvedPerCall(t *testing.T) {
	var paths []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"embedding": map[string]interface{}{"values": []float32{0.1}},
		})
	}))
	defer ts.Close()

	embeddingModel := "gemini-embedding-001"
	client, err := gemini.NewClient(context.Background(), "test-key",
		func(context.Context) (string, string) { return embeddingModel, "gemini-2.0-flash" },
		option.WithEndpoint(ts.URL))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Embed(context.Background(), "first")
	require.NoError(t, err)

	// An admin switching the model must take effect on the next call.
	embeddingModel = "text-embedding-004"
	_, err = client.Embed(context.Background(), "second")
	require.NoError(t, err)

	require.Len(t, paths, 2)
	assert.Contains(t, paths[0], "gemini-embedding-001")
	assert.Contains(t, paths[1], "text-embedding-004")
}

func TestClient_GenerateText(t *testing.T) {
	client, ts := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{
					"content": map[string]interface{}{
						"role": "model",
						"parts": []map[string]interface{}{
							{"text": `{"query": "rewritten"}`},
						},
					},
				},
			},
		})
	})
	defer ts.Close()
	defer client.Close()

	out, err := client.GenerateText(context.Background(), "rewrite this")
	require.NoError(t, err)
	assert.Equal(t, `{"query": "rewritten"}`, out)
}
