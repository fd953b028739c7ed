package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedCachesByContent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v1/embeddings", r.URL.Path)

		var body struct {
			Input      string `json:"input"`
			Model      string `json:"model"`
			Dimensions int    `json:"dimensions"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "text-embedding-3-small", body.Model)
		assert.Equal(t, 3, body.Dimensions)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "object": "list",
  "model": "text-embedding-3-small",
  "data": [{"object": "embedding", "index": 0, "embedding": [0.25, -0.5, 1]}],
  "usage": {"prompt_tokens": 3, "total_tokens": 3}
}`))
	}))
	defer srv.Close()

	svc, err := NewService(Config{APIKey: "k", BaseURL: srv.URL + "/v1/", Dimensions: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, svc.Dimensions())

	ctx := context.Background()
	first, err := svc.Embed(ctx, "a foggy bridge")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, -0.5, 1}, first)

	second, err := svc.Embed(ctx, "a foggy bridge")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEmbedEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"m","data":[],"usage":{"prompt_tokens":0,"total_tokens":0}}`))
	}))
	defer srv.Close()

	svc, err := NewService(Config{APIKey: "k", BaseURL: srv.URL + "/v1/"})
	require.NoError(t, err)

	_, err = svc.Embed(context.Background(), "x")
	assert.Error(t, err)
}

func TestNewServiceRequiresKey(t *testing.T) {
	_, err := NewService(Config{})
	assert.Error(t, err)
}
