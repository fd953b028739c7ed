package embeddings

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, content string) ([]float32, error)
}

// Config selects the embeddings model.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
}

// Service generates embeddings with the OpenAI API and caches them by text
type Service struct {
	client     openai.Client
	model      openai.EmbeddingModel
	dimensions int
	cache      sync.Map
}

// NewService creates an embeddings client
func NewService(cfg Config) (*Service, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("missing OpenAI API key")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := openai.EmbeddingModel(cfg.Model)
	if model == "" {
		model = openai.EmbeddingModelTextEmbedding3Small
	}

	return &Service{
		client:     openai.NewClient(opts...),
		model:      model,
		dimensions: cfg.Dimensions,
	}, nil
}

// Dimensions reports the configured vector size, 0 meaning the model default
func (s *Service) Dimensions() int {
	return s.dimensions
}

// Embed returns the embedding for content, serving repeats from the cache
func (s *Service) Embed(ctx context.Context, content string) ([]float32, error) {
	if cached, ok := s.cache.Load(content); ok {
		if embedding, valid := cached.([]float32); valid {
			return embedding, nil
		}
	}

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(content),
		},
		Model: s.model,
	}
	if s.dimensions > 0 {
		params.Dimensions = openai.Int(int64(s.dimensions))
	}

	resp, err := s.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("embeddings request: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding returned")
	}

	raw := resp.Data[0].Embedding
	embedding := make([]float32, len(raw))
	for i, v := range raw {
		embedding[i] = float32(v)
	}

	s.cache.Store(content, embedding)
	return embedding, nil
}
