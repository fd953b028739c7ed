package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Describer sends a prompt and an image reference to a vision model and
// returns the model's free-text reply.
type Describer interface {
	Describe(ctx context.Context, prompt, imageURL string) (string, error)
}

// AgentConfig configures the hosted vision model client.
type AgentConfig struct {
	APIKey    string
	BaseURL   string // optional, for OpenAI-compatible servers
	Model     string
	MaxTokens int64
}

// OpenAIDescriber implements Describer on the chat completions API. The
// image is passed by URL; the model fetches it itself.
type OpenAIDescriber struct {
	client    openai.Client
	model     openai.ChatModel
	maxTokens int64
	logger    *slog.Logger
}

// NewAgent initializes the vision model client
func NewAgent(cfg AgentConfig, logger *slog.Logger) (*OpenAIDescriber, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("missing OpenAI API key")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// Failed calls are recorded, not retried.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := openai.ChatModel(cfg.Model)
	if model == "" {
		model = openai.ChatModelGPT4o
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 400
	}

	return &OpenAIDescriber{
		client:    openai.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
		logger:    logger,
	}, nil
}

// Describe issues one chat completion request with a text part and an
// image_url part.
func (d *OpenAIDescriber) Describe(ctx context.Context, prompt, imageURL string) (string, error) {
	completion, err := d.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: d.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: imageURL,
				}),
			}),
		},
		MaxTokens: openai.Int(d.maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("vision request: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no response messages received from model")
	}

	content := completion.Choices[0].Message.Content
	d.logger.Debug("raw response content", "content", content, "finish_reason", completion.Choices[0].FinishReason)

	return content, nil
}
