package provider

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI talks to the OpenAI API for both embeddings and generation.
// Safe for concurrent use.
type OpenAI struct {
	client          openai.Client
	embeddingModel  string
	generationModel string
	dimension       int64
	sampling        Sampling
}

// OpenAIConfig configures an OpenAI provider client.
type OpenAIConfig struct {
	APIKey          string
	EmbeddingModel  string // e.g. "text-embedding-3-small"
	GenerationModel string // e.g. "gpt-4o-mini"
	Dimension       int
	Sampling        Sampling
}

// NewOpenAI creates an OpenAI provider client.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}

	return &OpenAI{
		client:          openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		embeddingModel:  cfg.EmbeddingModel,
		generationModel: cfg.GenerationModel,
		dimension:       int64(cfg.Dimension),
		sampling:        cfg.Sampling,
	}, nil
}

// Embed returns the embedding vector for text, truncated server-side to the
// deployment dimension.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model:      openai.EmbeddingModel(o.embeddingModel),
		Dimensions: openai.Int(o.dimension),
	})
	if err != nil {
		return nil, fmt.Errorf("openai: create embedding: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("openai: empty embedding response")
	}

	vector := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vector[i] = float32(v)
	}
	return vector, nil
}

// Generate produces an answer for the assembled prompt.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:               openai.ChatModel(o.generationModel),
		Temperature:         openai.Float(float64(o.sampling.Temperature)),
		TopP:                openai.Float(float64(o.sampling.TopP)),
		MaxCompletionTokens: openai.Int(int64(o.sampling.MaxOutputTokens)),
	})
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openai: empty generation response")
	}
	return resp.Choices[0].Message.Content, nil
}
