package provider

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Gemini talks to the Gemini API for both embeddings and generation.
// Safe for concurrent use.
type Gemini struct {
	client          *genai.Client
	embeddingModel  string
	generationModel string
	taskHint        string
	dimension       int32
	sampling        Sampling
}

// GeminiConfig configures a Gemini provider client.
type GeminiConfig struct {
	APIKey          string
	EmbeddingModel  string
	GenerationModel string
	TaskHint        string // e.g. "SEMANTIC_SIMILARITY"
	Dimension       int    // requested output dimensionality
	Sampling        Sampling
}

// NewGemini creates a Gemini provider client.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}

	return &Gemini{
		client:          client,
		embeddingModel:  cfg.EmbeddingModel,
		generationModel: cfg.GenerationModel,
		taskHint:        cfg.TaskHint,
		dimension:       int32(cfg.Dimension), // #nosec G115 -- validated range in config
		sampling:        cfg.Sampling,
	}, nil
}

// Embed returns the embedding vector for text.
// gemini-embedding-001 defaults to 3072 components; OutputDimensionality
// truncates to the deployment dimension so stored and query vectors always
// match the vector(D) column.
func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	dim := g.dimension
	resp, err := g.client.Models.EmbedContent(ctx, g.embeddingModel,
		genai.Text(text),
		&genai.EmbedContentConfig{
			TaskType:             g.taskHint,
			OutputDimensionality: &dim,
		})
	if err != nil {
		return nil, fmt.Errorf("gemini: embed content: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("gemini: empty embedding response")
	}
	return resp.Embeddings[0].Values, nil
}

// Generate produces an answer for the assembled prompt using the configured
// sampling parameters.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.generationModel,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			Temperature:     genai.Ptr(g.sampling.Temperature),
			TopP:            genai.Ptr(g.sampling.TopP),
			TopK:            genai.Ptr(float32(g.sampling.TopK)),
			MaxOutputTokens: g.sampling.MaxOutputTokens,
		})
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini: empty generation response")
	}
	return text, nil
}
