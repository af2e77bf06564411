package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovekit/grove/internal/config"
	"github.com/grovekit/grove/internal/provider"
)

func samplingConfig() *config.Config {
	return &config.Config{
		Provider:           config.ProviderGemini,
		EmbeddingModel:     config.DefaultEmbeddingModel,
		GenerationModel:    config.DefaultGenerationModel,
		TaskHint:           config.DefaultTaskHint,
		EmbeddingDimension: config.DefaultEmbeddingDimension,
		Temperature:        0.2,
		TopP:               0.95,
		TopK:               40,
		MaxOutputTokens:    2048,
	}
}

func TestBuildProviders_Gemini(t *testing.T) {
	emb, gen, err := buildProviders(context.Background(), samplingConfig(), "test-key")
	require.NoError(t, err)
	assert.IsType(t, &provider.Gemini{}, emb)
	assert.IsType(t, &provider.Gemini{}, gen)
	// One client serves both roles.
	assert.Same(t, emb, gen)
}

func TestBuildProviders_OpenAI(t *testing.T) {
	cfg := samplingConfig()
	cfg.Provider = config.ProviderOpenAI
	cfg.EmbeddingModel = "text-embedding-3-small"
	cfg.GenerationModel = "gpt-4o-mini"

	emb, gen, err := buildProviders(context.Background(), cfg, "test-key")
	require.NoError(t, err)
	assert.IsType(t, &provider.OpenAI{}, emb)
	assert.IsType(t, &provider.OpenAI{}, gen)
}

func TestBuildProviders_UnknownProvider(t *testing.T) {
	cfg := samplingConfig()
	cfg.Provider = "anthropic"

	_, _, err := buildProviders(context.Background(), cfg, "test-key")
	assert.ErrorContains(t, err, "unknown provider")
}

func TestBuildProviders_MissingKey(t *testing.T) {
	_, _, err := buildProviders(context.Background(), samplingConfig(), "")
	assert.Error(t, err)
}
