package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a configuration that passes Validate.
// Tests mutate single fields from this baseline.
func validConfig() *Config {
	return &Config{
		Provider:             ProviderGemini,
		EmbeddingModel:       DefaultEmbeddingModel,
		GenerationModel:      DefaultGenerationModel,
		TaskHint:             DefaultTaskHint,
		APIKeyRef:            "env:GEMINI_API_KEY",
		Temperature:          0.2,
		TopP:                 0.95,
		TopK:                 40,
		MaxOutputTokens:      2048,
		EmbeddingDimension:   DefaultEmbeddingDimension,
		EmbeddingConcurrency: 4,
		ProviderTimeoutSecs:  30,
		ChunkSize:            1000,
		ChunkOverlap:         200,
		TopKChunks:           5,
		MaxContextBytes:      16384,
		PostgresHost:         "localhost",
		PostgresPort:         5432,
		PostgresUser:         "grove",
		PostgresPassword:     "secret",
		PostgresDBName:       "grove",
		PostgresSSLMode:      "disable",
	}
}

func TestValidate_Valid(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_Nil(t *testing.T) {
	var cfg *Config
	assert.ErrorIs(t, cfg.Validate(), ErrConfigNil)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"unknown provider", func(c *Config) { c.Provider = "anthropic" }, ErrInvalidProvider},
		{"missing api key ref", func(c *Config) { c.APIKeyRef = "  " }, ErrMissingAPIKeyRef},
		{"empty embedding model", func(c *Config) { c.EmbeddingModel = "" }, ErrInvalidModelName},
		{"empty generation model", func(c *Config) { c.GenerationModel = "" }, ErrInvalidModelName},
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }, ErrInvalidChunkSize},
		{"negative overlap", func(c *Config) { c.ChunkOverlap = -1 }, ErrInvalidChunkOverlap},
		{"overlap equals size", func(c *Config) { c.ChunkOverlap = c.ChunkSize }, ErrInvalidChunkOverlap},
		{"overlap exceeds size", func(c *Config) { c.ChunkOverlap = c.ChunkSize + 100 }, ErrInvalidChunkOverlap},
		{"zero dimension", func(c *Config) { c.EmbeddingDimension = 0 }, ErrInvalidDimension},
		{"zero concurrency", func(c *Config) { c.EmbeddingConcurrency = 0 }, ErrInvalidConcurrency},
		{"temperature too high", func(c *Config) { c.Temperature = 2.5 }, ErrInvalidTemperature},
		{"top_p too high", func(c *Config) { c.TopP = 1.5 }, ErrInvalidTopP},
		{"zero max tokens", func(c *Config) { c.MaxOutputTokens = 0 }, ErrInvalidMaxTokens},
		{"negative top_k_chunks", func(c *Config) { c.TopKChunks = -1 }, ErrInvalidContextBudget},
		{"zero context budget", func(c *Config) { c.MaxContextBytes = 0 }, ErrInvalidContextBudget},
		{"empty postgres host", func(c *Config) { c.PostgresHost = "" }, ErrInvalidPostgresHost},
		{"postgres port out of range", func(c *Config) { c.PostgresPort = 70000 }, ErrInvalidPostgresPort},
		{"empty db name", func(c *Config) { c.PostgresDBName = "" }, ErrInvalidPostgresDBName},
		{"bad ssl mode", func(c *Config) { c.PostgresSSLMode = "yes" }, ErrInvalidPostgresSSLMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}
}
