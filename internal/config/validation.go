package config

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for configuration validation. Callers use errors.Is to
// distinguish failure classes; all of them are fatal at startup.
var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidProvider indicates the model provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrMissingAPIKeyRef indicates no secret reference for the provider key.
	ErrMissingAPIKeyRef = errors.New("missing API key reference")

	// ErrInvalidModelName indicates an empty or malformed model identifier.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidChunkSize indicates chunk_size is out of range.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidChunkOverlap indicates chunk_overlap is negative or not
	// smaller than chunk_size.
	ErrInvalidChunkOverlap = errors.New("invalid chunk overlap")

	// ErrInvalidDimension indicates the embedding dimension is out of range.
	ErrInvalidDimension = errors.New("invalid embedding dimension")

	// ErrInvalidConcurrency indicates the embedding concurrency is out of range.
	ErrInvalidConcurrency = errors.New("invalid embedding concurrency")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidTopP indicates the top_p value is out of range.
	ErrInvalidTopP = errors.New("invalid top_p")

	// ErrInvalidMaxTokens indicates the max output tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max output tokens")

	// ErrInvalidContextBudget indicates max_context_bytes is out of range.
	ErrInvalidContextBudget = errors.New("invalid context budget")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

// validSSLModes are the sslmode values accepted by libpq/pgx.
var validSSLModes = map[string]struct{}{
	"disable":     {},
	"allow":       {},
	"prefer":      {},
	"require":     {},
	"verify-ca":   {},
	"verify-full": {},
}

// Validate checks the configuration for correctness.
// Every violation here is a startup-fatal configuration error; nothing in
// this list is recoverable at request time.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	switch c.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: %q (expected %q or %q)",
			ErrInvalidProvider, c.Provider, ProviderGemini, ProviderOpenAI)
	}

	if strings.TrimSpace(c.APIKeyRef) == "" {
		return fmt.Errorf("%w: set api_key_ref (e.g. env:GEMINI_API_KEY)", ErrMissingAPIKeyRef)
	}
	if strings.TrimSpace(c.EmbeddingModel) == "" {
		return fmt.Errorf("%w: embedding_model is empty", ErrInvalidModelName)
	}
	if strings.TrimSpace(c.GenerationModel) == "" {
		return fmt.Errorf("%w: generation_model is empty", ErrInvalidModelName)
	}

	if c.ChunkSize < 1 {
		return fmt.Errorf("%w: chunk_size must be >= 1, got %d", ErrInvalidChunkSize, c.ChunkSize)
	}
	// Overlap >= size would loop forever when sliding windows; reject here,
	// never mid-ingestion.
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap %d must be in [0, chunk_size=%d)",
			ErrInvalidChunkOverlap, c.ChunkOverlap, c.ChunkSize)
	}

	if c.EmbeddingDimension < 1 || c.EmbeddingDimension > 16000 {
		return fmt.Errorf("%w: embedding_dimension must be in [1, 16000], got %d",
			ErrInvalidDimension, c.EmbeddingDimension)
	}
	if c.EmbeddingConcurrency < 1 || c.EmbeddingConcurrency > 64 {
		return fmt.Errorf("%w: embedding_concurrency must be in [1, 64], got %d",
			ErrInvalidConcurrency, c.EmbeddingConcurrency)
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: temperature must be in [0, 2], got %g", ErrInvalidTemperature, c.Temperature)
	}
	if c.TopP < 0 || c.TopP > 1 {
		return fmt.Errorf("%w: top_p must be in [0, 1], got %g", ErrInvalidTopP, c.TopP)
	}
	if c.MaxOutputTokens < 1 {
		return fmt.Errorf("%w: max_output_tokens must be >= 1, got %d", ErrInvalidMaxTokens, c.MaxOutputTokens)
	}

	if c.TopKChunks < 0 {
		return fmt.Errorf("%w: top_k_chunks must be >= 0, got %d", ErrInvalidContextBudget, c.TopKChunks)
	}
	if c.MaxContextBytes < 1 {
		return fmt.Errorf("%w: max_context_bytes must be >= 1, got %d", ErrInvalidContextBudget, c.MaxContextBytes)
	}

	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: host is empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: port must be in [1, 65535], got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: database name is empty", ErrInvalidPostgresDBName)
	}
	if _, ok := validSSLModes[c.PostgresSSLMode]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}

	return nil
}
