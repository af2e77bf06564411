// Package app wires configuration into a running set of components: the
// provider clients, the stores, and the two orchestrators. Commands build
// an App once and pull what they need; nothing here is global.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grovekit/grove/internal/answer"
	"github.com/grovekit/grove/internal/blob"
	"github.com/grovekit/grove/internal/chunker"
	"github.com/grovekit/grove/internal/config"
	"github.com/grovekit/grove/internal/embed"
	"github.com/grovekit/grove/internal/ingest"
	"github.com/grovekit/grove/internal/log"
	"github.com/grovekit/grove/internal/provider"
	"github.com/grovekit/grove/internal/query"
	"github.com/grovekit/grove/internal/secret"
	"github.com/grovekit/grove/internal/store"
)

// App holds the wired components for one process.
type App struct {
	Config   *config.Config
	Logger   log.Logger
	Pool     *pgxpool.Pool
	Store    *store.Postgres
	Blobs    blob.Store
	Embedder *embed.Client
	Ingestor *ingest.Orchestrator
	Querier  *query.Orchestrator
}

// New builds the full component graph from cfg. The caller owns Close.
func New(ctx context.Context, cfg *config.Config, logger log.Logger) (*App, error) {
	apiKey, err := secret.EnvResolver{}.Resolve(ctx, cfg.APIKeyRef)
	if err != nil {
		return nil, fmt.Errorf("resolving API key %q: %w", cfg.APIKeyRef, err)
	}

	embedProvider, genProvider, err := buildProviders(ctx, cfg, apiKey)
	if err != nil {
		return nil, err
	}

	embedder, err := embed.New(embedProvider, embed.Config{
		Dimension:     cfg.EmbeddingDimension,
		Timeout:       time.Duration(cfg.ProviderTimeoutSecs) * time.Second,
		Concurrency:   cfg.EmbeddingConcurrency,
		RatePerSecond: cfg.EmbeddingRateLimit,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("building embedding client: %w", err)
	}

	pool, err := store.NewPool(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	st, err := store.NewPostgres(pool, cfg.EmbeddingDimension, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("building store: %w", err)
	}

	blobs, err := blob.NewFSStore(cfg.BlobDir)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("opening blob store: %w", err)
	}

	ingestor, err := ingest.New(blobs, embedder, st, chunker.Config{
		Size:    cfg.ChunkSize,
		Overlap: cfg.ChunkOverlap,
	}, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("building ingestion orchestrator: %w", err)
	}

	answerer, err := answer.New(genProvider,
		answer.WithMaxContextBytes(cfg.MaxContextBytes),
		answer.WithTimeout(time.Duration(cfg.ProviderTimeoutSecs)*time.Second),
		answer.WithLogger(logger))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("building answerer: %w", err)
	}

	querier, err := query.New(embedder, st, answerer, cfg.TopKChunks, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("building query orchestrator: %w", err)
	}

	return &App{
		Config:   cfg,
		Logger:   logger,
		Pool:     pool,
		Store:    st,
		Blobs:    blobs,
		Embedder: embedder,
		Ingestor: ingestor,
		Querier:  querier,
	}, nil
}

// buildProviders constructs the embedding and generation collaborators for
// the configured provider.
func buildProviders(ctx context.Context, cfg *config.Config, apiKey string) (embed.Embedder, answer.Generator, error) {
	sampling := provider.Sampling{
		Temperature:     cfg.Temperature,
		TopP:            cfg.TopP,
		TopK:            cfg.TopK,
		MaxOutputTokens: cfg.MaxOutputTokens,
	}

	switch cfg.Provider {
	case config.ProviderGemini:
		p, err := provider.NewGemini(ctx, provider.GeminiConfig{
			APIKey:          apiKey,
			EmbeddingModel:  cfg.EmbeddingModel,
			GenerationModel: cfg.GenerationModel,
			TaskHint:        cfg.TaskHint,
			Dimension:       cfg.EmbeddingDimension,
			Sampling:        sampling,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("building gemini provider: %w", err)
		}
		return p, p, nil
	case config.ProviderOpenAI:
		p, err := provider.NewOpenAI(provider.OpenAIConfig{
			APIKey:          apiKey,
			EmbeddingModel:  cfg.EmbeddingModel,
			GenerationModel: cfg.GenerationModel,
			Dimension:       cfg.EmbeddingDimension,
			Sampling:        sampling,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("building openai provider: %w", err)
		}
		return p, p, nil
	default:
		return nil, nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// Close releases the database pool.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}
