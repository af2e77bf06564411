package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/grovekit/grove/internal/log"
	"github.com/grovekit/grove/internal/rank"
)

// searchTimeout bounds a single vector search so a missing index cannot
// block a request indefinitely.
const searchTimeout = 10 * time.Second

// Postgres persists documents and chunks in PostgreSQL with pgvector.
// Similarity search is pushed down to the database (`<=>` cosine distance,
// ivfflat-indexed); ordering matches rank.Top bit-for-bit.
//
// Safe for concurrent use; the pool handles connection management.
type Postgres struct {
	pool   *pgxpool.Pool
	dim    int
	retry  RetryConfig
	logger log.Logger
}

// NewPool creates a pgx pool with pgvector type support registered on every
// connection.
func NewPool(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	return pool, nil
}

// NewPostgres creates a Postgres store. dim is the deployment embedding
// dimension D; every vector written or searched must have exactly dim
// components.
func NewPostgres(pool *pgxpool.Pool, dim int, logger log.Logger) (*Postgres, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if dim < 1 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dim)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{pool: pool, dim: dim, retry: DefaultRetryConfig(), logger: logger}, nil
}

// CreateDocument inserts or refreshes a document row keyed by
// (owner id, document id). Re-uploading resets the status and locator.
func (s *Postgres) CreateDocument(ctx context.Context, doc Document) error {
	if doc.OwnerID == "" {
		return ErrOwnerRequired
	}
	return withRetry(ctx, s.logger, "create_document", s.retry, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO documents (document_id, owner_id, display_name, mime_type, status, bucket, key, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
			ON CONFLICT (owner_id, document_id) DO UPDATE SET
				display_name = EXCLUDED.display_name,
				mime_type    = EXCLUDED.mime_type,
				status       = EXCLUDED.status,
				bucket       = EXCLUDED.bucket,
				key          = EXCLUDED.key,
				updated_at   = now()`,
			doc.ID, doc.OwnerID, doc.DisplayName, doc.MimeType, string(doc.Status), doc.Bucket, doc.Key)
		if err != nil {
			return fmt.Errorf("upserting document %q: %w", doc.ID, err)
		}
		return nil
	})
}

// GetDocument returns one document scoped by owner.
func (s *Postgres) GetDocument(ctx context.Context, ownerID, documentID string) (Document, error) {
	if ownerID == "" {
		return Document{}, ErrOwnerRequired
	}

	row := s.pool.QueryRow(ctx, `
		SELECT document_id, owner_id, display_name, mime_type, status, bucket, key, created_at, updated_at
		FROM documents
		WHERE owner_id = $1 AND document_id = $2`,
		ownerID, documentID)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, fmt.Errorf("%w: document %q", ErrNotFound, documentID)
		}
		return Document{}, fmt.Errorf("reading document %q: %w", documentID, err)
	}
	assertOwner(doc.OwnerID, ownerID)
	return doc, nil
}

// ListDocumentsByOwner returns all of an owner's documents, newest first.
func (s *Postgres) ListDocumentsByOwner(ctx context.Context, ownerID string) ([]Document, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}

	rows, err := s.pool.Query(ctx, `
		SELECT document_id, owner_id, display_name, mime_type, status, bucket, key, created_at, updated_at
		FROM documents
		WHERE owner_id = $1
		ORDER BY created_at DESC, document_id`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		assertOwner(doc.OwnerID, ownerID)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// SetDocumentStatus transitions a document's processing status.
func (s *Postgres) SetDocumentStatus(ctx context.Context, ownerID, documentID string, status Status) error {
	if ownerID == "" {
		return ErrOwnerRequired
	}
	return withRetry(ctx, s.logger, "set_document_status", s.retry, func(ctx context.Context) error {
		tag, err := s.pool.Exec(ctx, `
			UPDATE documents SET status = $1, updated_at = now()
			WHERE owner_id = $2 AND document_id = $3`,
			string(status), ownerID, documentID)
		if err != nil {
			return fmt.Errorf("updating document %q status: %w", documentID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: document %q", ErrNotFound, documentID)
		}
		return nil
	})
}

// UpsertChunks writes chunks one row at a time, keyed by chunk id.
// Re-ingesting the same document with the same chunk ids overwrites prior
// content and embeddings instead of duplicating rows. There is deliberately
// no cross-chunk transaction: a failure partway leaves earlier chunks
// durable and is surfaced to the orchestrator, which owns the document
// status.
func (s *Postgres) UpsertChunks(ctx context.Context, chunks []Chunk) error {
	for _, chunk := range chunks {
		if chunk.OwnerID == "" {
			return ErrOwnerRequired
		}
		if len(chunk.Embedding) != s.dim {
			return fmt.Errorf("%w: chunk %q has %d components, store requires %d",
				rank.ErrDimensionMismatch, chunk.ID, len(chunk.Embedding), s.dim)
		}

		metadataJSON, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata for chunk %q: %w", chunk.ID, err)
		}
		embedding := pgvector.NewVector(chunk.Embedding)

		err = withRetry(ctx, s.logger, "upsert_chunk", s.retry, func(ctx context.Context) error {
			_, err := s.pool.Exec(ctx, `
				INSERT INTO chunks (chunk_id, document_id, owner_id, ordinal, content, metadata, embedding, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
				ON CONFLICT (chunk_id) DO UPDATE SET
					document_id = EXCLUDED.document_id,
					owner_id    = EXCLUDED.owner_id,
					ordinal     = EXCLUDED.ordinal,
					content     = EXCLUDED.content,
					metadata    = EXCLUDED.metadata,
					embedding   = EXCLUDED.embedding,
					updated_at  = now()`,
				chunk.ID, chunk.DocumentID, chunk.OwnerID, chunk.Ordinal, chunk.Content, metadataJSON, embedding)
			return err
		})
		if err != nil {
			return fmt.Errorf("upserting chunk %q: %w", chunk.ID, err)
		}
	}
	return nil
}

// ChunksByOwner returns every chunk belonging to ownerID, ordered by
// document and ordinal. Used by the in-process ranking strategy and by
// corpus maintenance.
func (s *Postgres) ChunksByOwner(ctx context.Context, ownerID string) ([]Chunk, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}

	rows, err := s.pool.Query(ctx, `
		SELECT chunk_id, document_id, owner_id, ordinal, content, metadata, embedding, created_at, updated_at
		FROM chunks
		WHERE owner_id = $1
		ORDER BY document_id, ordinal`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}
		assertOwner(chunk.OwnerID, ownerID)
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// SearchChunks returns the owner's top-limit chunks by cosine similarity to
// query, score descending, chunk id ascending on ties. The owner predicate
// and the similarity ordering both execute inside the database; the query
// vector is always bound as a parameter, never interpolated.
//
// pgvector's cosine distance against a zero-norm vector is NaN, which would
// score degraded chunks outside [-1, 1] and sort them below negative
// matches. The CASE maps NaN to score 0, so ordering matches the in-process
// path (rank.Top) for the same inputs, including all-zero embeddings.
func (s *Postgres) SearchChunks(ctx context.Context, query []float32, ownerID string, limit int) ([]ScoredChunk, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLimit, limit)
	}
	if limit == 0 {
		return []ScoredChunk{}, nil
	}
	if len(query) != s.dim {
		return nil, fmt.Errorf("%w: query has %d components, store requires %d",
			rank.ErrDimensionMismatch, len(query), s.dim)
	}

	searchCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	queryVec := pgvector.NewVector(query)
	rows, err := s.pool.Query(searchCtx, `
		SELECT chunk_id, document_id, owner_id, ordinal, content, metadata, embedding,
		       created_at, updated_at, display_name, score
		FROM (
			SELECT c.chunk_id, c.document_id, c.owner_id, c.ordinal, c.content, c.metadata, c.embedding,
			       c.created_at, c.updated_at, d.display_name,
			       CASE WHEN (c.embedding <=> $1) = 'NaN'::float8 THEN 0::float8
			            ELSE GREATEST(-1::float8, LEAST(1::float8, 1 - (c.embedding <=> $1)))
			       END AS score
			FROM chunks c
			JOIN documents d ON d.owner_id = c.owner_id AND d.document_id = c.document_id
			WHERE c.owner_id = $2
		) ranked
		ORDER BY score DESC, chunk_id
		LIMIT $3`,
		queryVec, ownerID, limit)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("vector search timeout: %w", err)
		}
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var results []ScoredChunk
	for rows.Next() {
		var (
			sc           ScoredChunk
			metadataJSON []byte
			embedding    pgvector.Vector
		)
		if err := rows.Scan(&sc.ID, &sc.DocumentID, &sc.OwnerID, &sc.Ordinal, &sc.Content,
			&metadataJSON, &embedding, &sc.CreatedAt, &sc.UpdatedAt, &sc.DocumentName, &sc.Score); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		assertOwner(sc.OwnerID, ownerID)
		sc.Embedding = embedding.Slice()
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &sc.Metadata); err != nil {
				s.logger.Warn("failed to parse chunk metadata", "chunk_id", sc.ID, "error", err)
				sc.Metadata = map[string]string{}
			}
		}
		results = append(results, sc)
	}
	if results == nil {
		results = []ScoredChunk{}
	}
	return results, rows.Err()
}

// CountChunksByDocument reports how many chunks a document currently has.
func (s *Postgres) CountChunksByDocument(ctx context.Context, ownerID, documentID string) (int, error) {
	if ownerID == "" {
		return 0, ErrOwnerRequired
	}
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM chunks WHERE owner_id = $1 AND document_id = $2`,
		ownerID, documentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var (
		doc    Document
		status string
	)
	err := row.Scan(&doc.ID, &doc.OwnerID, &doc.DisplayName, &doc.MimeType, &status,
		&doc.Bucket, &doc.Key, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return Document{}, err
	}
	doc.Status = Status(status)
	return doc, nil
}

func scanChunk(row rowScanner) (Chunk, error) {
	var (
		chunk        Chunk
		metadataJSON []byte
		embedding    pgvector.Vector
	)
	err := row.Scan(&chunk.ID, &chunk.DocumentID, &chunk.OwnerID, &chunk.Ordinal, &chunk.Content,
		&metadataJSON, &embedding, &chunk.CreatedAt, &chunk.UpdatedAt)
	if err != nil {
		return Chunk{}, err
	}
	chunk.Embedding = embedding.Slice()
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &chunk.Metadata); err != nil {
			chunk.Metadata = map[string]string{}
		}
	}
	return chunk, nil
}
