package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/rollcall/internal/database"
	"github.com/pgvector/pgvector-go"
)

// EmbeddingRepository caches reference embeddings in a pgvector column
type EmbeddingRepository struct {
	pool *Pool
}

// NewEmbeddingRepository creates a new PostgreSQL embedding cache
func NewEmbeddingRepository(pool *Pool) *EmbeddingRepository {
	return &EmbeddingRepository{pool: pool}
}

// GetEmbedding retrieves an embedding by content hash and model, returns nil if not found
func (r *EmbeddingRepository) GetEmbedding(ctx context.Context, contentHash, model string) (*database.CachedEmbedding, error) {
	query := `
		SELECT content_hash, model, embedding, created_at
		FROM reference_embeddings
		WHERE content_hash = $1 AND model = $2
	`

	var emb database.CachedEmbedding
	var vec pgvector.Vector

	err := r.pool.QueryRow(ctx, query, contentHash, model).Scan(
		&emb.ContentHash,
		&emb.Model,
		&vec,
		&emb.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}

	emb.Embedding = vec.Slice()
	return &emb, nil
}

// PutEmbedding stores or replaces an embedding
func (r *EmbeddingRepository) PutEmbedding(ctx context.Context, emb database.CachedEmbedding) error {
	query := `
		INSERT INTO reference_embeddings (content_hash, model, embedding)
		VALUES ($1, $2, $3)
		ON CONFLICT (content_hash, model) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			created_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query, emb.ContentHash, emb.Model, pgvector.NewVector(emb.Embedding))
	if err != nil {
		return fmt.Errorf("save embedding: %w", err)
	}
	return nil
}
