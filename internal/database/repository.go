package database

import (
	"context"
)

// LedgerStorage persists attendance records per group.
type LedgerStorage interface {
	// ListLabels returns the set of labels already recorded for a group
	ListLabels(ctx context.Context, group string) (map[string]struct{}, error)
	// Append stores a record unconditionally
	Append(ctx context.Context, rec AttendanceRecord) error
	// Records returns all records of a group in the order they were appended
	Records(ctx context.Context, group string) ([]AttendanceRecord, error)
}

// ConditionalAppender is implemented by storages that can insert a record only
// when its (group, label) is not present, atomically across processes.
type ConditionalAppender interface {
	// AppendIfAbsent stores rec unless the label is already recorded for the group.
	// Returns true when rec was stored.
	AppendIfAbsent(ctx context.Context, rec AttendanceRecord) (bool, error)
}

// EmbeddingCache stores reference embeddings so registries can be rebuilt
// without re-running detection on unchanged images.
type EmbeddingCache interface {
	// GetEmbedding returns the cached embedding, nil if not found
	GetEmbedding(ctx context.Context, contentHash, model string) (*CachedEmbedding, error)
	// PutEmbedding stores or replaces an embedding
	PutEmbedding(ctx context.Context, emb CachedEmbedding) error
}
