// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/kozaktomas/rollcall/internal/database"
)

// MockLedgerStorage is an in-memory database.LedgerStorage
type MockLedgerStorage struct {
	mu      sync.Mutex
	records map[string][]database.AttendanceRecord

	// Error injection
	ListLabelsError error
	AppendError     error
	RecordsError    error

	// AppendDelay widens the window between ListLabels and Append so tests can
	// observe whether callers serialize check-then-append.
	AppendDelay time.Duration

	appendCalls int
}

// NewMockLedgerStorage creates a new mock ledger storage
func NewMockLedgerStorage() *MockLedgerStorage {
	return &MockLedgerStorage{
		records: make(map[string][]database.AttendanceRecord),
	}
}

// ListLabels returns the labels recorded for a group
func (m *MockLedgerStorage) ListLabels(ctx context.Context, group string) (map[string]struct{}, error) {
	if m.ListLabelsError != nil {
		return nil, m.ListLabelsError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	labels := make(map[string]struct{}, len(m.records[group]))
	for _, r := range m.records[group] {
		labels[r.Label] = struct{}{}
	}
	return labels, nil
}

// Append stores a record without checking for duplicates
func (m *MockLedgerStorage) Append(ctx context.Context, rec database.AttendanceRecord) error {
	if m.AppendDelay > 0 {
		time.Sleep(m.AppendDelay)
	}
	if m.AppendError != nil {
		return m.AppendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendCalls++
	m.records[rec.Group] = append(m.records[rec.Group], rec)
	return nil
}

// Records returns a copy of the group's records
func (m *MockLedgerStorage) Records(ctx context.Context, group string) ([]database.AttendanceRecord, error) {
	if m.RecordsError != nil {
		return nil, m.RecordsError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]database.AttendanceRecord, len(m.records[group]))
	copy(out, m.records[group])
	return out, nil
}

// AppendCalls returns how many records were appended
func (m *MockLedgerStorage) AppendCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendCalls
}

// MockAtomicLedgerStorage adds an atomic insert-if-absent to MockLedgerStorage
type MockAtomicLedgerStorage struct {
	*MockLedgerStorage

	AppendIfAbsentError error
}

// NewMockAtomicLedgerStorage creates a new mock storage with conditional appends
func NewMockAtomicLedgerStorage() *MockAtomicLedgerStorage {
	return &MockAtomicLedgerStorage{MockLedgerStorage: NewMockLedgerStorage()}
}

// AppendIfAbsent stores rec unless its label is already recorded
func (m *MockAtomicLedgerStorage) AppendIfAbsent(ctx context.Context, rec database.AttendanceRecord) (bool, error) {
	if m.AppendIfAbsentError != nil {
		return false, m.AppendIfAbsentError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records[rec.Group] {
		if r.Label == rec.Label {
			return false, nil
		}
	}
	m.appendCalls++
	m.records[rec.Group] = append(m.records[rec.Group], rec)
	return true, nil
}

// MockEmbeddingCache is an in-memory database.EmbeddingCache
type MockEmbeddingCache struct {
	mu         sync.RWMutex
	embeddings map[string]database.CachedEmbedding

	// Error injection
	GetError error
	PutError error

	hits int
}

// NewMockEmbeddingCache creates a new mock embedding cache
func NewMockEmbeddingCache() *MockEmbeddingCache {
	return &MockEmbeddingCache{embeddings: make(map[string]database.CachedEmbedding)}
}

func cacheKey(hash, model string) string { return model + "/" + hash }

// GetEmbedding returns a cached embedding or nil
func (m *MockEmbeddingCache) GetEmbedding(ctx context.Context, contentHash, model string) (*database.CachedEmbedding, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	emb, ok := m.embeddings[cacheKey(contentHash, model)]
	if !ok {
		return nil, nil
	}
	m.hits++
	return &emb, nil
}

// PutEmbedding stores an embedding
func (m *MockEmbeddingCache) PutEmbedding(ctx context.Context, emb database.CachedEmbedding) error {
	if m.PutError != nil {
		return m.PutError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embeddings[cacheKey(emb.ContentHash, emb.Model)] = emb
	return nil
}

// Len returns the number of cached embeddings
func (m *MockEmbeddingCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.embeddings)
}

// Hits returns how many lookups found an embedding
func (m *MockEmbeddingCache) Hits() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hits
}
