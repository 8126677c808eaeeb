package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
// Consumers should depend on the narrow sub-interfaces.
//
//nolint:interfacebloat
type Store interface {
	Pinger
	HashStore
	KVStore
	IndexManager
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem holds a single key+fields pair for pipelined HSET.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore provides hash-based key-value operations.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SupportsTextSearch(ctx context.Context) bool
}

// Searcher provides search operations over FT indexes.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchBM25(ctx context.Context, q *TextQuery) (*SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Chunk hash field names shared by the FT index schema and result parsing.
const (
	FieldDocID  = "doc_id"
	FieldIndex  = "idx"
	FieldOffset = "offset"
	FieldText   = "text"
	FieldSource = "source"
	FieldTitle  = "title"
	FieldVector = "vector"
)

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	SourceTag    string // optional @source pre-filter
	Vector       []float32
	K            int
	ReturnFields []string
}

// TextQuery is the input for BM25 text search.
type TextQuery struct {
	IndexName    string
	Query        string
	SourceTag    string // optional @source pre-filter
	TopK         int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single chunk hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
