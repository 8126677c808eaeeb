package ingest

import (
	"context"

	"github.com/kailas-cloud/ragpipe/internal/domain/chunk"
	"github.com/kailas-cloud/ragpipe/internal/domain/document"
)

// VectorStore defines the storage contract for ingestion.
type VectorStore interface {
	ReplaceDocument(
		ctx context.Context, doc *document.Document, chunks []chunk.Chunk, vectors [][]float32,
	) error
	DeleteDocument(ctx context.Context, documentID string) error
}
