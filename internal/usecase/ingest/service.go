package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/chunk"
	"github.com/kailas-cloud/ragpipe/internal/domain/document"
	"github.com/kailas-cloud/ragpipe/internal/logger"
	"github.com/kailas-cloud/ragpipe/internal/metrics"
)

// EmbedBatchSize bounds texts per provider call.
const EmbedBatchSize = 32

// Input is a single document to ingest. ID is optional; a UUID is assigned
// when empty.
type Input struct {
	ID       string
	Content  string
	Source   string
	Title    string
	Author   string
	OriginID string
}

// Output reports a completed ingestion.
type Output struct {
	DocumentID string
	Chunks     int
	Tokens     int
}

// BatchItem is the per-document outcome of a batch ingestion. Failures are
// isolated: one bad document never aborts its siblings.
type BatchItem struct {
	DocumentID string
	Chunks     int
	Err        error
}

// Service splits documents into chunks, embeds them, and writes them to the
// vector store.
type Service struct {
	store        VectorStore
	embed        domain.Embedder
	chunkSize    int
	chunkOverlap int
}

// New creates an ingestion service.
func New(store VectorStore, embed domain.Embedder, chunkSize, chunkOverlap int) *Service {
	if chunkSize <= 0 {
		chunkSize = chunk.DefaultSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunk.DefaultOverlap
	}
	return &Service{store: store, embed: embed, chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// Ingest validates, splits, embeds and stores one document. Re-ingesting an
// existing ID overwrites its chunks and removes stale ones.
func (s *Service) Ingest(ctx context.Context, in Input) (Output, error) {
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}

	doc, err := document.New(id, in.Content, in.Source, in.Title, in.Author, in.OriginID, time.Now().UnixMilli())
	if err != nil {
		return Output{}, err
	}

	chunks, err := chunk.Split(&doc, s.chunkSize, s.chunkOverlap)
	if err != nil {
		return Output{}, err
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text()
	}

	batch, err := domain.EmbedBatched(ctx, s.embed, texts, EmbedBatchSize)
	if err != nil {
		return Output{}, fmt.Errorf("embed document %s: %w", doc.ID(), err)
	}

	if err := s.store.ReplaceDocument(ctx, &doc, chunks, batch.Embeddings); err != nil {
		return Output{}, fmt.Errorf("store document %s: %w", doc.ID(), err)
	}

	metrics.IngestedChunksTotal.Add(float64(len(chunks)))

	logger.FromContext(ctx).Info("document ingested",
		zap.String("document_id", doc.ID()),
		zap.Int("chunks", len(chunks)),
		zap.Int("tokens", batch.TotalTokens),
	)

	return Output{DocumentID: doc.ID(), Chunks: len(chunks), Tokens: batch.TotalTokens}, nil
}

// IngestBatch ingests documents sequentially with per-document error isolation.
func (s *Service) IngestBatch(ctx context.Context, inputs []Input) []BatchItem {
	items := make([]BatchItem, 0, len(inputs))
	for i := range inputs {
		out, err := s.Ingest(ctx, inputs[i])
		if err != nil {
			logger.FromContext(ctx).Warn("batch item failed",
				zap.String("document_id", inputs[i].ID),
				zap.Error(err),
			)
			items = append(items, BatchItem{DocumentID: inputs[i].ID, Err: err})
			continue
		}
		items = append(items, BatchItem{DocumentID: out.DocumentID, Chunks: out.Chunks})
	}
	return items
}

// Delete removes a document and all its chunks.
func (s *Service) Delete(ctx context.Context, documentID string) error {
	if documentID == "" {
		return fmt.Errorf("document ID is required: %w", domain.ErrValidation)
	}
	return s.store.DeleteDocument(ctx, documentID)
}
