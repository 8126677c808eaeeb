package domain

import (
	"context"
	"fmt"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder vectorizes multiple texts in a single API call.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// HealthChecker verifies provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult carries multiple embedding vectors and aggregate token usage.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

// BatchFallback вызывает Embed по одному для каждого текста. Safety net для провайдеров
// без нативного batch.
func BatchFallback(ctx context.Context, e Embedder, texts []string) (BatchEmbeddingResult, error) {
	embeddings := make([][]float32, len(texts))
	var totalPrompt, totalTokens int

	for i, text := range texts {
		res, err := e.Embed(ctx, text)
		if err != nil {
			return BatchEmbeddingResult{}, fmt.Errorf("fallback embed [%d]: %w", i, err)
		}
		embeddings[i] = res.Embedding
		totalPrompt += res.PromptTokens
		totalTokens += res.TotalTokens
	}

	return BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: totalPrompt,
		TotalTokens:  totalTokens,
	}, nil
}

// EmbedBatched embeds texts through a BatchEmbedder in slices of at most batchSize,
// bounding per-call payload. Falls back to per-text Embed when the embedder has no
// native batch support.
func EmbedBatched(
	ctx context.Context, e Embedder, texts []string, batchSize int,
) (BatchEmbeddingResult, error) {
	if batchSize <= 0 {
		batchSize = 32
	}

	be, hasBatch := e.(BatchEmbedder)
	if !hasBatch {
		return BatchFallback(ctx, e, texts)
	}

	out := BatchEmbeddingResult{Embeddings: make([][]float32, 0, len(texts))}
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		res, err := be.BatchEmbed(ctx, texts[start:end])
		if err != nil {
			return BatchEmbeddingResult{}, fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
		}
		if len(res.Embeddings) != end-start {
			return BatchEmbeddingResult{}, fmt.Errorf(
				"embed batch [%d:%d]: got %d vectors: %w", start, end, len(res.Embeddings), ErrEmbedding,
			)
		}
		out.Embeddings = append(out.Embeddings, res.Embeddings...)
		out.PromptTokens += res.PromptTokens
		out.TotalTokens += res.TotalTokens
	}

	return out, nil
}
