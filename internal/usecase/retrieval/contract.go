package retrieval

import (
	"context"

	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/result"
)

// VectorSearcher runs KNN search over stored chunk vectors.
type VectorSearcher interface {
	Search(ctx context.Context, vector []float32, topK int, sourceTag string) ([]result.Chunk, error)
}

// KeywordSearcher runs keyword (BM25) search over stored chunk text.
type KeywordSearcher interface {
	Search(ctx context.Context, query string, topK int, sourceTag string) ([]result.Chunk, error)
}
