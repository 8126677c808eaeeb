package keyword

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/ragpipe/internal/db"
	"github.com/kailas-cloud/ragpipe/internal/db/pool"
	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/result"
)

// Repo runs BM25 keyword search over the chunk text field of the FT index
// shared with the vector store.
type Repo struct {
	store     db.Store
	keyPrefix string
}

// New creates a keyword search repository.
func New(store db.Store, keyPrefix string) *Repo {
	return &Repo{store: store, keyPrefix: keyPrefix}
}

func (r *Repo) indexName() string { return r.keyPrefix + "chunks_idx" }

// Search returns chunks matching the query text, ordered by descending BM25
// score, ties by ascending chunk ID. Scores are raw and unbounded; callers
// normalize before mixing them with similarities.
func (r *Repo) Search(
	ctx context.Context, query string, topK int, sourceTag string,
) ([]result.Chunk, error) {
	if !r.store.SupportsTextSearch(ctx) {
		return nil, domain.ErrKeywordSearchNotSupported
	}

	res, err := r.store.SearchBM25(ctx, &db.TextQuery{
		IndexName: r.indexName(),
		Query:     query,
		SourceTag: sourceTag,
		TopK:      topK,
		ReturnFields: []string{
			db.FieldDocID, db.FieldText, db.FieldSource, db.FieldTitle,
		},
	})
	if err != nil {
		if errors.Is(err, pool.ErrExhausted) {
			return nil, fmt.Errorf("keyword search: %w", domain.ErrPoolExhausted)
		}
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, fmt.Errorf("keyword search: %w", domain.ErrKeywordSearchNotSupported)
		}
		return nil, fmt.Errorf("keyword search: %w: %w", domain.ErrVectorStore, err)
	}

	chunks := make([]result.Chunk, 0, len(res.Entries))
	for i := range res.Entries {
		e := &res.Entries[i]
		chunks = append(chunks, result.NewChunk(
			strings.TrimPrefix(e.Key, r.keyPrefix+"chunk:"),
			e.Fields[db.FieldDocID],
			e.Fields[db.FieldText],
			e.Fields[db.FieldSource],
			e.Fields[db.FieldTitle],
			0,
			e.Score,
		))
	}

	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].KeywordScore() != chunks[j].KeywordScore() {
			return chunks[i].KeywordScore() > chunks[j].KeywordScore()
		}
		return chunks[i].ID() < chunks[j].ID()
	})

	return chunks, nil
}
