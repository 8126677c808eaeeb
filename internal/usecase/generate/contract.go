package generate

import (
	"context"

	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/query"
	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/result"
)

// Retriever supplies ranked chunks for a query.
type Retriever interface {
	Retrieve(ctx context.Context, q *query.Query) result.Result
}

// Generator produces an answer from system and user prompts.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Model() string
}
