package query

import (
	"fmt"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/method"
)

// Query parameter limits.
const (
	// MaxTextLength is the maximum allowed query text length.
	MaxTextLength = 4096
	DefaultTopK   = 5
	MaxTopK       = 100
)

// Query is a validated retrieval request.
type Query struct {
	text      string
	m         method.Method
	topK      int
	threshold float64
	source    string
}

// New validates and normalizes retrieval parameters.
// Defaults: method=hybrid, topK=5. Threshold must be in [0,1].
func New(text string, m method.Method, topK int, threshold float64, source string) (Query, error) {
	if text == "" {
		return Query{}, fmt.Errorf("query text is required: %w", domain.ErrValidation)
	}
	if len(text) > MaxTextLength {
		return Query{}, fmt.Errorf("query too long (max %d chars): %w", MaxTextLength, domain.ErrValidation)
	}
	if m == "" {
		m = method.Hybrid
	}
	if !m.IsValid() {
		return Query{}, fmt.Errorf("invalid retrieval method %q: %w", m, domain.ErrValidation)
	}
	if topK == 0 {
		topK = DefaultTopK
	}
	if topK < 1 || topK > MaxTopK {
		return Query{}, fmt.Errorf("top_k must be between 1 and %d: %w", MaxTopK, domain.ErrValidation)
	}
	if threshold < 0 || threshold > 1 {
		return Query{}, fmt.Errorf("similarity_threshold must be between 0 and 1: %w", domain.ErrValidation)
	}

	return Query{text: text, m: m, topK: topK, threshold: threshold, source: source}, nil
}

// Text returns the query text.
func (q *Query) Text() string { return q.text }

// Method returns the retrieval strategy.
func (q *Query) Method() method.Method { return q.m }

// TopK returns the number of chunks to retrieve.
func (q *Query) TopK() int { return q.topK }

// Threshold returns the minimum similarity threshold.
func (q *Query) Threshold() float64 { return q.threshold }

// Source returns the optional source tag pre-filter ("" means no filter).
func (q *Query) Source() string { return q.source }
