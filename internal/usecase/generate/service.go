package generate

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/query"
	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/result"
	"github.com/kailas-cloud/ragpipe/internal/logger"
)

// DefaultMaxContextLength bounds assembled context characters.
const DefaultMaxContextLength = 8000

const noContextAnswer = "No relevant information was found to answer this question."

// Citation points an answer back to a chunk that was actually in the prompt.
type Citation struct {
	ChunkID    string
	DocumentID string
	Source     string
	Title      string
	Score      float64
}

// Answer is a grounded generation result. Partial means retrieval succeeded
// but the model call failed, so only sources are returned.
type Answer struct {
	Text       string
	Model      string
	Citations  []Citation
	Confidence float64
	Outcome    result.Outcome
	Reason     string
	Partial    bool
	ElapsedMS  int64
}

// Service runs retrieval-grounded answer generation.
type Service struct {
	retriever  Retriever
	generator  Generator
	maxContext int
}

// New creates a generation service.
func New(retriever Retriever, generator Generator, maxContextLength int) *Service {
	if maxContextLength <= 0 {
		maxContextLength = DefaultMaxContextLength
	}
	return &Service{retriever: retriever, generator: generator, maxContext: maxContextLength}
}

// Query retrieves context for the question and generates a cited answer.
// The model is never called without context; generation failure degrades to
// a sources-only partial answer instead of an error.
func (s *Service) Query(ctx context.Context, q *query.Query) (Answer, error) {
	start := time.Now()

	res := s.retriever.Retrieve(ctx, q)

	if len(res.Chunks()) == 0 {
		return Answer{
			Text:       noContextAnswer,
			Model:      s.generator.Model(),
			Confidence: 0,
			Outcome:    res.Outcome(),
			Reason:     res.Reason(),
			ElapsedMS:  time.Since(start).Milliseconds(),
		}, nil
	}

	included := fitContext(res.Chunks(), s.maxContext)
	citations := make([]Citation, 0, len(included))
	for i := range included {
		c := &included[i]
		citations = append(citations, Citation{
			ChunkID:    c.ID(),
			DocumentID: c.DocumentID(),
			Source:     c.Source(),
			Title:      c.Title(),
			Score:      c.Similarity(),
		})
	}

	text, err := s.generator.Generate(ctx, systemPrompt, buildUserPrompt(included, q.Text()))
	if err != nil {
		logger.FromContext(ctx).Warn("generation failed, returning sources only", zap.Error(err))
		return Answer{
			Model:      s.generator.Model(),
			Citations:  citations,
			Confidence: res.Confidence(),
			Outcome:    result.Degraded,
			Reason:     "generation failed: " + err.Error(),
			Partial:    true,
			ElapsedMS:  time.Since(start).Milliseconds(),
		}, nil
	}

	conf := res.Confidence()
	if soundsUncertain(text) {
		conf *= 0.5
	}

	return Answer{
		Text:       text,
		Model:      s.generator.Model(),
		Citations:  citations,
		Confidence: conf,
		Outcome:    res.Outcome(),
		Reason:     res.Reason(),
		ElapsedMS:  time.Since(start).Milliseconds(),
	}, nil
}
