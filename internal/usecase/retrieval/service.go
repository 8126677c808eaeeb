package retrieval

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/method"
	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/query"
	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/result"
	"github.com/kailas-cloud/ragpipe/internal/logger"
	"github.com/kailas-cloud/ragpipe/internal/metrics"
)

// Options tunes retrieval behavior.
type Options struct {
	// Alpha weighs vector similarity against keyword relevance in hybrid
	// merging. 0.7 favors semantic matches.
	Alpha float64
	// Retries bounds attempts per failing sub-query.
	Retries int
	// PartialTimeout caps each hybrid sub-query; the slow leg is abandoned
	// and the result degraded rather than blocking the request.
	PartialTimeout time.Duration
}

// Service answers retrieval queries over the vector store and keyword index.
// It never returns an error: every failure path degrades to a tagged result
// so callers always know how the chunks were produced.
type Service struct {
	vec   VectorSearcher
	kw    KeywordSearcher
	embed domain.Embedder
	opts  Options
}

// New creates a retrieval service.
func New(vec VectorSearcher, kw KeywordSearcher, embed domain.Embedder, opts Options) *Service {
	if opts.Alpha <= 0 || opts.Alpha > 1 {
		opts.Alpha = 0.7
	}
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	if opts.PartialTimeout <= 0 {
		opts.PartialTimeout = 2 * time.Second
	}
	return &Service{vec: vec, kw: kw, embed: embed, opts: opts}
}

// Retrieve executes the query with its requested method, falling back across
// methods on failure. The outcome tag reports whether fallbacks were used.
func (s *Service) Retrieve(ctx context.Context, q *query.Query) result.Result {
	start := time.Now()

	var (
		chunks  []result.Chunk
		outcome result.Outcome
		reason  string
	)

	switch q.Method() {
	case method.Vector:
		chunks, outcome, reason = s.retrieveVector(ctx, q)
	case method.Keyword:
		chunks, outcome, reason = s.retrieveKeyword(ctx, q)
	default:
		chunks, outcome, reason = s.retrieveHybrid(ctx, q)
	}

	elapsed := time.Since(start)
	metrics.RetrievalsTotal.WithLabelValues(string(q.Method()), string(outcome)).Inc()
	metrics.RetrievalDuration.WithLabelValues(string(q.Method())).Observe(elapsed.Seconds())

	if outcome == result.Failed {
		logger.FromContext(ctx).Warn("retrieval failed",
			zap.String("method", string(q.Method())),
			zap.String("reason", reason),
		)
		return result.Empty(reason, elapsed.Milliseconds())
	}

	chunks = filterByThreshold(chunks, q.Threshold())
	if len(chunks) > q.TopK() {
		chunks = chunks[:q.TopK()]
	}

	return result.New(chunks, confidence(chunks, outcome), outcome, reason, elapsed.Milliseconds())
}

func (s *Service) retrieveVector(ctx context.Context, q *query.Query) ([]result.Chunk, result.Outcome, string) {
	chunks, err := s.vectorLeg(ctx, q)
	if err == nil {
		return chunks, result.OK, ""
	}

	logger.FromContext(ctx).Warn("vector search failed, falling back to keyword", zap.Error(err))

	kwChunks, kwErr := s.keywordLeg(ctx, q)
	if kwErr != nil {
		return nil, result.Failed, "vector search failed: " + err.Error()
	}
	return normalizeKeyword(kwChunks), result.Degraded, "vector search failed, keyword fallback used"
}

func (s *Service) retrieveKeyword(ctx context.Context, q *query.Query) ([]result.Chunk, result.Outcome, string) {
	chunks, err := s.keywordLeg(ctx, q)
	if err == nil {
		return normalizeKeyword(chunks), result.OK, ""
	}

	logger.FromContext(ctx).Warn("keyword search failed, falling back to vector", zap.Error(err))

	vecChunks, vecErr := s.vectorLeg(ctx, q)
	if vecErr != nil {
		return nil, result.Failed, "keyword search failed: " + err.Error()
	}
	return vecChunks, result.Degraded, "keyword search failed, vector fallback used"
}

// retrieveHybrid runs both legs concurrently, each bounded by PartialTimeout.
// One surviving leg degrades the result; both failing fails it.
func (s *Service) retrieveHybrid(ctx context.Context, q *query.Query) ([]result.Chunk, result.Outcome, string) {
	legCtx, cancel := context.WithTimeout(ctx, s.opts.PartialTimeout)
	defer cancel()

	var (
		wg                 sync.WaitGroup
		vecChunks, kwChunk []result.Chunk
		vecErr, kwErr      error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		vecChunks, vecErr = s.vectorLeg(legCtx, q)
	}()
	go func() {
		defer wg.Done()
		kwChunk, kwErr = s.keywordLeg(legCtx, q)
	}()
	wg.Wait()

	switch {
	case vecErr == nil && kwErr == nil:
		return mergeWeighted(vecChunks, kwChunk, s.opts.Alpha), result.OK, ""
	case vecErr == nil:
		logger.FromContext(ctx).Warn("keyword leg failed in hybrid retrieval", zap.Error(kwErr))
		return vecChunks, result.Degraded, "keyword search unavailable, vector results only"
	case kwErr == nil:
		logger.FromContext(ctx).Warn("vector leg failed in hybrid retrieval", zap.Error(vecErr))
		return normalizeKeyword(kwChunk), result.Degraded, "vector search unavailable, keyword results only"
	default:
		return nil, result.Failed, "both search paths failed: " + vecErr.Error()
	}
}

func (s *Service) vectorLeg(ctx context.Context, q *query.Query) ([]result.Chunk, error) {
	var chunks []result.Chunk
	err := s.withRetry(ctx, func() error {
		emb, err := s.embed.Embed(ctx, q.Text())
		if err != nil {
			return err
		}
		chunks, err = s.vec.Search(ctx, emb.Embedding, q.TopK(), q.Source())
		return err
	})
	return chunks, err
}

func (s *Service) keywordLeg(ctx context.Context, q *query.Query) ([]result.Chunk, error) {
	if s.kw == nil {
		return nil, domain.ErrKeywordSearchNotSupported
	}
	var chunks []result.Chunk
	err := s.withRetry(ctx, func() error {
		var err error
		chunks, err = s.kw.Search(ctx, q.Text(), q.TopK(), q.Source())
		return err
	})
	return chunks, err
}

// withRetry runs fn up to Retries times with doubling backoff. Unsupported
// operations and canceled contexts are not retried.
func (s *Service) withRetry(ctx context.Context, fn func() error) error {
	backoff := 100 * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= s.opts.Retries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if errors.Is(err, domain.ErrKeywordSearchNotSupported) ||
			errors.Is(err, context.Canceled) ||
			errors.Is(err, context.DeadlineExceeded) ||
			attempt == s.opts.Retries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return lastErr
}
