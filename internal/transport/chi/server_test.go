package chi

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/method"
)

func testServer() *Server {
	return NewServer(nil, nil, nil, nil, nil,
		Defaults{Threshold: 0.35, Method: method.Hybrid}, zap.NewNop())
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestBuildQuery_AppliesDefaults(t *testing.T) {
	s := testServer()

	q, err := s.buildQuery("what is hnsw", "", nil, nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Method() != method.Hybrid {
		t.Errorf("method = %s, want hybrid", q.Method())
	}
	if q.Threshold() != 0.35 {
		t.Errorf("threshold = %v, want 0.35", q.Threshold())
	}
}

func TestBuildQuery_ExplicitOverrides(t *testing.T) {
	s := testServer()

	q, err := s.buildQuery("what is hnsw", "keyword", intPtr(3), floatPtr(0.5), "wiki")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Method() != method.Keyword {
		t.Errorf("method = %s, want keyword", q.Method())
	}
	if q.TopK() != 3 {
		t.Errorf("topK = %d, want 3", q.TopK())
	}
	if q.Threshold() != 0.5 {
		t.Errorf("threshold = %v, want 0.5", q.Threshold())
	}
	if q.Source() != "wiki" {
		t.Errorf("source = %s, want wiki", q.Source())
	}
}

func TestBuildQuery_InvalidMethod(t *testing.T) {
	s := testServer()

	_, err := s.buildQuery("what is hnsw", "semantic", nil, nil, "")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestHandleDomainError_SentinelStatuses(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   ErrorCode
	}{
		{domain.ErrValidation, 400, CodeValidationFailed},
		{domain.ErrDocumentNotFound, 404, CodeDocumentNotFound},
		{domain.ErrEmbedding, 502, CodeEmbeddingProviderError},
		{domain.ErrGeneration, 502, CodeGenerationFailed},
		{domain.ErrPoolExhausted, 503, CodeStoreUnavailable},
		{domain.ErrKeywordSearchNotSupported, 501, CodeKeywordSearchNotSupported},
		{errors.New("unmapped"), 500, CodeInternalError},
	}
	s := testServer()

	for _, tt := range tests {
		rr := httptest.NewRecorder()
		s.handleDomainError(rr, fmt.Errorf("context: %w", tt.err))
		if rr.Code != tt.status {
			t.Errorf("%v: status = %d, want %d", tt.err, rr.Code, tt.status)
		}
	}
}

func TestSafeDomainMessage(t *testing.T) {
	wrapped := fmt.Errorf("HSET failed on node 2: %w", domain.ErrPoolExhausted)
	if got := safeDomainMessage(wrapped); got != domain.ErrPoolExhausted.Error() {
		t.Errorf("message = %q", got)
	}
	if got := safeDomainMessage(errors.New("rueidis: connection reset")); got != "internal error" {
		t.Errorf("unmapped message = %q, internals must not leak", got)
	}
}

func TestBatchErrorCode(t *testing.T) {
	if got := batchErrorCode(fmt.Errorf("bad id: %w", domain.ErrValidation)); got != CodeValidationFailed {
		t.Errorf("code = %s", got)
	}
	if got := batchErrorCode(errors.New("boom")); got != CodeInternalError {
		t.Errorf("code = %s", got)
	}
}
