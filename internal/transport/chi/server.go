package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/method"
	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/query"
	generateuc "github.com/kailas-cloud/ragpipe/internal/usecase/generate"
	healthuc "github.com/kailas-cloud/ragpipe/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/ragpipe/internal/usecase/ingest"
	retrievaluc "github.com/kailas-cloud/ragpipe/internal/usecase/retrieval"
	statsuc "github.com/kailas-cloud/ragpipe/internal/usecase/stats"
)

const maxBatchSize = 100

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Defaults are request parameter fallbacks applied when the client omits them.
type Defaults struct {
	Threshold float64
	Method    method.Method
}

// Server is the HTTP API over the pipeline use cases.
type Server struct {
	ingest        *ingestuc.Service
	retrieval     *retrievaluc.Service
	generate      *generateuc.Service
	stats         *statsuc.Service
	health        *healthuc.Service
	defaults      Defaults
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	ingest *ingestuc.Service,
	retrieval *retrievaluc.Service,
	generate *generateuc.Service,
	stats *statsuc.Service,
	health *healthuc.Service,
	defaults Defaults,
	logger *zap.Logger,
) *Server {
	if !defaults.Method.IsValid() {
		defaults.Method = method.Hybrid
	}
	s := &Server{
		ingest:    ingest,
		retrieval: retrieval,
		generate:  generate,
		stats:     stats,
		health:    health,
		defaults:  defaults,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, CodeDocumentNotFound),
		sentinelHandler(domain.ErrEmbedding, http.StatusBadGateway, CodeEmbeddingProviderError),
		sentinelHandler(domain.ErrGeneration, http.StatusBadGateway, CodeGenerationFailed),
		sentinelHandler(domain.ErrPoolExhausted, http.StatusServiceUnavailable, CodeStoreUnavailable),
		sentinelHandler(domain.ErrKeywordSearchNotSupported,
			http.StatusNotImplemented, CodeKeywordSearchNotSupported),
	}
	return s
}

// Routes registers all API routes on the router.
func (s *Server) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/documents", s.IngestDocument)
		r.Post("/documents/batch", s.IngestBatch)
		r.Delete("/documents/{id}", s.DeleteDocument)
		r.Post("/retrieve", s.Retrieve)
		r.Post("/query", s.Query)
		r.Get("/stats", s.Stats)
	})
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// IngestDocument handles POST /api/v1/documents.
func (s *Server) IngestDocument(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	out, err := s.ingest.Ingest(r.Context(), ingestInput(req))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, IngestResponse{
		DocumentID: out.DocumentID,
		Chunks:     out.Chunks,
		Tokens:     out.Tokens,
	})
}

// IngestBatch handles POST /api/v1/documents/batch.
func (s *Server) IngestBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchIngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if len(req.Documents) == 0 || len(req.Documents) > maxBatchSize {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			"documents count must be between 1 and 100")
		return
	}

	inputs := make([]ingestuc.Input, len(req.Documents))
	for i, d := range req.Documents {
		inputs[i] = ingestInput(d)
	}

	results := s.ingest.IngestBatch(r.Context(), inputs)

	succeeded, failed := 0, 0
	items := make([]BatchItemResponse, len(results))
	for i, res := range results {
		if res.Err != nil {
			failed++
			items[i] = BatchItemResponse{
				DocumentID: res.DocumentID,
				Status:     "error",
				Error: &ErrorResponse{
					Code:    batchErrorCode(res.Err),
					Message: safeDomainMessage(res.Err),
				},
			}
			continue
		}
		succeeded++
		items[i] = BatchItemResponse{
			DocumentID: res.DocumentID,
			Chunks:     res.Chunks,
			Status:     "ok",
		}
	}

	writeJSON(w, http.StatusOK, BatchIngestResponse{
		Items:     items,
		Succeeded: succeeded,
		Failed:    failed,
	})
}

// DeleteDocument handles DELETE /api/v1/documents/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.ingest.Delete(r.Context(), id); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Retrieve handles POST /api/v1/retrieve.
func (s *Server) Retrieve(w http.ResponseWriter, r *http.Request) {
	var req RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	q, err := s.buildQuery(req.Query, req.Method, req.TopK, req.Threshold, req.Source)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	res := s.retrieval.Retrieve(r.Context(), &q)

	chunks := make([]ChunkResponse, len(res.Chunks()))
	for i, c := range res.Chunks() {
		chunks[i] = ChunkResponse{
			ChunkID:      c.ID(),
			DocumentID:   c.DocumentID(),
			Text:         c.Text(),
			Source:       c.Source(),
			Title:        c.Title(),
			Score:        c.Similarity(),
			KeywordScore: c.KeywordScore(),
		}
	}

	writeJSON(w, http.StatusOK, RetrieveResponse{
		Chunks:     chunks,
		Confidence: res.Confidence(),
		Outcome:    string(res.Outcome()),
		Reason:     res.Reason(),
		ElapsedMS:  res.ElapsedMS(),
	})
}

// Query handles POST /api/v1/query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	q, err := s.buildQuery(req.Question, req.Method, req.TopK, req.Threshold, req.Source)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	answer, err := s.generate.Query(r.Context(), &q)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	citations := make([]CitationResponse, len(answer.Citations))
	for i, c := range answer.Citations {
		citations[i] = CitationResponse{
			ChunkID:    c.ChunkID,
			DocumentID: c.DocumentID,
			Source:     c.Source,
			Title:      c.Title,
			Score:      c.Score,
		}
	}

	writeJSON(w, http.StatusOK, QueryResponse{
		Answer:     answer.Text,
		Model:      answer.Model,
		Citations:  citations,
		Confidence: answer.Confidence,
		Outcome:    string(answer.Outcome),
		Reason:     answer.Reason,
		Partial:    answer.Partial,
		ElapsedMS:  answer.ElapsedMS,
	})
}

// Stats handles GET /api/v1/stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	report, err := s.stats.Collect(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		TotalDocuments: report.TotalDocuments,
		TotalChunks:    report.TotalChunks,
		TextBytes:      report.TextBytes,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) buildQuery(
	text, methodStr string, topK *int, threshold *float64, source string,
) (query.Query, error) {
	m := s.defaults.Method
	if methodStr != "" {
		parsed, ok := method.Parse(methodStr)
		if !ok {
			return query.Query{}, fmt.Errorf(
				"method must be hybrid, vector or keyword: %w", domain.ErrValidation)
		}
		m = parsed
	}

	k := 0
	if topK != nil {
		k = *topK
	}
	th := s.defaults.Threshold
	if threshold != nil {
		th = *threshold
	}

	return query.New(text, m, k, th, source)
}

func ingestInput(req IngestRequest) ingestuc.Input {
	return ingestuc.Input{
		ID:       req.ID,
		Content:  req.Content,
		Source:   req.Source,
		Title:    req.Title,
		Author:   req.Author,
		OriginID: req.OriginID,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrValidation,
		domain.ErrDocumentNotFound,
		domain.ErrEmbedding,
		domain.ErrGeneration,
		domain.ErrPoolExhausted,
		domain.ErrKeywordSearchNotSupported,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func batchErrorCode(err error) ErrorCode {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return CodeValidationFailed
	case errors.Is(err, domain.ErrEmbedding):
		return CodeEmbeddingProviderError
	case errors.Is(err, domain.ErrPoolExhausted):
		return CodeStoreUnavailable
	default:
		return CodeInternalError
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
