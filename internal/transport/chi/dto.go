package chi

// ErrorCode is a machine-readable API error code.
type ErrorCode string

// API error codes.
const (
	CodeBadRequest                ErrorCode = "bad_request"
	CodeValidationFailed          ErrorCode = "validation_failed"
	CodeDocumentNotFound          ErrorCode = "document_not_found"
	CodeEmbeddingProviderError    ErrorCode = "embedding_provider_error"
	CodeGenerationFailed          ErrorCode = "generation_failed"
	CodeStoreUnavailable          ErrorCode = "store_unavailable"
	CodeKeywordSearchNotSupported ErrorCode = "keyword_search_not_supported"
	CodeInternalError             ErrorCode = "internal_error"
)

// ErrorResponse is the uniform API error body.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// IngestRequest is one document to ingest. ID is optional.
type IngestRequest struct {
	ID       string `json:"id,omitempty"`
	Content  string `json:"content"`
	Source   string `json:"source"`
	Title    string `json:"title,omitempty"`
	Author   string `json:"author,omitempty"`
	OriginID string `json:"origin_id,omitempty"`
}

// IngestResponse reports a completed ingestion.
type IngestResponse struct {
	DocumentID string `json:"document_id"`
	Chunks     int    `json:"chunks"`
	Tokens     int    `json:"tokens"`
}

// BatchIngestRequest carries up to maxBatchSize documents.
type BatchIngestRequest struct {
	Documents []IngestRequest `json:"documents"`
}

// BatchItemResponse is the outcome of one document in a batch.
type BatchItemResponse struct {
	DocumentID string         `json:"document_id,omitempty"`
	Chunks     int            `json:"chunks,omitempty"`
	Status     string         `json:"status"`
	Error      *ErrorResponse `json:"error,omitempty"`
}

// BatchIngestResponse aggregates per-document batch outcomes.
type BatchIngestResponse struct {
	Items     []BatchItemResponse `json:"items"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
}

// RetrieveRequest asks for chunks relevant to a query.
type RetrieveRequest struct {
	Query     string   `json:"query"`
	Method    string   `json:"method,omitempty"`
	TopK      *int     `json:"top_k,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
	Source    string   `json:"source,omitempty"`
}

// ChunkResponse is one retrieved chunk.
type ChunkResponse struct {
	ChunkID      string  `json:"chunk_id"`
	DocumentID   string  `json:"document_id"`
	Text         string  `json:"text"`
	Source       string  `json:"source"`
	Title        string  `json:"title,omitempty"`
	Score        float64 `json:"score"`
	KeywordScore float64 `json:"keyword_score,omitempty"`
}

// RetrieveResponse is a tagged retrieval result.
type RetrieveResponse struct {
	Chunks     []ChunkResponse `json:"chunks"`
	Confidence float64         `json:"confidence"`
	Outcome    string          `json:"outcome"`
	Reason     string          `json:"reason,omitempty"`
	ElapsedMS  int64           `json:"elapsed_ms"`
}

// QueryRequest asks for a grounded generated answer.
type QueryRequest struct {
	Question  string   `json:"question"`
	Method    string   `json:"method,omitempty"`
	TopK      *int     `json:"top_k,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
	Source    string   `json:"source,omitempty"`
}

// CitationResponse points the answer to a context chunk.
type CitationResponse struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Source     string  `json:"source"`
	Title      string  `json:"title,omitempty"`
	Score      float64 `json:"score"`
}

// QueryResponse is a generated answer with its provenance.
type QueryResponse struct {
	Answer     string             `json:"answer"`
	Model      string             `json:"model"`
	Citations  []CitationResponse `json:"citations"`
	Confidence float64            `json:"confidence"`
	Outcome    string             `json:"outcome"`
	Reason     string             `json:"reason,omitempty"`
	Partial    bool               `json:"partial,omitempty"`
	ElapsedMS  int64              `json:"elapsed_ms"`
}

// StatsResponse is the operator stats summary.
type StatsResponse struct {
	TotalDocuments int   `json:"total_documents"`
	TotalChunks    int   `json:"total_chunks"`
	TextBytes      int64 `json:"text_bytes"`
}

// HealthResponse reports aggregated component health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
