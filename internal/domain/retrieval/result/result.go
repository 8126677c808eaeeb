package result

// Outcome tags how a retrieval result was produced, so callers can tell a
// genuine result from fallback output instead of silently trusting it.
type Outcome string

const (
	// OK means the requested method ran to completion.
	OK Outcome = "ok"
	// Degraded means a fallback path or partial sub-query produced the result.
	Degraded Outcome = "degraded"
	// Failed means every path failed; the result is empty with zero confidence.
	Failed Outcome = "failed"
)

// Chunk is a single retrieved chunk with its scores. Never persisted.
type Chunk struct {
	id           string
	documentID   string
	text         string
	source       string
	title        string
	similarity   float64
	keywordScore float64
}

// NewChunk creates a retrieved chunk reference.
func NewChunk(id, documentID, text, source, title string, similarity, keywordScore float64) Chunk {
	return Chunk{
		id:           id,
		documentID:   documentID,
		text:         text,
		source:       source,
		title:        title,
		similarity:   similarity,
		keywordScore: keywordScore,
	}
}

// ID returns the chunk identifier.
func (c *Chunk) ID() string { return c.id }

// DocumentID returns the owning document identifier.
func (c *Chunk) DocumentID() string { return c.documentID }

// Text returns the chunk text.
func (c *Chunk) Text() string { return c.text }

// Source returns the chunk source tag.
func (c *Chunk) Source() string { return c.source }

// Title returns the chunk title.
func (c *Chunk) Title() string { return c.title }

// Similarity returns the combined relevance score in [0,1].
func (c *Chunk) Similarity() float64 { return c.similarity }

// KeywordScore returns the raw keyword score (0 when the chunk came from
// vector search only).
func (c *Chunk) KeywordScore() float64 { return c.keywordScore }

// Result is a completed retrieval with its confidence and provenance.
type Result struct {
	chunks     []Chunk
	confidence float64
	outcome    Outcome
	reason     string
	elapsedMS  int64
}

// New creates a retrieval result.
func New(chunks []Chunk, confidence float64, outcome Outcome, reason string, elapsedMS int64) Result {
	return Result{chunks: chunks, confidence: confidence, outcome: outcome, reason: reason, elapsedMS: elapsedMS}
}

// Empty creates a failed result carrying only the failure reason.
func Empty(reason string, elapsedMS int64) Result {
	return Result{outcome: Failed, reason: reason, elapsedMS: elapsedMS}
}

// Chunks returns the ranked chunks.
func (r *Result) Chunks() []Chunk { return r.chunks }

// Confidence returns the [0,1] confidence estimate.
func (r *Result) Confidence() float64 { return r.confidence }

// Outcome returns the provenance tag.
func (r *Result) Outcome() Outcome { return r.outcome }

// Reason returns the degradation or failure reason ("" when OK).
func (r *Result) Reason() string { return r.reason }

// ElapsedMS returns processing time in milliseconds.
func (r *Result) ElapsedMS() int64 { return r.elapsedMS }
