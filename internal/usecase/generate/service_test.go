package generate

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/method"
	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/query"
	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/result"
)

// --- Mocks ---

type mockRetriever struct {
	res result.Result
}

func (m *mockRetriever) Retrieve(_ context.Context, _ *query.Query) result.Result {
	return m.res
}

type mockGenerator struct {
	answer     string
	err        error
	calls      int
	lastPrompt string
}

func (m *mockGenerator) Generate(_ context.Context, _, userPrompt string) (string, error) {
	m.calls++
	m.lastPrompt = userPrompt
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

func (m *mockGenerator) Model() string { return "test-model" }

func makeChunk(id, text string, score float64) result.Chunk {
	return result.NewChunk(id, "doc-1", text, "wiki", "Page", score, 0)
}

func makeQuery(t *testing.T) query.Query {
	t.Helper()
	q, err := query.New("what is kubernetes", method.Hybrid, 5, 0, "")
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	return q
}

func okResult(chunks ...result.Chunk) result.Result {
	return result.New(chunks, 0.8, result.OK, "", 10)
}

// --- Query tests ---

func TestQuery_Success(t *testing.T) {
	ret := &mockRetriever{res: okResult(
		makeChunk("a", "Kubernetes is a container orchestrator.", 0.9),
		makeChunk("b", "It schedules pods onto nodes.", 0.7),
	)}
	gen := &mockGenerator{answer: "Kubernetes orchestrates containers [Source 1]."}
	svc := New(ret, gen, 0)

	q := makeQuery(t)
	ans, err := svc.Query(context.Background(), &q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ans.Text != gen.answer {
		t.Errorf("answer = %q", ans.Text)
	}
	if ans.Model != "test-model" {
		t.Errorf("model = %q", ans.Model)
	}
	if len(ans.Citations) != 2 {
		t.Fatalf("got %d citations, want 2", len(ans.Citations))
	}
	if ans.Citations[0].ChunkID != "a" || ans.Citations[0].Score != 0.9 {
		t.Error("citation does not reference the retrieved chunk")
	}
	if ans.Confidence != 0.8 {
		t.Errorf("confidence = %f, want inherited 0.8", ans.Confidence)
	}
	if !strings.Contains(gen.lastPrompt, "[Source 1]") || !strings.Contains(gen.lastPrompt, "what is kubernetes") {
		t.Error("prompt missing context tags or question")
	}
}

func TestQuery_EmptyRetrievalSkipsModel(t *testing.T) {
	ret := &mockRetriever{res: result.Empty("both search paths failed", 5)}
	gen := &mockGenerator{answer: "should not be called"}
	svc := New(ret, gen, 0)

	q := makeQuery(t)
	ans, err := svc.Query(context.Background(), &q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gen.calls != 0 {
		t.Fatal("model called despite empty retrieval")
	}
	if ans.Text != noContextAnswer {
		t.Errorf("answer = %q", ans.Text)
	}
	if ans.Confidence != 0 || len(ans.Citations) != 0 {
		t.Error("empty retrieval must yield zero confidence and no citations")
	}
}

func TestQuery_GenerationFailureReturnsSources(t *testing.T) {
	ret := &mockRetriever{res: okResult(makeChunk("a", "context text", 0.9))}
	gen := &mockGenerator{err: domain.ErrGeneration}
	svc := New(ret, gen, 0)

	q := makeQuery(t)
	ans, err := svc.Query(context.Background(), &q)
	if err != nil {
		t.Fatalf("generation failure must not surface as error, got %v", err)
	}

	if !ans.Partial {
		t.Error("expected partial answer")
	}
	if ans.Text != "" {
		t.Errorf("partial answer must have no text, got %q", ans.Text)
	}
	if len(ans.Citations) != 1 {
		t.Error("partial answer must keep citations")
	}
	if ans.Outcome != result.Degraded {
		t.Errorf("outcome = %s, want degraded", ans.Outcome)
	}
}

func TestQuery_UncertaintyDiscountsConfidence(t *testing.T) {
	ret := &mockRetriever{res: okResult(makeChunk("a", "unrelated text", 0.8))}
	gen := &mockGenerator{answer: "I don't have enough information to answer this question."}
	svc := New(ret, gen, 0)

	q := makeQuery(t)
	ans, err := svc.Query(context.Background(), &q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Confidence != 0.4 {
		t.Errorf("confidence = %f, want 0.8*0.5", ans.Confidence)
	}
}

func TestQuery_ContextBudgetLimitsCitations(t *testing.T) {
	ret := &mockRetriever{res: okResult(
		makeChunk("a", strings.Repeat("a", 50), 0.9),
		makeChunk("b", strings.Repeat("b", 50), 0.8),
		makeChunk("c", strings.Repeat("c", 50), 0.7),
	)}
	gen := &mockGenerator{answer: "answer"}
	svc := New(ret, gen, 160)

	q := makeQuery(t)
	ans, err := svc.Query(context.Background(), &q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Each rendered block is 76 chars (50 text + 26 header), so only the
	// first two fit the 160-char budget.
	if len(ans.Citations) != 2 {
		t.Fatalf("got %d citations, want 2", len(ans.Citations))
	}
	if strings.Contains(gen.lastPrompt, "ccccc") {
		t.Error("excluded chunk leaked into the prompt")
	}
}

// --- Context assembly ---

func TestFitContext_TruncatesOversizedFirstChunk(t *testing.T) {
	text := "First sentence here. Second sentence follows. " + strings.Repeat("x", 200)
	chunks := []result.Chunk{makeChunk("a", text, 0.9)}

	fitted := fitContext(chunks, 60)
	if len(fitted) != 1 {
		t.Fatalf("got %d chunks, want 1", len(fitted))
	}
	got := fitted[0].Text()
	if len(got) > 60 {
		t.Fatalf("truncated chunk too long: %d", len(got))
	}
	if !strings.HasSuffix(got, ".") {
		t.Errorf("expected sentence boundary cut, got %q", got)
	}
}

func TestFitContext_HardCutWithoutBoundary(t *testing.T) {
	chunks := []result.Chunk{makeChunk("a", strings.Repeat("x", 500), 0.9)}

	// The 100-char budget covers the rendered block: 26 chars of source
	// header leave 74 for text.
	fitted := fitContext(chunks, 100)
	if len(fitted[0].Text()) != 74 {
		t.Errorf("hard cut length = %d, want 74", len(fitted[0].Text()))
	}
}

func TestFitContext_BudgetCoversRenderedBlocks(t *testing.T) {
	chunks := []result.Chunk{
		makeChunk("a", strings.Repeat("a", 50), 0.9),
		makeChunk("b", strings.Repeat("b", 50), 0.8),
	}

	// Text alone is exactly 100 chars, but each block renders to 76; the
	// budget must bound what buildUserPrompt actually emits.
	fitted := fitContext(chunks, 100)
	if len(fitted) != 1 {
		t.Fatalf("got %d chunks, want 1", len(fitted))
	}

	rendered := buildUserPrompt(fitted, "q")
	contextPart := strings.TrimPrefix(rendered, "Context:\n\n")
	contextPart = strings.TrimSuffix(contextPart, "Question: q")
	if len(contextPart) > 100 {
		t.Errorf("rendered context is %d chars, budget 100", len(contextPart))
	}
}

func TestTruncateAtSentence_MultiByte(t *testing.T) {
	text := strings.Repeat("я", 100) // 200 bytes, no sentence boundary

	got := truncateAtSentence(text, 151)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated text is invalid UTF-8: %q", got)
	}
	if len(got) != 150 {
		t.Errorf("cut length = %d, want 150 (snapped to rune start)", len(got))
	}
}

func TestSoundsUncertain(t *testing.T) {
	cases := []struct {
		answer string
		want   bool
	}{
		{"Kubernetes is an orchestrator.", false},
		{"I don't know the answer to that.", true},
		{"The context contains insufficient information.", true},
		{"I cannot answer this based on the context.", true},
	}
	for _, tc := range cases {
		if got := soundsUncertain(tc.answer); got != tc.want {
			t.Errorf("soundsUncertain(%q) = %v, want %v", tc.answer, got, tc.want)
		}
	}
}
