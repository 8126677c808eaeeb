package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/chunk"
	"github.com/kailas-cloud/ragpipe/internal/domain/document"
)

// --- Mocks ---

type replaceCall struct {
	docID   string
	chunks  []chunk.Chunk
	vectors [][]float32
}

type mockStore struct {
	replaceErr error
	deleteErr  error
	replaces   []replaceCall
	deleted    []string
}

func (m *mockStore) ReplaceDocument(
	_ context.Context, doc *document.Document, chunks []chunk.Chunk, vectors [][]float32,
) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.replaces = append(m.replaces, replaceCall{docID: doc.ID(), chunks: chunks, vectors: vectors})
	return nil
}

func (m *mockStore) DeleteDocument(_ context.Context, documentID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, documentID)
	return nil
}

type mockEmbedder struct {
	err   error
	calls int
	texts []string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	m.texts = append(m.texts, text)
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 2, 3}, TotalTokens: 7}, nil
}

// --- Ingest tests ---

func TestIngest_Success(t *testing.T) {
	store := &mockStore{}
	embed := &mockEmbedder{}
	svc := New(store, embed, 100, 10)

	out, err := svc.Ingest(context.Background(), Input{
		ID:      "doc-1",
		Content: strings.Repeat("a", 250),
		Source:  "wiki",
		Title:   "Page",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.DocumentID != "doc-1" {
		t.Errorf("document ID = %q", out.DocumentID)
	}
	// 250 chars, size 100, step 90: offsets 0, 90, 180.
	if out.Chunks != 3 {
		t.Fatalf("chunks = %d, want 3", out.Chunks)
	}
	if len(store.replaces) != 1 {
		t.Fatalf("store called %d times", len(store.replaces))
	}
	call := store.replaces[0]
	if len(call.chunks) != 3 || len(call.vectors) != 3 {
		t.Error("chunks and vectors not forwarded to store")
	}
	if embed.texts[0] != call.chunks[0].Text() {
		t.Error("embedded text does not match chunk text")
	}
	if out.Tokens != 3*7 {
		t.Errorf("tokens = %d, want 21", out.Tokens)
	}
}

func TestIngest_GeneratesUUIDWhenIDMissing(t *testing.T) {
	store := &mockStore{}
	svc := New(store, &mockEmbedder{}, 100, 10)

	out, err := svc.Ingest(context.Background(), Input{Content: "hello", Source: "wiki"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.DocumentID == "" {
		t.Fatal("expected generated document ID")
	}
	if len(out.DocumentID) != 36 {
		t.Errorf("expected UUID format, got %q", out.DocumentID)
	}
}

func TestIngest_ValidationFailure(t *testing.T) {
	svc := New(&mockStore{}, &mockEmbedder{}, 100, 10)

	cases := []struct {
		name string
		in   Input
	}{
		{"missing content", Input{ID: "doc-1", Source: "wiki"}},
		{"missing source", Input{ID: "doc-1", Content: "text"}},
		{"bad id", Input{ID: "doc/1", Content: "text", Source: "wiki"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Ingest(context.Background(), tc.in); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestIngest_EmbedderFailure(t *testing.T) {
	store := &mockStore{}
	svc := New(store, &mockEmbedder{err: domain.ErrEmbedding}, 100, 10)

	_, err := svc.Ingest(context.Background(), Input{ID: "doc-1", Content: "text", Source: "wiki"})
	if !errors.Is(err, domain.ErrEmbedding) {
		t.Fatalf("expected ErrEmbedding, got %v", err)
	}
	if len(store.replaces) != 0 {
		t.Error("store must not be written when embedding fails")
	}
}

// --- Batch tests ---

func TestIngestBatch_IsolatesFailures(t *testing.T) {
	store := &mockStore{}
	svc := New(store, &mockEmbedder{}, 100, 10)

	items := svc.IngestBatch(context.Background(), []Input{
		{ID: "doc-1", Content: "first", Source: "wiki"},
		{ID: "doc-2", Content: "", Source: "wiki"}, // invalid
		{ID: "doc-3", Content: "third", Source: "wiki"},
	})

	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	if items[0].Err != nil || items[2].Err != nil {
		t.Error("valid documents must succeed")
	}
	if !errors.Is(items[1].Err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation for item 1, got %v", items[1].Err)
	}
	if len(store.replaces) != 2 {
		t.Errorf("store called %d times, want 2", len(store.replaces))
	}
}

// --- Delete tests ---

func TestDelete(t *testing.T) {
	store := &mockStore{}
	svc := New(store, &mockEmbedder{}, 100, 10)

	if err := svc.Delete(context.Background(), "doc-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "doc-1" {
		t.Error("delete not forwarded to store")
	}

	if err := svc.Delete(context.Background(), ""); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation for empty ID, got %v", err)
	}

	store.deleteErr = domain.ErrDocumentNotFound
	if err := svc.Delete(context.Background(), "missing"); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}
