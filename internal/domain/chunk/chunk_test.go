package chunk

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/document"
)

func makeDoc(t *testing.T, id, content string) document.Document {
	t.Helper()
	doc, err := document.New(id, content, "test-src", "Title", "", "", 0)
	if err != nil {
		t.Fatalf("document.New: %v", err)
	}
	return doc
}

func TestID_Deterministic(t *testing.T) {
	a := ID("doc-1", 0)
	b := ID("doc-1", 0)
	if a != b {
		t.Fatalf("expected identical IDs, got %s and %s", a, b)
	}
	if len(a) != 32 {
		t.Fatalf("expected 32-char ID, got %d", len(a))
	}
	if a == ID("doc-1", 1) {
		t.Error("different indexes must produce different IDs")
	}
	if a == ID("doc-2", 0) {
		t.Error("different documents must produce different IDs")
	}
}

func TestSplit_ShortDocument(t *testing.T) {
	doc := makeDoc(t, "doc-1", "short content")

	chunks, err := Split(&doc, 1000, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text() != "short content" {
		t.Errorf("unexpected chunk text: %q", chunks[0].Text())
	}
	if chunks[0].Offset() != 0 || chunks[0].Index() != 0 {
		t.Errorf("unexpected offset/index: %d/%d", chunks[0].Offset(), chunks[0].Index())
	}
}

func TestSplit_OverlapAndOffsets(t *testing.T) {
	content := strings.Repeat("a", 4000)
	doc := makeDoc(t, "doc-1", content)

	chunks, err := Split(&doc, 1000, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 5 {
		t.Fatalf("expected 5 chunks, got %d", len(chunks))
	}

	wantOffsets := []int{0, 900, 1800, 2700, 3600}
	for i, c := range chunks {
		if c.Offset() != wantOffsets[i] {
			t.Errorf("chunk %d: offset = %d, want %d", i, c.Offset(), wantOffsets[i])
		}
		if c.Index() != i {
			t.Errorf("chunk %d: index = %d", i, c.Index())
		}
	}
	if len(chunks[4].Text()) != 400 {
		t.Errorf("final chunk length = %d, want 400", len(chunks[4].Text()))
	}
}

func TestSplit_Reconstruction(t *testing.T) {
	content := "The quick brown fox jumps over the lazy dog. " + strings.Repeat("x", 500)
	doc := makeDoc(t, "doc-1", content)

	overlap := 20
	chunks, err := Split(&doc, 100, overlap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var b strings.Builder
	for i, c := range chunks {
		if i == 0 {
			b.WriteString(c.Text())
			continue
		}
		b.WriteString(c.Text()[overlap:])
	}
	if b.String() != content {
		t.Error("concatenated non-overlap text does not reconstruct the document")
	}
}

func TestSplit_MultiByteContent(t *testing.T) {
	content := strings.Repeat("я", 1500) // 2 bytes per rune
	doc := makeDoc(t, "doc-1", content)

	chunks, err := Split(&doc, 1001, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prevEnd := 0
	for i, c := range chunks {
		if !utf8.ValidString(c.Text()) {
			t.Errorf("chunk %d text is invalid UTF-8", i)
		}
		if content[c.Offset():c.Offset()+len(c.Text())] != c.Text() {
			t.Errorf("chunk %d text does not match content at its offset", i)
		}
		if i > 0 && c.Offset() > prevEnd {
			t.Errorf("chunk %d leaves a gap: offset %d after previous end %d", i, c.Offset(), prevEnd)
		}
		prevEnd = c.Offset() + len(c.Text())
	}
	if prevEnd != len(content) {
		t.Errorf("chunks cover %d bytes, want %d", prevEnd, len(content))
	}
}

func TestSplit_MixedWidthBoundaries(t *testing.T) {
	content := strings.Repeat("a", 95) + "héllo wörld 漢字" + strings.Repeat("b", 200)
	doc := makeDoc(t, "doc-1", content)

	chunks, err := Split(&doc, 100, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var b strings.Builder
	for i, c := range chunks {
		if !utf8.ValidString(c.Text()) {
			t.Fatalf("chunk %d text is invalid UTF-8: %q", i, c.Text())
		}
		if i == 0 {
			b.WriteString(c.Text())
			continue
		}
		prev := chunks[i-1]
		b.WriteString(c.Text()[prev.Offset()+len(prev.Text())-c.Offset():])
	}
	if b.String() != content {
		t.Error("concatenated non-overlap text does not reconstruct the document")
	}
}

func TestSplit_ChunkMetadataInherited(t *testing.T) {
	doc := makeDoc(t, "doc-7", strings.Repeat("b", 150))

	chunks, err := Split(&doc, 100, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, c := range chunks {
		if c.DocumentID() != "doc-7" {
			t.Errorf("chunk %d: document ID = %q", i, c.DocumentID())
		}
		if c.Source() != "test-src" || c.Title() != "Title" {
			t.Errorf("chunk %d: source/title not inherited", i)
		}
		if c.ChunkID() != ID("doc-7", i) {
			t.Errorf("chunk %d: unexpected ID", i)
		}
	}
}

func TestSplit_InvalidParams(t *testing.T) {
	doc := makeDoc(t, "doc-1", "content")

	cases := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -1, 0},
		{"negative overlap", 100, -1},
		{"overlap equals size", 100, 100},
		{"overlap above size", 100, 150},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Split(&doc, tc.size, tc.overlap); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}
