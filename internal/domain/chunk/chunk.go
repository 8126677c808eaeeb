package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/document"
)

// Default splitting parameters.
const (
	DefaultSize    = 1000
	DefaultOverlap = 100
)

// Chunk is a bounded contiguous slice of a document, the atomic retrieval unit.
// ID is derived from (document ID, index), so re-splitting the same document
// always produces the same chunk IDs.
type Chunk struct {
	id         string
	documentID string
	index      int
	offset     int
	text       string
	source     string
	title      string
}

// ID derives a deterministic chunk identifier from document ID and chunk index.
func ID(documentID string, index int) string {
	h := sha256.Sum256([]byte(documentID + ":" + strconv.Itoa(index)))
	return hex.EncodeToString(h[:])[:32]
}

// New creates a chunk with a derived ID.
func New(documentID string, index, offset int, text, source, title string) Chunk {
	return Chunk{
		id:         ID(documentID, index),
		documentID: documentID,
		index:      index,
		offset:     offset,
		text:       text,
		source:     source,
		title:      title,
	}
}

// Reconstruct creates a chunk from stored fields without re-deriving the ID.
func Reconstruct(id, documentID string, index, offset int, text, source, title string) Chunk {
	return Chunk{
		id:         id,
		documentID: documentID,
		index:      index,
		offset:     offset,
		text:       text,
		source:     source,
		title:      title,
	}
}

// ChunkID returns the chunk identifier.
func (c *Chunk) ChunkID() string { return c.id }

// DocumentID returns the owning document identifier.
func (c *Chunk) DocumentID() string { return c.documentID }

// Index returns the zero-based position of the chunk within the document.
func (c *Chunk) Index() int { return c.index }

// Offset returns the character offset of the chunk start in the document.
func (c *Chunk) Offset() int { return c.offset }

// Text returns the chunk text.
func (c *Chunk) Text() string { return c.text }

// Source returns the inherited document source tag.
func (c *Chunk) Source() string { return c.source }

// Title returns the inherited document title.
func (c *Chunk) Title() string { return c.title }

// Split cuts document content into chunks of at most size characters where each
// chunk shares the trailing overlap characters with its predecessor. The final
// chunk may be shorter. Concatenating each chunk's non-overlap text reconstructs
// the document.
func Split(doc *document.Document, size, overlap int) ([]Chunk, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive: %w", domain.ErrValidation)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, size): %w", domain.ErrValidation)
	}

	content := doc.Content()
	step := size - overlap

	chunks := make([]Chunk, 0, len(content)/step+1)
	for start, index := 0, 0; start < len(content); index++ {
		end := start + size
		if end > len(content) {
			end = len(content)
		} else {
			end = snapToRuneStart(content, end)
			if end <= start {
				_, n := utf8.DecodeRuneInString(content[start:])
				end = start + n
			}
		}
		chunks = append(chunks, New(doc.ID(), index, start, content[start:end], doc.Source(), doc.Title()))
		if end == len(content) {
			break
		}
		next := snapToRuneStart(content, start+step)
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks, nil
}

// snapToRuneStart backs a byte position up to the nearest rune start so slices
// never cut a multi-byte character.
func snapToRuneStart(s string, pos int) int {
	for pos > 0 && !utf8.RuneStart(s[pos]) {
		pos--
	}
	return pos
}
