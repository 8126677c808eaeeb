package document

import (
	"fmt"
	"regexp"

	"github.com/kailas-cloud/ragpipe/internal/domain"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// MaxContentSize is the maximum document content size in bytes.
const MaxContentSize = 1 << 20 // 1MB

// Document is the ingestion aggregate (immutable value object).
// Re-ingesting the same ID produces a new version that overwrites prior chunks.
type Document struct {
	id        string
	content   string
	source    string
	title     string
	author    string
	originID  string
	createdAt int64 // unix millis
}

// New validates and creates a Document.
// ID: ^[a-zA-Z0-9_-]+$, 1-256 chars. Content and source are required.
func New(id, content, source, title, author, originID string, createdAt int64) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required: %w", domain.ErrValidation)
	}
	if len(id) > 256 {
		return Document{}, fmt.Errorf("document ID too long (max 256): %w", domain.ErrValidation)
	}
	if !idRegex.MatchString(id) {
		return Document{}, fmt.Errorf(
			"document ID must be alphanumeric with underscores and hyphens: %w", domain.ErrValidation,
		)
	}
	if content == "" {
		return Document{}, fmt.Errorf("content is required: %w", domain.ErrValidation)
	}
	if len(content) > MaxContentSize {
		return Document{}, fmt.Errorf("content too large (max %d bytes): %w", MaxContentSize, domain.ErrValidation)
	}
	if source == "" {
		return Document{}, fmt.Errorf("source is required: %w", domain.ErrValidation)
	}

	return Document{
		id:        id,
		content:   content,
		source:    source,
		title:     title,
		author:    author,
		originID:  originID,
		createdAt: createdAt,
	}, nil
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Content returns the raw document text.
func (d *Document) Content() string { return d.content }

// Source returns the source tag (which collaborator supplied the document).
func (d *Document) Source() string { return d.source }

// Title returns the document title.
func (d *Document) Title() string { return d.title }

// Author returns the document author.
func (d *Document) Author() string { return d.author }

// OriginID returns the identifier in the originating system.
func (d *Document) OriginID() string { return d.originID }

// CreatedAt returns the creation timestamp in unix millis.
func (d *Document) CreatedAt() int64 { return d.createdAt }
