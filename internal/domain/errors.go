package domain

import "errors"

var (
	// ErrValidation signals bad caller input (empty content, missing source, invalid top_k).
	ErrValidation = errors.New("validation failed")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrEmbedding signals an embedding provider failure (unreachable, timeout).
	ErrEmbedding = errors.New("embedding provider error")
	// ErrVectorStore signals a vector store failure (connection, corrupt index).
	ErrVectorStore = errors.New("vector store error")
	// ErrPoolExhausted signals that no pooled connection became available in time.
	ErrPoolExhausted = errors.New("connection pool exhausted")
	// ErrGeneration signals a generation model failure after retries.
	ErrGeneration = errors.New("generation model error")
	// ErrKeywordSearchNotSupported signals that the backend lacks keyword search.
	ErrKeywordSearchNotSupported = errors.New("keyword search not supported by backend")
)
