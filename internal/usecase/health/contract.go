package health

import "context"

// StoreChecker checks vector store availability.
type StoreChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// GenerationChecker checks generation provider availability.
type GenerationChecker interface {
	HealthCheck(ctx context.Context) error
}
