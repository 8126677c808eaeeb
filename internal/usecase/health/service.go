package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure: the store is up but a provider is not.
	Degraded Status = "degraded"
	// Unhealthy indicates the vector store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	store      StoreChecker
	embedding  EmbeddingChecker
	generation GenerationChecker
}

// New creates a Service. embedding and generation can be nil.
func New(store StoreChecker, embedding EmbeddingChecker, generation GenerationChecker) *Service {
	return &Service{store: store, embedding: embedding, generation: generation}
}

// Check runs health checks against all components. The store is the backbone:
// its failure makes the service unhealthy, a provider failure only degrades it.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	storeOK := true
	if err := s.store.HealthCheck(ctx); err != nil {
		checks["vector_store"] = CheckError
		storeOK = false
	} else {
		checks["vector_store"] = CheckOK
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	if s.generation != nil {
		if err := s.generation.HealthCheck(ctx); err != nil {
			checks["generation"] = CheckError
		} else {
			checks["generation"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if !storeOK {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}
