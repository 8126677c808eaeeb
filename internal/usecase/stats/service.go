package stats

import (
	"context"

	"github.com/kailas-cloud/ragpipe/internal/repository/vectorstore"
)

// StoreStats reads storage-level counters.
type StoreStats interface {
	Stats(ctx context.Context) (vectorstore.Stats, error)
}

// Report is the operator-facing pipeline summary.
type Report struct {
	TotalDocuments int
	TotalChunks    int
	TextBytes      int64
}

// Service exposes pipeline statistics.
type Service struct {
	store StoreStats
}

// New creates a stats service.
func New(store StoreStats) *Service {
	return &Service{store: store}
}

// Collect gathers current pipeline statistics.
func (s *Service) Collect(ctx context.Context) (Report, error) {
	st, err := s.store.Stats(ctx)
	if err != nil {
		return Report{}, err
	}
	return Report{
		TotalDocuments: st.TotalDocuments,
		TotalChunks:    st.TotalChunks,
		TextBytes:      st.TextBytes,
	}, nil
}
