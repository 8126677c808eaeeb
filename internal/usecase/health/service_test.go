package health

import (
	"context"
	"errors"
	"testing"
)

type mockChecker struct {
	err error
}

func (m *mockChecker) HealthCheck(_ context.Context) error { return m.err }

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockChecker{}, &mockChecker{}, &mockChecker{})

	report := svc.Check(context.Background())

	if report.Status != Healthy {
		t.Errorf("status = %s, want %s", report.Status, Healthy)
	}
	for _, name := range []string{"vector_store", "embedding", "generation"} {
		if report.Checks[name] != CheckOK {
			t.Errorf("%s = %s, want %s", name, report.Checks[name], CheckOK)
		}
	}
}

func TestCheck_EmbeddingDown_Degraded(t *testing.T) {
	svc := New(&mockChecker{}, &mockChecker{err: errors.New("provider unreachable")}, &mockChecker{})

	report := svc.Check(context.Background())

	if report.Status != Degraded {
		t.Errorf("status = %s, want %s", report.Status, Degraded)
	}
	if report.Checks["vector_store"] != CheckOK {
		t.Errorf("vector_store = %s", report.Checks["vector_store"])
	}
	if report.Checks["embedding"] != CheckError {
		t.Errorf("embedding = %s", report.Checks["embedding"])
	}
}

func TestCheck_GenerationDown_Degraded(t *testing.T) {
	svc := New(&mockChecker{}, &mockChecker{}, &mockChecker{err: errors.New("provider unreachable")})

	report := svc.Check(context.Background())

	if report.Status != Degraded {
		t.Errorf("status = %s, want %s", report.Status, Degraded)
	}
	if report.Checks["generation"] != CheckError {
		t.Errorf("generation = %s", report.Checks["generation"])
	}
}

func TestCheck_StoreDown_Unhealthy(t *testing.T) {
	svc := New(&mockChecker{err: errors.New("connection refused")}, &mockChecker{}, &mockChecker{})

	report := svc.Check(context.Background())

	if report.Status != Unhealthy {
		t.Errorf("status = %s, want %s", report.Status, Unhealthy)
	}
	if report.Checks["vector_store"] != CheckError {
		t.Errorf("vector_store = %s", report.Checks["vector_store"])
	}
}

func TestCheck_NilProviderCheckers(t *testing.T) {
	svc := New(&mockChecker{}, nil, nil)

	report := svc.Check(context.Background())

	if report.Status != Healthy {
		t.Errorf("status = %s, want %s", report.Status, Healthy)
	}
	if _, ok := report.Checks["embedding"]; ok {
		t.Error("embedding check should be absent when no checker is configured")
	}
	if _, ok := report.Checks["generation"]; ok {
		t.Error("generation check should be absent when no checker is configured")
	}
}

func TestCheck_BothProvidersDown_StillUnhealthyOnStore(t *testing.T) {
	svc := New(
		&mockChecker{err: errors.New("down")},
		&mockChecker{err: errors.New("down")},
		&mockChecker{err: errors.New("down")},
	)

	report := svc.Check(context.Background())

	if report.Status != Unhealthy {
		t.Errorf("status = %s, want %s", report.Status, Unhealthy)
	}
}
