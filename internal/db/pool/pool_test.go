package pool

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeConn struct {
	pingErr error
	closed  bool
}

func (c *fakeConn) Ping(_ context.Context) error { return c.pingErr }
func (c *fakeConn) Close()                       { c.closed = true }

func newTestPool(t *testing.T, size int, dial Dialer) *Pool {
	t.Helper()
	p, err := New(Config{
		Size:           size,
		AcquireTimeout: 50 * time.Millisecond,
		PingTimeout:    50 * time.Millisecond,
	}, dial, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestNew_InvalidConfig(t *testing.T) {
	if _, err := New(Config{Size: 0}, func() (Conn, error) { return &fakeConn{}, nil }, nil); err == nil {
		t.Error("expected error for zero size")
	}
	if _, err := New(Config{Size: 1}, nil, nil); err == nil {
		t.Error("expected error for nil dialer")
	}
}

func TestAcquire_LazyDial(t *testing.T) {
	dials := 0
	p := newTestPool(t, 2, func() (Conn, error) {
		dials++
		return &fakeConn{}, nil
	})
	defer p.Close()

	if dials != 0 {
		t.Fatalf("expected no dials before first acquire, got %d", dials)
	}

	conn, release, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conn == nil || dials != 1 {
		t.Fatalf("expected one dialed connection, got dials=%d", dials)
	}
	release()

	// Reacquiring reuses the pooled connection.
	_, release2, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	release2()
	if dials != 1 {
		t.Errorf("expected connection reuse, got %d dials", dials)
	}
}

func TestAcquire_Exhausted(t *testing.T) {
	p := newTestPool(t, 1, func() (Conn, error) { return &fakeConn{}, nil })
	defer p.Close()

	_, release, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, _, err := p.Acquire(context.Background()); !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}

	// The slot becomes available again after release.
	release()
	_, release2, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error after release: %v", err)
	}
	release2()
}

func TestAcquire_RedialsUnhealthy(t *testing.T) {
	conns := []*fakeConn{
		{pingErr: errors.New("connection reset")},
		{},
	}
	dials := 0
	p := newTestPool(t, 1, func() (Conn, error) {
		c := conns[dials]
		dials++
		return c, nil
	})
	defer p.Close()

	_, release, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	release()

	// First pooled connection fails its preflight ping and is replaced.
	conn, release2, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer release2()

	if dials != 2 {
		t.Fatalf("expected redial, got %d dials", dials)
	}
	if !conns[0].closed {
		t.Error("unhealthy connection was not closed")
	}
	if conn != conns[1] {
		t.Error("expected the freshly dialed connection")
	}
}

func TestAcquire_DialError(t *testing.T) {
	dialErr := errors.New("connection refused")
	fails := true
	p := newTestPool(t, 1, func() (Conn, error) {
		if fails {
			return nil, dialErr
		}
		return &fakeConn{}, nil
	})
	defer p.Close()

	if _, _, err := p.Acquire(context.Background()); !errors.Is(err, dialErr) {
		t.Fatalf("expected dial error, got %v", err)
	}

	// Slot returned to the pool; recovery is possible once dialing works.
	fails = false
	_, release, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("expected recovery after dial failure, got %v", err)
	}
	release()
}

func TestRelease_Idempotent(t *testing.T) {
	p := newTestPool(t, 1, func() (Conn, error) { return &fakeConn{}, nil })
	defer p.Close()

	_, release, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	release()
	release() // second call must not return the slot twice

	_, release2, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := p.Acquire(context.Background()); !errors.Is(err, ErrExhausted) {
		t.Fatalf("double release duplicated a slot: %v", err)
	}
	release2()
}

func TestRelease_DuringShutdownClosesConn(t *testing.T) {
	conn := &fakeConn{}
	p := newTestPool(t, 1, func() (Conn, error) { return conn, nil })

	_, release, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p.Close()
	release()

	if !conn.closed {
		t.Error("in-flight connection released after Close must be closed, not re-pooled")
	}
}

func TestAcquire_AfterClose(t *testing.T) {
	c := &fakeConn{}
	p := newTestPool(t, 1, func() (Conn, error) { return c, nil })

	_, release, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	release()

	p.Close()
	if !c.closed {
		t.Error("idle connection not closed on Close")
	}
	if _, _, err := p.Acquire(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestAcquire_ContextCanceled(t *testing.T) {
	p := newTestPool(t, 1, func() (Conn, error) { return &fakeConn{}, nil })
	defer p.Close()

	_, release, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := p.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
