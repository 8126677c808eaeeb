// Package pool provides a bounded connection pool with pre-flight validation.
package pool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// ErrExhausted is returned when no connection becomes available within the
// acquire timeout.
var ErrExhausted = errors.New("pool: exhausted")

// ErrClosed is returned when acquiring from a closed pool.
var ErrClosed = errors.New("pool: closed")

// Conn is a pooled connection handle.
type Conn interface {
	Ping(ctx context.Context) error
	Close()
}

// Dialer creates a new connection.
type Dialer func() (Conn, error)

// slot holds a lazily dialed connection. conn is nil until first use and
// after an unhealthy connection is discarded.
type slot struct {
	conn Conn
}

// Pool is a bounded pool of connections. Every acquisition validates the
// connection with a short PING; unhealthy connections are closed and replaced
// on the spot or lazily by the next caller.
type Pool struct {
	slots          chan *slot
	dial           Dialer
	size           int
	acquireTimeout time.Duration
	pingTimeout    time.Duration
	acquisitions   *prometheus.CounterVec
	logger         *zap.Logger
	done           chan struct{}
}

// Config holds pool construction parameters.
type Config struct {
	Size           int
	AcquireTimeout time.Duration
	PingTimeout    time.Duration
	// Acquisitions is an optional counter vec with label "result"
	// ("ok"/"exhausted"/"redial"), passed explicitly.
	Acquisitions *prometheus.CounterVec
}

// New creates a pool. Connections are dialed lazily on first acquisition.
func New(cfg Config, dial Dialer, logger *zap.Logger) (*Pool, error) {
	if cfg.Size <= 0 {
		return nil, fmt.Errorf("pool size must be positive, got %d", cfg.Size)
	}
	if dial == nil {
		return nil, errors.New("dialer is required")
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = 5 * time.Second
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = time.Second
	}

	p := &Pool{
		slots:          make(chan *slot, cfg.Size),
		dial:           dial,
		size:           cfg.Size,
		acquireTimeout: cfg.AcquireTimeout,
		pingTimeout:    cfg.PingTimeout,
		acquisitions:   cfg.Acquisitions,
		logger:         logger,
		done:           make(chan struct{}),
	}
	for i := 0; i < cfg.Size; i++ {
		p.slots <- &slot{}
	}
	return p, nil
}

// Acquire returns a validated connection and a release func. The release func
// must be called exactly once, typically via defer, so the slot returns to the
// pool even when the operation fails.
func (p *Pool) Acquire(ctx context.Context) (Conn, func(), error) {
	timer := time.NewTimer(p.acquireTimeout)
	defer timer.Stop()

	var s *slot
	select {
	case <-p.done:
		return nil, nil, ErrClosed
	case <-ctx.Done():
		return nil, nil, fmt.Errorf("acquire: %w", ctx.Err())
	case <-timer.C:
		p.inc("exhausted")
		return nil, nil, ErrExhausted
	case s = <-p.slots:
	}

	conn, err := p.validated(ctx, s)
	if err != nil {
		// Slot goes back empty: the next caller redials.
		s.conn = nil
		p.release(s)
		return nil, nil, err
	}
	s.conn = conn

	p.inc("ok")
	var released bool
	return conn, func() {
		if released {
			return
		}
		released = true
		p.release(s)
	}, nil
}

// validated returns a healthy connection for the slot, dialing or redialing
// as needed.
func (p *Pool) validated(ctx context.Context, s *slot) (Conn, error) {
	if s.conn != nil {
		pingCtx, cancel := context.WithTimeout(ctx, p.pingTimeout)
		err := s.conn.Ping(pingCtx)
		cancel()
		if err == nil {
			return s.conn, nil
		}

		p.inc("redial")
		if p.logger != nil {
			p.logger.Warn("Discarding unhealthy pooled connection", zap.Error(err))
		}
		s.conn.Close()
		s.conn = nil
	}

	conn, err := p.dial()
	if err != nil {
		return nil, fmt.Errorf("dial connection: %w", err)
	}
	return conn, nil
}

func (p *Pool) release(s *slot) {
	select {
	case <-p.done:
		if s.conn != nil {
			s.conn.Close()
			s.conn = nil
		}
		return
	default:
	}

	p.slots <- s

	// Close may have started between the check and the send; drain again so
	// the just-returned connection cannot outlive the pool.
	select {
	case <-p.done:
		p.drainIdle()
	default:
	}
}

// drainIdle empties the slot channel, closing any idle connections.
func (p *Pool) drainIdle() {
	for {
		select {
		case s := <-p.slots:
			if s.conn != nil {
				s.conn.Close()
				s.conn = nil
			}
		default:
			return
		}
	}
}

func (p *Pool) inc(result string) {
	if p.acquisitions != nil {
		p.acquisitions.WithLabelValues(result).Inc()
	}
}

// Close drains the pool and closes all idle connections. In-flight connections
// are closed when released.
func (p *Pool) Close() {
	close(p.done)
	p.drainIdle()
}
