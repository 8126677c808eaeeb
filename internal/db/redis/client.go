package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/rueidis"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragpipe/internal/db"
	"github.com/kailas-cloud/ragpipe/internal/db/pool"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Config holds connection parameters for a Redis store.
type Config struct {
	Addrs          []string
	Username       string
	Password       string
	DB             int
	PoolSize       int
	AcquireTimeout time.Duration
	PingTimeout    time.Duration
	// PoolAcquisitions is an optional counter vec with label "result",
	// passed explicitly (no init() registration).
	PoolAcquisitions *prometheus.CounterVec
}

// Store implements db.Store via rueidis for Redis 8+. Connections come from a
// bounded pool; each operation acquires one, runs, and releases via defer.
type Store struct {
	pool *pool.Pool
}

// conn adapts a rueidis client to pool.Conn.
type conn struct {
	client rueidis.Client
}

func (c *conn) Ping(ctx context.Context) error {
	cmd := c.client.B().Ping().Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

func (c *conn) Close() { c.client.Close() }

// NewStore creates a Redis store backed by a bounded connection pool.
func NewStore(cfg Config, logger *zap.Logger) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	dial := func() (pool.Conn, error) {
		client, err := rueidis.NewClient(rueidis.ClientOption{
			InitAddress:  cfg.Addrs,
			Username:     cfg.Username,
			Password:     cfg.Password,
			SelectDB:     cfg.DB,
			DisableCache: true,
			AlwaysRESP2:  true, // FT.SEARCH result parsing expects RESP2 array format
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create client: %w", err)
		}
		return &conn{client: client}, nil
	}

	size := cfg.PoolSize
	if size <= 0 {
		size = 4
	}

	p, err := pool.New(pool.Config{
		Size:           size,
		AcquireTimeout: cfg.AcquireTimeout,
		PingTimeout:    cfg.PingTimeout,
		Acquisitions:   cfg.PoolAcquisitions,
	}, dial, logger)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	return &Store{pool: p}, nil
}

// withConn acquires a pooled connection, runs fn, and guarantees release.
func (s *Store) withConn(ctx context.Context, fn func(cl rueidis.Client) error) error {
	c, release, err := s.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn(c.(*conn).client)
}

// Ping checks connectivity through a pooled connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.withConn(ctx, func(cl rueidis.Client) error {
		if err := cl.Do(ctx, cl.B().Ping().Build()).Error(); err != nil {
			return &db.Error{Op: db.OpPing, Err: err}
		}
		return nil
	})
}

// Close shuts down the pool and its connections.
func (s *Store) Close() {
	s.pool.Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// isRedisErr checks if err is a Redis server error containing substr (case-insensitive).
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return containsIgnoreCase(re.Error(), substr)
}

func containsIgnoreCase(s, substr string) bool {
	ls := len(s)
	lsub := len(substr)
	if lsub > ls {
		return false
	}
	for i := 0; i <= ls-lsub; i++ {
		match := true
		for j := 0; j < lsub; j++ {
			sc := s[i+j]
			tc := substr[j]
			if sc >= 'A' && sc <= 'Z' {
				sc += 'a' - 'A'
			}
			if tc >= 'A' && tc <= 'Z' {
				tc += 'a' - 'A'
			}
			if sc != tc {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
