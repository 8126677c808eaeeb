package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/ragpipe/internal/db"
)

// Get retrieves a value by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var out []byte
	err := s.withConn(ctx, func(cl rueidis.Client) error {
		data, err := cl.Do(ctx, cl.B().Get().Key(key).Build()).AsBytes()
		if err != nil {
			if rueidis.IsRedisNil(err) {
				return db.ErrKeyNotFound
			}
			return &db.Error{Op: db.OpGet, Err: err}
		}
		out = data
		return nil
	})
	return out, err
}

// Set stores a value at the given key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.withConn(ctx, func(cl rueidis.Client) error {
		if err := cl.Do(ctx, cl.B().Set().Key(key).Value(string(value)).Build()).Error(); err != nil {
			return &db.Error{Op: db.OpSet, Err: err}
		}
		return nil
	})
}

// SetWithTTL stores a value with an expiration.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.withConn(ctx, func(cl rueidis.Client) error {
		if err := cl.Do(ctx, cl.B().Set().Key(key).Value(string(value)).Ex(ttl).Build()).Error(); err != nil {
			return &db.Error{Op: db.OpSet, Err: err}
		}
		return nil
	})
}

// IncrBy atomically increments a key by the given amount and returns the new value.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) (int64, error) {
	var out int64
	err := s.withConn(ctx, func(cl rueidis.Client) error {
		n, err := cl.Do(ctx, cl.B().Incrby().Key(key).Increment(val).Build()).AsInt64()
		if err != nil {
			return &db.Error{Op: db.OpIncrBy, Err: err}
		}
		out = n
		return nil
	})
	return out, err
}
