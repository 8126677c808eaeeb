package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/ragpipe/internal/db"
)

// HSet sets hash fields.
func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	return s.withConn(ctx, func(cl rueidis.Client) error {
		cmd := cl.B().Hset().Key(key).FieldValue()
		for k, v := range fields {
			cmd = cmd.FieldValue(k, v)
		}
		if err := cl.Do(ctx, cmd.Build()).Error(); err != nil {
			return &db.Error{Op: db.OpHSet, Err: err}
		}
		return nil
	})
}

// HSetMulti stores multiple hashes in a single DoMulti round-trip.
func (s *Store) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if len(items) == 0 {
		return nil
	}

	return s.withConn(ctx, func(cl rueidis.Client) error {
		cmds := make([]rueidis.Completed, len(items))
		for i, item := range items {
			cmd := cl.B().Hset().Key(item.Key).FieldValue()
			for k, v := range item.Fields {
				cmd = cmd.FieldValue(k, v)
			}
			cmds[i] = cmd.Build()
		}

		results := cl.DoMulti(ctx, cmds...)
		for i, res := range results {
			if err := res.Error(); err != nil {
				return &db.Error{Op: db.OpHSet, Err: fmt.Errorf("key %s: %w", items[i].Key, err)}
			}
		}
		return nil
	})
}

// HGetAll returns all fields of a hash.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	var out map[string]string
	err := s.withConn(ctx, func(cl rueidis.Client) error {
		m, err := cl.Do(ctx, cl.B().Hgetall().Key(key).Build()).AsStrMap()
		if err != nil {
			return &db.Error{Op: db.OpHGetAll, Err: err}
		}
		out = m
		return nil
	})
	return out, err
}

// Del deletes keys.
func (s *Store) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.withConn(ctx, func(cl rueidis.Client) error {
		if err := cl.Do(ctx, cl.B().Del().Key(keys...).Build()).Error(); err != nil {
			return &db.Error{Op: db.OpDel, Err: err}
		}
		return nil
	})
}

// Exists checks if a key exists.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := s.withConn(ctx, func(cl rueidis.Client) error {
		count, err := cl.Do(ctx, cl.B().Exists().Key(key).Build()).AsInt64()
		if err != nil {
			return &db.Error{Op: db.OpExists, Err: err}
		}
		exists = count > 0
		return nil
	})
	return exists, err
}

// Scan iterates keys matching a pattern.
func (s *Store) Scan(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	err := s.withConn(ctx, func(cl rueidis.Client) error {
		var cursor uint64
		for {
			cmd := cl.B().Scan().Cursor(cursor).Match(pattern).Count(100).Build()
			res, err := cl.Do(ctx, cmd).AsScanEntry()
			if err != nil {
				return &db.Error{Op: db.OpScan, Err: err}
			}
			keys = append(keys, res.Elements...)
			cursor = res.Cursor
			if cursor == 0 {
				return nil
			}
		}
	})
	return keys, err
}
