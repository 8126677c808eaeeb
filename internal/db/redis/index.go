package redis

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/ragpipe/internal/db"
)

// CreateIndex creates an FT index from the given definition.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	args, err := buildCreateArgs(def)
	if err != nil {
		return err
	}

	return s.withConn(ctx, func(cl rueidis.Client) error {
		cmd := cl.B().Arbitrary("FT.CREATE").Args(args...).Build()
		if err := cl.Do(ctx, cmd).Error(); err != nil {
			if isRedisErr(err, "index already exists") {
				return db.ErrIndexExists
			}
			return &db.Error{Op: db.OpCreateIndex, Err: err}
		}
		return nil
	})
}

// DropIndex removes an FT index by name.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	return s.withConn(ctx, func(cl rueidis.Client) error {
		cmd := cl.B().Arbitrary("FT.DROPINDEX").Args(name).Build()
		if err := cl.Do(ctx, cmd).Error(); err != nil {
			if isRedisErr(err, "unknown index name") {
				return db.ErrIndexNotFound
			}
			return &db.Error{Op: db.OpDropIndex, Err: err}
		}
		return nil
	})
}

// IndexExists probes index existence via FT.INFO; "unknown index name" means absent.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.withConn(ctx, func(cl rueidis.Client) error {
		cmd := cl.B().Arbitrary("FT.INFO").Args(name).Build()
		if err := cl.Do(ctx, cmd).Error(); err != nil {
			if isRedisErr(err, "unknown index name") {
				exists = false
				return nil
			}
			return &db.Error{Op: db.OpIndexInfo, Err: err}
		}
		exists = true
		return nil
	})
	return exists, err
}

// SupportsTextSearch returns true: Redis 8+ supports TEXT fields and BM25 scoring.
func (s *Store) SupportsTextSearch(_ context.Context) bool {
	return true
}

func buildCreateArgs(idx *db.IndexDefinition) ([]string, error) {
	if err := idx.Validate(); err != nil {
		return nil, err
	}

	args := []string{idx.Name, "ON", "HASH"}

	if len(idx.Prefixes) > 0 {
		args = append(args, "PREFIX", strconv.Itoa(len(idx.Prefixes)))
		args = append(args, idx.Prefixes...)
	}

	args = append(args, "SCHEMA")

	for i := range idx.Fields {
		fieldArgs, err := buildFieldArgs(&idx.Fields[i])
		if err != nil {
			return nil, err
		}
		args = append(args, fieldArgs...)
	}

	return args, nil
}

func buildFieldArgs(f *db.IndexField) ([]string, error) {
	if f.Name == "" {
		return nil, errors.New("field name is required")
	}

	args := []string{f.Name}

	if f.Alias != "" {
		args = append(args, "AS", f.Alias)
	}

	switch f.Type {
	case db.IndexFieldNumeric:
		args = append(args, "NUMERIC")

	case db.IndexFieldText:
		args = append(args, "TEXT")

	case db.IndexFieldTag:
		args = append(args, "TAG")
		if f.TagSeparator != "" {
			args = append(args, "SEPARATOR", f.TagSeparator)
		}

	case db.IndexFieldVector:
		vectorArgs, err := buildVectorFieldArgs(f)
		if err != nil {
			return nil, err
		}
		args = append(args, vectorArgs...)

	default:
		return nil, errors.New("unknown field type")
	}

	return args, nil
}

func buildVectorFieldArgs(f *db.IndexField) ([]string, error) {
	if f.VectorDim <= 0 {
		return nil, errors.New("vector field requires positive DIM")
	}

	algo := f.VectorAlgo
	if algo == "" {
		algo = db.VectorHNSW
	}
	distance := f.VectorDistance
	if distance == "" {
		distance = db.DistanceCosine
	}

	params := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(f.VectorDim),
		"DISTANCE_METRIC", string(distance),
	}
	if algo == db.VectorHNSW {
		if f.VectorM > 0 {
			params = append(params, "M", strconv.Itoa(f.VectorM))
		}
		if f.VectorEFConstruct > 0 {
			params = append(params, "EF_CONSTRUCTION", strconv.Itoa(f.VectorEFConstruct))
		}
	}

	args := []string{"VECTOR", string(algo), strconv.Itoa(len(params))}
	return append(args, params...), nil
}
