package store

import (
	"context"
	"fmt"

	"github.com/roach88/sqlpath/internal/query"
)

// Mapper builds values of T from rows of one table.
//
// Mappers are declared next to the schema, one per table type, and replace
// per-row reflection with an explicit factory.
type Mapper[T any] struct {
	table *query.Table
	build func(Record) (T, error)
}

// NewMapper declares the row factory for table.
func NewMapper[T any](table *query.Table, build func(Record) (T, error)) *Mapper[T] {
	return &Mapper[T]{table: table, build: build}
}

// Table returns the mapped table.
func (m *Mapper[T]) Table() *query.Table { return m.table }

// All maps every row of q.
func (m *Mapper[T]) All(ctx context.Context, s *Store, q *query.Query, args ...any) ([]T, error) {
	res, err := s.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, res.Len())
	for i, rec := range res.Records {
		v, err := m.build(rec)
		if err != nil {
			return nil, fmt.Errorf("map %s row %d: %w", m.table, i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Get maps the first row whose field equals value. See Store.Get.
func (m *Mapper[T]) Get(ctx context.Context, s *Store, field *query.Column, value any) (T, error) {
	var zero T
	rec, err := s.Get(ctx, m.table, field, value)
	if err != nil {
		return zero, err
	}
	v, err := m.build(rec)
	if err != nil {
		return zero, fmt.Errorf("map %s: %w", m.table, err)
	}
	return v, nil
}
