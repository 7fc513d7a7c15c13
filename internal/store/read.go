package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/sqlpath/internal/query"
)

// Query renders q and returns every row. args bind the "?" placeholders
// left in the rendered text.
//
// Returns an empty (non-nil) record slice when no rows match.
func (s *Store) Query(ctx context.Context, q *query.Query, args ...any) (*Result, error) {
	text, err := q.Render()
	if err != nil {
		return nil, fmt.Errorf("render query: %w", err)
	}
	return s.QueryText(ctx, text, args...)
}

// QueryText runs already rendered SQL.
func (s *Store) QueryText(ctx context.Context, text string, args ...any) (*Result, error) {
	slog.Debug("executing query", "sql", text, "args", len(args))

	rows, err := s.db.QueryContext(ctx, text, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	res, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	slog.Debug("query complete", "rows", res.Len())
	return res, nil
}

// Get loads the first row of t whose field equals value, selecting every
// column registered on t and grouping by id.
//
// Returns ErrNotFound if no row matches.
func (s *Store) Get(ctx context.Context, t *query.Table, field *query.Column, value any) (Record, error) {
	res, err := s.Query(ctx, lookup(t, field), value)
	if err != nil {
		return Record{}, fmt.Errorf("get %s by %s: %w", t, field, err)
	}
	if res.Len() == 0 {
		return Record{}, fmt.Errorf("get %s where %s = %v: %w", t, field, value, ErrNotFound)
	}
	return res.Records[0], nil
}

func lookup(t *query.Table, field *query.Column) *query.Query {
	items := make([]any, 0, len(t.Columns()))
	for _, c := range t.Columns() {
		items = append(items, c)
	}
	return t.Select(items...).WhereEq(field).Group(t.ID)
}
