package store

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/roach88/sqlpath/internal/query"
	"github.com/roach88/sqlpath/internal/section"
)

// ErrNoSectionIndex is returned by Result.Sections when the query did not
// select a section index column.
var ErrNoSectionIndex = errors.New("result has no section index column")

// Record is one row keyed by output alias. Values are nullable strings, as
// read from the database; typed accessors parse on demand.
type Record struct {
	columns []string
	values  map[string]sql.NullString
}

// Columns returns the aliases in select order.
func (r Record) Columns() []string { return slices.Clone(r.columns) }

// Has reports whether the row has a column with this alias.
func (r Record) Has(alias string) bool {
	_, ok := r.values[alias]
	return ok
}

// IsNull reports whether the value is NULL or missing.
func (r Record) IsNull(alias string) bool {
	return !r.values[alias].Valid
}

// String returns the value, or "" for NULL.
func (r Record) String(alias string) string {
	return r.values[alias].String
}

// Int parses the value as an integer.
func (r Record) Int(alias string) (int64, error) {
	v, ok := r.values[alias]
	if !ok || !v.Valid {
		return 0, fmt.Errorf("column %s: %w", alias, ErrNullValue)
	}
	n, err := strconv.ParseInt(v.String, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", alias, err)
	}
	return n, nil
}

// Float parses the value as a float.
func (r Record) Float(alias string) (float64, error) {
	v, ok := r.values[alias]
	if !ok || !v.Valid {
		return 0, fmt.Errorf("column %s: %w", alias, ErrNullValue)
	}
	f, err := strconv.ParseFloat(v.String, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", alias, err)
	}
	return f, nil
}

// ID returns the row id selected under query.IDAlias.
func (r Record) ID() (int64, error) {
	return r.Int(query.IDAlias)
}

// Get returns the value of a selected column, looked up by the alias it
// gets when selected. Columns renamed with As must be read by alias.
func (r Record) Get(c *query.Column) (string, bool) {
	v, ok := r.values[c.Alias()]
	return v.String, ok && v.Valid
}

// ErrNullValue is returned by typed accessors for NULL or missing values.
var ErrNullValue = errors.New("value is null")

// Result holds every row of a query.
type Result struct {
	Columns []string
	Records []Record
}

// Len returns the number of rows.
func (res *Result) Len() int { return len(res.Records) }

// Values returns one column across all rows.
func (res *Result) Values(alias string) []string {
	out := make([]string, len(res.Records))
	for i, r := range res.Records {
		out[i] = r.String(alias)
	}
	return out
}

// Sections builds a section indexer over the section index column.
func (res *Result) Sections(alphabet string, opts ...section.IndexerOption) (*section.Indexer, error) {
	if !slices.Contains(res.Columns, query.IndexAlias) {
		return nil, ErrNoSectionIndex
	}
	return section.New(res.Values(query.IndexAlias), alphabet, opts...)
}

func scanRecords(rows *sql.Rows) (*Result, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	res := &Result{Columns: columns, Records: []Record{}}
	for rows.Next() {
		raw := make([]sql.NullString, len(columns))
		dest := make([]any, len(columns))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		rec := Record{columns: columns, values: make(map[string]sql.NullString, len(columns))}
		for i, name := range columns {
			rec.values[name] = raw[i]
		}
		res.Records = append(res.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return res, nil
}
