package query

import (
	"fmt"
	"strings"
)

// maxKeyLength bounds how much longer than its table name a column key may
// grow before it is replaced with a positional key.
const maxKeyLength = 20

// Table is a declared table: a name, an implicit id column, and the columns
// registered on it.
//
// Tables are created by Registry.Declare and keep their identity for the
// life of the registry. Columns may be added until the registry is frozen.
type Table struct {
	reg  *Registry
	name string

	// ID is the implicit "<table>.id" column.
	ID *Column

	columns map[string]*Column // key -> column
	order   []*Column          // registration order
	byName  map[string]*Column // simple column name -> column
}

func newTable(r *Registry, name string) *Table {
	t := &Table{
		reg:     r,
		name:    name,
		columns: make(map[string]*Column),
		byName:  make(map[string]*Column),
	}
	t.ID = t.Column("id")
	return t
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// String returns the table name, as rendered in FROM and JOIN clauses.
func (t *Table) String() string { return t.name }

// Registry returns the registry the table was declared in.
func (t *Table) Registry() *Registry { return t.reg }

// Column returns the simple column "<table>.<name>", registering it on first
// use. On a frozen registry an unknown name yields an unregistered column.
func (t *Table) Column(name string) *Column {
	if c, ok := t.byName[name]; ok {
		return c
	}
	c := newSimpleColumn(t, name)
	if t.reg.frozen {
		return c
	}
	c = t.Add(c)
	t.byName[name] = c
	return c
}

// Add registers an existing column on the table and returns the registered
// column. Keys longer than the table name plus maxKeyLength are replaced with
// "<table>_col<N>", where N is the number of columns already registered.
func (t *Table) Add(col *Column) *Column {
	t.reg.mustBeOpen(fmt.Sprintf("add column %s to %s", col, t))

	if len(col.key) > len(t.name)+maxKeyLength {
		renamed := *col
		renamed.key = fmt.Sprintf("%s_col%d", t.name, len(t.columns))
		col = &renamed
	}
	if _, exists := t.columns[col.key]; exists {
		for i, c := range t.order {
			if c.key == col.key {
				t.order[i] = col
			}
		}
	} else {
		t.order = append(t.order, col)
	}
	t.columns[col.key] = col
	return col
}

// Columns returns every registered column in registration order.
func (t *Table) Columns() []*Column {
	out := make([]*Column, len(t.order))
	copy(out, t.order)
	return out
}

// ColumnByKey returns a registered column by its alias key.
func (t *Table) ColumnByKey(key string) (*Column, bool) {
	c, ok := t.columns[key]
	return c, ok
}

// Computed registers a column whose expression is the concatenation of parts.
// Column parts contribute their tables for join inference.
//
//	t.Computed("COUNT(DISTINCT ", Lead.SongID, ")")
func (t *Table) Computed(parts ...any) *Column {
	return t.Add(Computed(parts...))
}

// Concat registers a column joining parts with the SQL concatenation
// operator " || ".
func (t *Table) Concat(parts ...any) *Column {
	joined := make([]any, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			joined = append(joined, " || ")
		}
		joined = append(joined, p)
	}
	return t.Add(Computed(joined...))
}

// Subquery registers a parenthesized subquery column owned by this table.
//
// The projected expression is located once here so that Format can rewrite
// it later. Text whose projection cannot be located still renders, but
// formatting it reports ErrMalformedSubquery.
func (t *Table) Subquery(text string) *Column {
	return t.Add(parseSubquery(t, text))
}

// SubqueryOf registers a correlated subquery selecting col from its own table,
// restricted to the rows related to this table.
//
// The correlation reuses join resolution: it builds "SELECT col FROM
// col.Table()" joined to this table, lifts the ON text of the join that reaches
// this table into the WHERE clause, and drops that join. Joins through a
// bridging table stay in the subquery.
func (t *Table) SubqueryOf(col *Column) (*Column, error) {
	inner := col.Table()
	if inner == nil {
		return nil, fmt.Errorf("correlate %s: %w", col, ErrNoFromTable)
	}
	if inner.name == t.name {
		return nil, fmt.Errorf("correlate %s with %s: %w", col, t, newNoJoinPath(inner.name, t.name))
	}

	q := New(t.reg).Select(col).As("col").From(inner)
	joins := newJoinSet()
	if err := q.resolve(joins, inner, t, false); err != nil {
		return nil, fmt.Errorf("correlate %s with %s: %w", col, t, err)
	}
	clause, _ := joins.get(t.name)
	joins.remove(t.name)
	q.joins = joins
	q.where = append(q.where, group{{text: clause.On}})

	rendered, err := q.Render()
	if err != nil {
		return nil, fmt.Errorf("correlate %s with %s: %w", col, t, err)
	}
	tail := strings.TrimPrefix(rendered, "SELECT "+col.String()+" ")
	return t.Add(newSubqueryColumn(t, col.String(), tail)), nil
}

// Count counts the table's id column.
func (t *Table) Count() *Column { return t.ID.Count() }

// CountDistinct counts distinct values of the table's id column.
func (t *Table) CountDistinct() *Column { return t.ID.CountDistinct() }

// OnCreate registers a hook that Registry.Finalize runs after every table is
// declared. Hooks add computed columns that reference other tables.
func (t *Table) OnCreate(fn func(*Table) error) *Table {
	t.reg.mustBeOpen("register create hook for " + t.name)
	t.reg.hooks = append(t.reg.hooks, createHook{table: t, fn: fn})
	return t
}

// Select starts a query from this table.
func (t *Table) Select(items ...any) *Query {
	return New(t.reg).Select(items...).From(t)
}

// SelectList starts a list query: the id column first, grouped by id, so
// list consumers can treat "_id" as the row key.
func (t *Table) SelectList(items ...any) *Query {
	return New(t.reg).Select(t.ID).Select(items...).Group(t.ID).From(t)
}
