package query

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

const (
	// IndexAlias is the reserved output alias marking the section index
	// column consumed by sectioned list presentation.
	IndexAlias = "sql_section_index"

	// IDAlias is the alias forced onto row id expressions.
	IDAlias = "_id"
)

// Raw is verbatim SQL text used as a select item, predicate column or
// operand. Raw text carries no table and never triggers a join.
type Raw string

// String returns the SQL text.
func (r Raw) String() string { return string(r) }

// Direction is an ORDER BY direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// ParseDirection accepts "ASC" or "DESC" in any case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ASC":
		return Asc, nil
	case "DESC":
		return Desc, nil
	default:
		return "", fmt.Errorf("%w: direction %q", ErrUnsupportedOperand, s)
	}
}

type selectItem struct {
	text  string
	alias string
}

type predicate struct {
	conj string // "", "AND" or "OR"
	text string
}

// group is one parenthesized predicate cluster of a WHERE or HAVING clause.
type group []predicate

type orderTerm struct {
	text string
	dir  Direction
}

type clauseKind int

const (
	noClause clauseKind = iota
	whereClause
	havingClause
)

// Query is a SELECT statement under construction.
//
// A Query is a single-owner builder: it is not safe for concurrent mutation.
// Builder methods return the receiver for chaining. Errors from individual
// calls (bad operands, unreachable explicit joins) are recorded and returned
// by Render; join inference for referenced columns happens at Render time,
// once every referenced table is known.
type Query struct {
	reg      *Registry
	distinct bool
	items    []selectItem
	refs     []*Column // columns whose tables must be joined
	from     *Table
	joins    *joinSet // explicit joins
	where    []group
	having   []group
	last     clauseKind
	groupBy  []string
	orderBy  []orderTerm
	limit    *int
	offset   *int
	unions   []*Query
	err      error
}

// New starts an empty query against reg. reg may be nil, in which case the
// registry of the from table is used.
func New(reg *Registry) *Query {
	return &Query{reg: reg, joins: newJoinSet()}
}

func (q *Query) registry() *Registry {
	if q.reg != nil {
		return q.reg
	}
	if q.from != nil {
		return q.from.reg
	}
	return NewRegistry()
}

func (q *Query) fail(err error) {
	if q.err == nil {
		q.err = err
	}
}

// Err returns the first error recorded by a builder call.
func (q *Query) Err() error { return q.err }

// FromTable returns the from table, explicit or inferred.
func (q *Query) FromTable() *Table { return q.from }

func (q *Query) ref(c *Column) {
	if c != nil {
		q.refs = append(q.refs, c)
	}
}

// toText converts a select/predicate/order item to its SQL text and column.
func toText(v any) (string, *Column, error) {
	switch val := v.(type) {
	case *Column:
		if val == nil {
			return "", nil, fmt.Errorf("%w: nil column", ErrUnsupportedOperand)
		}
		return val.String(), val, nil
	case Raw:
		return string(val), nil, nil
	case string:
		return val, nil, nil
	default:
		return "", nil, fmt.Errorf("%w: expression of type %T", ErrUnsupportedOperand, v)
	}
}

// Select appends items to the select list. Items are *Column, Raw or string.
//
// A column is aliased by its key, a raw item by "column<N>" (N = position in
// the select list). Items ending in ".id" or "._id" are aliased IDAlias. The
// first column selected with no from table set makes its table the from table.
func (q *Query) Select(items ...any) *Query {
	for _, it := range items {
		text, col, err := toText(it)
		if err != nil {
			q.fail(fmt.Errorf("select: %w", err))
			continue
		}
		alias := fmt.Sprintf("column%d", len(q.items))
		if col != nil {
			alias = col.Key()
			if q.from == nil {
				q.from = col.Table()
			}
		}
		alias = defaultAlias(text, alias)
		q.items = append(q.items, selectItem{text: text, alias: alias})
		q.ref(col)
	}
	return q
}

// As overrides the alias of the most recently selected item.
func (q *Query) As(alias string) *Query {
	if len(q.items) == 0 {
		q.fail(errors.New("as: nothing selected"))
		return q
	}
	q.items[len(q.items)-1].alias = alias
	return q
}

// Distinct renders SELECT DISTINCT.
func (q *Query) Distinct() *Query {
	q.distinct = true
	return q
}

// SectionIndex selects item aliased IndexAlias. With a direction it also
// orders by item.
func (q *Query) SectionIndex(item any, dir ...Direction) *Query {
	q.Select(item).As(IndexAlias)
	if len(dir) > 0 {
		q.Order(item, dir[0])
	}
	return q
}

// HasSectionIndex reports whether an item is aliased IndexAlias.
func (q *Query) HasSectionIndex() bool {
	for _, it := range q.items {
		if it.alias == IndexAlias {
			return true
		}
	}
	return false
}

// From sets the from table.
func (q *Query) From(t *Table) *Query {
	q.from = t
	return q
}

// Join joins t to the from table through the declared join graph.
func (q *Query) Join(t *Table) *Query { return q.joinFrom(q.from, t, false) }

// LeftJoin joins t to the from table as an outer join.
func (q *Query) LeftJoin(t *Table) *Query { return q.joinFrom(q.from, t, true) }

// JoinFrom joins target to source through the declared join graph. Joining
// an intermediate table explicitly resolves an ambiguous bridge.
func (q *Query) JoinFrom(source, target *Table) *Query { return q.joinFrom(source, target, false) }

// LeftJoinFrom is JoinFrom as an outer join.
func (q *Query) LeftJoinFrom(source, target *Table) *Query { return q.joinFrom(source, target, true) }

func (q *Query) joinFrom(source, target *Table, outer bool) *Query {
	if source == nil {
		q.fail(fmt.Errorf("join %s: %w", target, ErrNoFromTable))
		return q
	}
	if err := q.resolve(q.joins, source, target, outer); err != nil {
		q.fail(fmt.Errorf("join %s: %w", target, err))
	}
	return q
}

// JoinOn joins t with ON "<on1> = <on2>", bypassing the join graph.
func (q *Query) JoinOn(t *Table, on1, on2 *Column) *Query {
	q.joins.add(t.name, on1.String()+" = "+on2.String(), false)
	return q
}

// LeftJoinOn is JoinOn as an outer join.
func (q *Query) LeftJoinOn(t *Table, on1, on2 *Column) *Query {
	q.joins.add(t.name, on1.String()+" = "+on2.String(), true)
	return q
}

// Where starts a new AND-group in the WHERE clause. The previous group is
// reused if it is still empty.
func (q *Query) Where(col any, op string, val any) *Query {
	q.last = whereClause
	return q.startGroup(col, op, val)
}

// Having starts a new AND-group in the HAVING clause.
func (q *Query) Having(col any, op string, val any) *Query {
	q.last = havingClause
	return q.startGroup(col, op, val)
}

// And appends to the current group (of whichever of Where/Having was called
// last) with AND.
func (q *Query) And(col any, op string, val any) *Query {
	return q.appendTerm("AND", col, op, val)
}

// Or appends to the current group with OR.
func (q *Query) Or(col any, op string, val any) *Query {
	return q.appendTerm("OR", col, op, val)
}

// WhereEq renders "first = ? AND rest[0] = ? ..." for parameterized lookups.
func (q *Query) WhereEq(first any, rest ...any) *Query {
	q.Where(first, "=", Param)
	for _, col := range rest {
		q.And(col, "=", Param)
	}
	return q
}

func (q *Query) groups() *[]group {
	if q.last == havingClause {
		return &q.having
	}
	return &q.where
}

func (q *Query) startGroup(col any, op string, val any) *Query {
	gs := q.groups()
	if n := len(*gs); n == 0 || len((*gs)[n-1]) > 0 {
		*gs = append(*gs, group{})
	}
	return q.appendTerm("", col, op, val)
}

func (q *Query) appendTerm(conj string, col any, op string, val any) *Query {
	if q.last == noClause {
		return q.Where(col, op, val)
	}
	text, c, err := toText(col)
	if err != nil {
		q.fail(fmt.Errorf("predicate: %w", err))
		return q
	}
	if op == "" {
		op = "="
	}
	operand, err := ToOperand(val)
	if err != nil {
		q.fail(fmt.Errorf("predicate on %s: %w", text, err))
		return q
	}
	rendered, err := operand.render(op)
	if err != nil {
		q.fail(fmt.Errorf("predicate on %s: %w", text, err))
		return q
	}

	gs := q.groups()
	if len(*gs) == 0 {
		*gs = append(*gs, group{})
	}
	last := &(*gs)[len(*gs)-1]
	if len(*last) == 0 {
		conj = ""
	}
	*last = append(*last, predicate{conj: conj, text: text + " " + op + " " + rendered})

	q.ref(c)
	q.ref(operand.column())
	return q
}

// Group appends items to the GROUP BY clause.
func (q *Query) Group(items ...any) *Query {
	for _, it := range items {
		text, c, err := toText(it)
		if err != nil {
			q.fail(fmt.Errorf("group: %w", err))
			continue
		}
		q.groupBy = append(q.groupBy, text)
		q.ref(c)
	}
	return q
}

// Order appends alternating item/direction pairs to the ORDER BY clause. A
// trailing item without a direction is ascending. Directions are Direction
// values or the strings "ASC"/"DESC".
//
//	q.Order(Song.Title, Asc, Song.Number, "DESC", Song.ID)
func (q *Query) Order(args ...any) *Query {
	for i := 0; i < len(args); i += 2 {
		text, c, err := toText(args[i])
		if err != nil {
			q.fail(fmt.Errorf("order: %w", err))
			continue
		}
		dir := Asc
		if i+1 < len(args) {
			switch d := args[i+1].(type) {
			case Direction:
				dir, err = ParseDirection(string(d))
			case string:
				dir, err = ParseDirection(d)
			default:
				err = fmt.Errorf("%w: direction of type %T", ErrUnsupportedOperand, d)
			}
			if err != nil {
				q.fail(fmt.Errorf("order: %w", err))
				continue
			}
		}
		q.orderBy = append(q.orderBy, orderTerm{text: text, dir: dir})
		q.ref(c)
	}
	return q
}

// OrderAsc orders by item ascending.
func (q *Query) OrderAsc(item any) *Query { return q.Order(item, Asc) }

// OrderDesc orders by item descending.
func (q *Query) OrderDesc(item any) *Query { return q.Order(item, Desc) }

// Limit sets the LIMIT.
func (q *Query) Limit(n int) *Query {
	q.limit = &n
	return q
}

// Offset sets the OFFSET.
func (q *Query) Offset(n int) *Query {
	q.offset = &n
	return q
}

// Range sets both OFFSET and LIMIT.
func (q *Query) Range(offset, limit int) *Query {
	return q.Offset(offset).Limit(limit)
}

// Union attaches sibling queries. Their rendered text is spliced in after
// this query's GROUP BY/HAVING, so ORDER BY and LIMIT apply to the whole
// union. Siblings are shared, not copied, and must not be mutated after
// being attached.
func (q *Query) Union(others ...*Query) *Query {
	q.unions = append(q.unions, others...)
	return q
}

// Copy returns a query whose select list, predicate groups, clauses and
// explicit joins can be changed without affecting q. Union siblings are
// shared by reference.
func (q *Query) Copy() *Query {
	c := *q
	c.items = slices.Clone(q.items)
	c.refs = slices.Clone(q.refs)
	c.joins = q.joins.clone()
	c.where = cloneGroups(q.where)
	c.having = cloneGroups(q.having)
	c.groupBy = slices.Clone(q.groupBy)
	c.orderBy = slices.Clone(q.orderBy)
	c.unions = slices.Clone(q.unions)
	if q.limit != nil {
		n := *q.limit
		c.limit = &n
	}
	if q.offset != nil {
		n := *q.offset
		c.offset = &n
	}
	return &c
}

func cloneGroups(gs []group) []group {
	if gs == nil {
		return nil
	}
	out := make([]group, len(gs))
	for i, g := range gs {
		out[i] = slices.Clone(g)
	}
	return out
}
