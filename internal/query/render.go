package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Render returns the SQL text of the query.
//
// Join inference runs against a copy of the explicit joins, so Render has no
// effect on the builder and repeated calls yield identical text.
func (q *Query) Render() (string, error) {
	joins, err := q.resolveJoins()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	if q.distinct {
		b.WriteString("DISTINCT ")
	}
	b.WriteString(q.renderItems())

	b.WriteString(" FROM ")
	b.WriteString(q.from.name)
	for _, j := range joins.list() {
		b.WriteString(j.String())
	}

	writeGroups(&b, "WHERE", q.where)
	if len(q.groupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(q.groupBy, ", "))
	}
	writeGroups(&b, "HAVING", q.having)

	for _, u := range q.unions {
		sibling, err := u.Render()
		if err != nil {
			return "", fmt.Errorf("union: %w", err)
		}
		b.WriteString(" UNION ")
		b.WriteString(sibling)
	}

	if len(q.orderBy) > 0 {
		terms := make([]string, len(q.orderBy))
		for i, o := range q.orderBy {
			terms[i] = o.text + " " + string(o.dir)
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(terms, ", "))
	}

	switch {
	case q.limit != nil:
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(*q.limit))
	case q.offset != nil:
		// SQLite only accepts OFFSET after a LIMIT; -1 means unbounded.
		b.WriteString(" LIMIT -1")
	}
	if q.offset != nil {
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.Itoa(*q.offset))
	}
	return b.String(), nil
}

// MustRender is Render for queries built from static declarations; it panics
// on error.
func (q *Query) MustRender() string {
	s, err := q.Render()
	if err != nil {
		panic(fmt.Sprintf("query: render: %v", err))
	}
	return s
}

// String renders the query, or a comment carrying the error.
func (q *Query) String() string {
	s, err := q.Render()
	if err != nil {
		return "/* " + err.Error() + " */"
	}
	return s
}

// Joins returns the join clauses Render would emit, explicit joins first,
// then inferred joins in first-referenced order.
func (q *Query) Joins() ([]JoinClause, error) {
	joins, err := q.resolveJoins()
	if err != nil {
		return nil, err
	}
	return joins.list(), nil
}

func (q *Query) resolveJoins() (*joinSet, error) {
	if q.err != nil {
		return nil, q.err
	}
	if q.from == nil {
		return nil, ErrNoFromTable
	}
	for _, c := range q.refs {
		if c.err != nil {
			return nil, fmt.Errorf("column %s: %w", c, c.err)
		}
	}

	joins := q.joins.clone()
	for _, c := range q.refs {
		for _, t := range c.tables {
			if err := q.resolve(joins, q.from, t, false); err != nil {
				return nil, fmt.Errorf("column %s: %w", c, err)
			}
		}
	}
	return joins, nil
}

// renderItems renders the select list, suffixing repeated aliases with
// 1, 2, ... in select order.
func (q *Query) renderItems() string {
	if len(q.items) == 0 {
		return "*"
	}
	seen := make(map[string]bool, len(q.items))
	parts := make([]string, len(q.items))
	for i, it := range q.items {
		alias := it.alias
		for n := 1; seen[alias]; n++ {
			alias = it.alias + strconv.Itoa(n)
		}
		seen[alias] = true
		parts[i] = it.text + " AS " + alias
	}
	return strings.Join(parts, ", ")
}

func writeGroups(b *strings.Builder, keyword string, groups []group) {
	first := true
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		if first {
			b.WriteString(" " + keyword + " ")
			first = false
		} else {
			b.WriteString(" AND ")
		}
		b.WriteString("(")
		for i, p := range g {
			if i > 0 {
				b.WriteString(" " + p.conj + " ")
			}
			b.WriteString(p.text)
		}
		b.WriteString(")")
	}
}
