package query

import (
	"fmt"
	"regexp"
	"strings"
)

// ColumnKind distinguishes the three column variants.
type ColumnKind int

const (
	// SimpleColumn renders as "<table>.<name>".
	SimpleColumn ColumnKind = iota

	// ComputedColumn renders an expression built from other columns
	// (aggregates, CASE, concatenation) and carries their tables.
	ComputedColumn

	// SubqueryColumn renders a parenthesized correlated SELECT.
	SubqueryColumn
)

func (k ColumnKind) String() string {
	switch k {
	case SimpleColumn:
		return "simple"
	case ComputedColumn:
		return "computed"
	case SubqueryColumn:
		return "subquery"
	default:
		return fmt.Sprintf("ColumnKind(%d)", int(k))
	}
}

var nonWord = regexp.MustCompile(`\W+`)

// subqueryPattern locates the projected expression of a subquery: everything
// between SELECT and the first AS or FROM keyword.
var subqueryPattern = regexp.MustCompile(`(?is)^\(SELECT\s+(.*?)\s+((?:AS|FROM)\b.*)\)$`)

// Column is a rendering expression plus a derived alias key.
//
// Columns are immutable once created: every transformation (Format, Count,
// Cast, ...) returns a new Column. A Column always knows at least one owning
// table; computed columns carry the tables of every column they were built
// from, which drives join inference.
type Column struct {
	kind   ColumnKind
	expr   string
	key    string
	tables []*Table

	// Subquery columns render as "(SELECT " + inner + " " + tail + ")".
	// inner is empty when the projection could not be located.
	inner string
	tail  string

	err error
}

func newSimpleColumn(t *Table, name string) *Column {
	c := &Column{kind: SimpleColumn, tables: []*Table{t}}
	c.setExpr(t.name + "." + name)
	return c
}

func newSubqueryColumn(owner *Table, inner, tail string) *Column {
	c := &Column{kind: SubqueryColumn, tables: []*Table{owner}, inner: inner, tail: tail}
	c.setExpr("(SELECT " + inner + " " + tail + ")")
	return c
}

func parseSubquery(owner *Table, text string) *Column {
	c := &Column{kind: SubqueryColumn, tables: []*Table{owner}}
	c.setExpr("(" + text + ")")
	if m := subqueryPattern.FindStringSubmatch(c.expr); m != nil {
		c.inner, c.tail = m[1], m[2]
	}
	return c
}

// Computed builds a column from the concatenated string forms of parts.
// Column parts contribute their owning tables; the first column part's table
// becomes the computed column's primary table.
func Computed(parts ...any) *Column {
	c := &Column{kind: ComputedColumn}
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(fmt.Sprint(p))
	}
	c.addTables(parts...)
	c.setExpr(b.String())
	return c
}

func (c *Column) setExpr(expr string) {
	c.expr = expr
	c.key = "col_" + nonWord.ReplaceAllString(expr, "_")
}

func (c *Column) addTables(parts ...any) {
	for _, p := range parts {
		col, ok := p.(*Column)
		if !ok || col == nil {
			continue
		}
		c.tables = append(c.tables, col.tables...)
		if c.err == nil {
			c.err = col.err
		}
	}
}

// String returns the rendering expression.
func (c *Column) String() string { return c.expr }

// Key returns the alias key derived from the expression.
func (c *Column) Key() string { return c.key }

// Alias returns the alias the column gets when selected: IDAlias for row id
// expressions, otherwise its key.
func (c *Column) Alias() string { return defaultAlias(c.expr, c.key) }

// Kind returns the column variant.
func (c *Column) Kind() ColumnKind { return c.kind }

// Table returns the primary owning table.
func (c *Column) Table() *Table {
	if len(c.tables) == 0 {
		return nil
	}
	return c.tables[0]
}

// Tables returns every table the column pulls from.
func (c *Column) Tables() []*Table {
	out := make([]*Table, len(c.tables))
	copy(out, c.tables)
	return out
}

// Err returns the consistency error recorded while building the column, if
// any. Queries referencing the column fail to render with this error.
func (c *Column) Err() error { return c.err }

// Format wraps the column in a template. "{column}" and "{}" stand for the
// column expression. With args, the remaining verbs are filled with
// fmt.Sprintf and a literal percent sign is written "%%"; without args the
// template is used as written.
//
//	col.Format("strftime('%Y', {column})")
//	col.Format("CAST({column} * 100 AS %s)", "INT")
//
// A template whose verbs do not match args records ErrUnsupportedOperand.
//
// Formatting a subquery column rewrites its projected expression, keeping the
// FROM/WHERE part intact.
func (c *Column) Format(template string, args ...any) *Column {
	if c.kind == SubqueryColumn {
		if c.inner == "" {
			out := *c
			out.tables = c.Tables()
			out.err = fmt.Errorf("%w: cannot locate projected expression in %s", ErrMalformedSubquery, c.expr)
			return &out
		}
		expr, err := formatTemplate(template, c.inner, args...)
		out := newSubqueryColumn(c.Table(), expr, c.tail)
		out.err = c.err
		if out.err == nil {
			out.err = err
		}
		return out
	}

	out := &Column{kind: ComputedColumn}
	out.addTables(c)
	out.addTables(args...)
	expr, err := formatTemplate(template, c.expr, args...)
	out.setExpr(expr)
	if out.err == nil {
		out.err = err
	}
	return out
}

func formatTemplate(template, column string, args ...any) (string, error) {
	if len(args) == 0 {
		t := strings.ReplaceAll(template, "{column}", column)
		return strings.ReplaceAll(t, "{}", column), nil
	}

	name := strings.ReplaceAll(column, "%", "%%")
	t := strings.ReplaceAll(template, "{column}", name)
	t = strings.ReplaceAll(t, "{}", name)
	out := fmt.Sprintf(t, args...)

	// fmt marks bad verbs and argument count mismatches with "%!". Escaped
	// "%%!" sequences and argument text account for the legitimate ones.
	inputs := strings.Count(strings.ReplaceAll(t, "%%", "\x00"), "\x00!")
	for _, a := range args {
		inputs += strings.Count(fmt.Sprint(a), "%!")
	}
	if strings.Count(out, "%!") > inputs {
		return out, fmt.Errorf("%w: template %q does not match %d argument(s)", ErrUnsupportedOperand, template, len(args))
	}
	return out, nil
}

// Count wraps the column in COUNT().
func (c *Column) Count() *Column { return c.Func("COUNT") }

// CountDistinct wraps the column in COUNT(DISTINCT ).
func (c *Column) CountDistinct() *Column { return c.FuncDistinct("COUNT") }

// Sum wraps the column in SUM().
func (c *Column) Sum() *Column { return c.Func("SUM") }

// Cast wraps the column in CAST(... AS typ).
func (c *Column) Cast(typ string) *Column { return c.Format("CAST({column} AS %s)", typ) }

// Func wraps the column in a single-argument SQL function.
func (c *Column) Func(name string) *Column { return c.Format("%s({column})", name) }

// FuncDistinct wraps the column in a DISTINCT aggregate.
func (c *Column) FuncDistinct(name string) *Column { return c.Format("%s(DISTINCT {column})", name) }

// FuncArgs wraps the column in a function taking extra arguments, e.g.
// GROUP_CONCAT(col, ', '). Extra arguments are rendered verbatim.
func (c *Column) FuncArgs(name string, args ...string) *Column {
	return c.Format("%s({column}, %s)", name, strings.Join(args, ", "))
}

// defaultAlias forces row id expressions to IDAlias so row consumers can
// treat it as the primary key uniformly.
func defaultAlias(expr, fallback string) string {
	if strings.HasSuffix(expr, "._id") || strings.HasSuffix(expr, ".id") {
		return IDAlias
	}
	return fallback
}
