package query

import (
	"fmt"
)

// JoinEdge relates two tables by name.
//
// Edges are stored symmetrically: declaring A-B also makes B-A available with
// the same ON text and outer flag, so the declaration direction never matters.
type JoinEdge struct {
	Left  string // Table the edge was declared from
	Right string // Table the edge was declared to
	On    string // ON predicate text, e.g. "Song.id = Lead.song_id"
	Outer bool   // Rendered as LEFT JOIN when true
}

// Registry holds every declared table and the join graph between them.
//
// A Registry has two phases:
//
//  1. Setup: Declare tables, add columns, register joins and OnCreate hooks.
//     Setup is single-goroutine.
//  2. Frozen: Finalize runs every OnCreate hook once all tables exist, then
//     freezes the registry. A frozen registry is never mutated again and is
//     safe for unsynchronized concurrent reads by any number of queries.
//
// Mutating a frozen registry panics.
type Registry struct {
	tables map[string]*Table
	order  []*Table

	edges     map[string]map[string]JoinEdge
	neighbors map[string][]string // registration order, for deterministic bridge search
	edgeList  []JoinEdge

	hooks  []createHook
	frozen bool
}

type createHook struct {
	table *Table
	fn    func(*Table) error
}

// NewRegistry creates an empty registry in the setup phase.
func NewRegistry() *Registry {
	return &Registry{
		tables:    make(map[string]*Table),
		edges:     make(map[string]map[string]JoinEdge),
		neighbors: make(map[string][]string),
	}
}

// Declare creates a table with an implicit id column.
// Declaring an existing name returns the existing table.
func (r *Registry) Declare(name string) *Table {
	if t, ok := r.tables[name]; ok {
		return t
	}
	r.mustBeOpen("declare table " + name)

	t := newTable(r, name)
	r.tables[name] = t
	r.order = append(r.order, t)
	return t
}

// Lookup returns a declared table by name.
func (r *Registry) Lookup(name string) (*Table, bool) {
	t, ok := r.tables[name]
	return t, ok
}

// Tables returns every declared table in declaration order.
func (r *Registry) Tables() []*Table {
	out := make([]*Table, len(r.order))
	copy(out, r.order)
	return out
}

// Edges returns every declared join edge in declaration order, one entry per
// declared pair.
func (r *Registry) Edges() []JoinEdge {
	out := make([]JoinEdge, len(r.edgeList))
	copy(out, r.edgeList)
	return out
}

// Join declares an inner join between the tables of two columns:
// ON "<a> = <b>".
func (r *Registry) Join(a, b *Column) {
	r.JoinTables(a.Table(), b.Table(), a.String()+" = "+b.String(), false)
}

// LeftJoin declares an outer join between the tables of two columns.
func (r *Registry) LeftJoin(a, b *Column) {
	r.JoinTables(a.Table(), b.Table(), a.String()+" = "+b.String(), true)
}

// JoinTables declares a join edge between two tables with explicit ON text.
// Re-declaring a pair replaces the previous edge.
func (r *Registry) JoinTables(a, b *Table, on string, outer bool) {
	r.mustBeOpen(fmt.Sprintf("join %s to %s", a, b))

	r.putEdge(a.name, b.name, on, outer)
	r.putEdge(b.name, a.name, on, outer)

	e := JoinEdge{Left: a.name, Right: b.name, On: on, Outer: outer}
	for i, existing := range r.edgeList {
		if (existing.Left == a.name && existing.Right == b.name) ||
			(existing.Left == b.name && existing.Right == a.name) {
			r.edgeList[i] = e
			return
		}
	}
	r.edgeList = append(r.edgeList, e)
}

func (r *Registry) putEdge(from, to, on string, outer bool) {
	m := r.edges[from]
	if m == nil {
		m = make(map[string]JoinEdge)
		r.edges[from] = m
	}
	if _, exists := m[to]; !exists {
		r.neighbors[from] = append(r.neighbors[from], to)
	}
	m[to] = JoinEdge{Left: from, Right: to, On: on, Outer: outer}
}

// Edge returns the join edge between two tables, in either direction.
func (r *Registry) Edge(from, to string) (JoinEdge, bool) {
	e, ok := r.edges[from][to]
	return e, ok
}

// neighborsOf returns the tables directly joined to name, in registration order.
func (r *Registry) neighborsOf(name string) []string {
	return r.neighbors[name]
}

// Finalize runs every OnCreate hook in declaration order and freezes the
// registry. Hooks may add columns to their table and reference columns of
// any other declared table.
//
// A hook runs at most once: when one fails, Finalize returns its error and a
// later call resumes with the failed hook. Calling Finalize on a frozen
// registry is a no-op.
func (r *Registry) Finalize() error {
	if r.frozen {
		return nil
	}
	for len(r.hooks) > 0 {
		h := r.hooks[0]
		if err := h.fn(h.table); err != nil {
			return fmt.Errorf("create table %s: %w", h.table.name, err)
		}
		r.hooks = r.hooks[1:]
	}
	r.hooks = nil
	r.frozen = true
	return nil
}

// Frozen reports whether Finalize has completed.
func (r *Registry) Frozen() bool {
	return r.frozen
}

func (r *Registry) mustBeOpen(op string) {
	if r.frozen {
		panic(fmt.Sprintf("query: %s: registry is frozen", op))
	}
}
