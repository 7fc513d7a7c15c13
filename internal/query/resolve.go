package query

// JoinClause is one resolved JOIN of a query.
type JoinClause struct {
	Table string // Joined table name
	On    string // ON predicate text
	Outer bool   // LEFT JOIN when true
}

// String renders the clause with a leading space: " JOIN t ON ..." or
// " LEFT JOIN t ON ...".
func (j JoinClause) String() string {
	kw := " JOIN "
	if j.Outer {
		kw = " LEFT JOIN "
	}
	return kw + j.Table + " ON " + j.On
}

// joinSet is an insertion-ordered map from joined table name to clause.
// Each table appears at most once; the first clause to reach a table wins.
type joinSet struct {
	order   []string
	clauses map[string]JoinClause
}

func newJoinSet() *joinSet {
	return &joinSet{clauses: make(map[string]JoinClause)}
}

func (s *joinSet) has(table string) bool {
	_, ok := s.clauses[table]
	return ok
}

func (s *joinSet) add(table, on string, outer bool) {
	if s.has(table) {
		return
	}
	s.order = append(s.order, table)
	s.clauses[table] = JoinClause{Table: table, On: on, Outer: outer}
}

func (s *joinSet) get(table string) (JoinClause, bool) {
	c, ok := s.clauses[table]
	return c, ok
}

func (s *joinSet) remove(table string) {
	if !s.has(table) {
		return
	}
	delete(s.clauses, table)
	for i, name := range s.order {
		if name == table {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *joinSet) clone() *joinSet {
	c := &joinSet{
		order:   make([]string, len(s.order)),
		clauses: make(map[string]JoinClause, len(s.clauses)),
	}
	copy(c.order, s.order)
	for k, v := range s.clauses {
		c.clauses[k] = v
	}
	return c
}

func (s *joinSet) list() []JoinClause {
	out := make([]JoinClause, len(s.order))
	for i, name := range s.order {
		out[i] = s.clauses[name]
	}
	return out
}

// resolve adds the clauses needed to reach target from source to joins.
//
// Search order:
//  1. target is source or already joined: nothing to do.
//  2. A direct source-target edge.
//  3. A direct edge from any already joined table, in join order.
//  4. A single bridging table adjacent to both source and target, which adds
//     two clauses: source-bridge, then bridge-target.
//
// Each clause is outer if its edge was declared outer or outer is requested.
// Zero bridges fail with NO_JOIN_PATH, several with AMBIGUOUS_JOIN_PATH.
func (q *Query) resolve(joins *joinSet, source, target *Table, outer bool) error {
	if target.name == source.name || joins.has(target.name) {
		return nil
	}
	reg := q.registry()

	if e, ok := reg.Edge(source.name, target.name); ok {
		joins.add(target.name, e.On, e.Outer || outer)
		return nil
	}

	for _, joined := range joins.order {
		if e, ok := reg.Edge(joined, target.name); ok {
			joins.add(target.name, e.On, e.Outer || outer)
			return nil
		}
	}

	var bridges []string
	for _, mid := range reg.neighborsOf(source.name) {
		if mid == source.name || mid == target.name {
			continue
		}
		if _, ok := reg.Edge(mid, target.name); ok {
			bridges = append(bridges, mid)
		}
	}
	switch len(bridges) {
	case 0:
		return newNoJoinPath(source.name, target.name)
	case 1:
	default:
		return newAmbiguousJoinPath(source.name, target.name, bridges)
	}

	mid := bridges[0]
	first, _ := reg.Edge(source.name, mid)
	joins.add(mid, first.On, first.Outer || outer)
	second, _ := reg.Edge(mid, target.name)
	joins.add(target.name, second.On, second.Outer || outer)
	return nil
}
