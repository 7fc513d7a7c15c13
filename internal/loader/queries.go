package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sqlpath/internal/query"
)

// QueryDoc is the declarative form of a query. A query file is a YAML
// stream of QueryDocs separated by "---".
//
//	name: leader_song_counts
//	from: Leader
//	select:
//	  - Leader.name
//	  - {column: Song.title, func: COUNT, as: songs}
//	group: [Leader.id]
//	order:
//	  - {column: Leader.name, dir: asc}
//
// Where and Having are lists of groups; groups join with AND and render
// parenthesized.
type QueryDoc struct {
	Name         string      `yaml:"name"`
	From         string      `yaml:"from,omitempty"`
	Distinct     bool        `yaml:"distinct,omitempty"`
	List         bool        `yaml:"list,omitempty"`
	Select       []ItemDoc   `yaml:"select"`
	SectionIndex *OrderDoc   `yaml:"section_index,omitempty"`
	Join         []string    `yaml:"join,omitempty"`
	LeftJoin     []string    `yaml:"left_join,omitempty"`
	Where        [][]PredDoc `yaml:"where,omitempty"`
	Group        []string    `yaml:"group,omitempty"`
	Having       [][]PredDoc `yaml:"having,omitempty"`
	Union        []string    `yaml:"union,omitempty"`
	Order        []OrderDoc  `yaml:"order,omitempty"`
	Limit        *int        `yaml:"limit,omitempty"`
	Offset       *int        `yaml:"offset,omitempty"`
	Args         []any       `yaml:"args,omitempty"`
}

// ItemDoc is a select item: a column reference, optionally wrapped, or raw
// SQL. A bare string is a column reference.
type ItemDoc struct {
	Column   string `yaml:"column,omitempty"`
	Raw      string `yaml:"raw,omitempty"`
	Func     string `yaml:"func,omitempty"`
	Distinct bool   `yaml:"distinct,omitempty"`
	Format   string `yaml:"format,omitempty"`
	As       string `yaml:"as,omitempty"`
}

// UnmarshalYAML accepts a bare column reference or a mapping.
func (d *ItemDoc) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		d.Column = node.Value
		return nil
	}
	type plain ItemDoc
	return node.Decode((*plain)(d))
}

// PredDoc is one predicate of a WHERE or HAVING group. Predicates after the
// first in a group join with AND unless Or is set. The operand is Value, or
// the column named by ValueColumn.
type PredDoc struct {
	Item        ItemDoc `yaml:",inline"`
	Op          string  `yaml:"op,omitempty"`
	Value       any     `yaml:"value,omitempty"`
	ValueColumn string  `yaml:"value_column,omitempty"`
	Or          bool    `yaml:"or,omitempty"`
}

// OrderDoc is an ORDER BY term.
type OrderDoc struct {
	Item ItemDoc `yaml:",inline"`
	Dir  string  `yaml:"dir,omitempty"`
}

// UnmarshalYAML accepts a bare column reference or a mapping.
func (d *OrderDoc) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		d.Item.Column = node.Value
		return nil
	}
	type plain OrderDoc
	return node.Decode((*plain)(d))
}

// NamedQuery is a compiled query document.
type NamedQuery struct {
	Name  string
	Query *query.Query
	Args  []any
}

// LoadQueries reads a query file and compiles every document against s.
func LoadQueries(path string, s *Schema) ([]NamedQuery, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, newLoadError(ErrCodeNotFound, "", "query file not found: %s", path)
	}
	if err != nil {
		return nil, newLoadError(ErrCodeReadFailed, "", "reading queries: %v", err)
	}
	return ParseQueries(data, s)
}

// ParseQueries decodes a YAML stream of query documents and compiles them in
// order. A document may union any document before it.
func ParseQueries(data []byte, s *Schema) ([]NamedQuery, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var out []NamedQuery
	byName := make(map[string]*query.Query)
	for i := 0; ; i++ {
		var doc QueryDoc
		err := decoder.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, newLoadError(ErrCodeParseFailed, fmt.Sprintf("document %d", i), "parsing YAML: %v", err)
		}

		path := fmt.Sprintf("document %d", i)
		if doc.Name == "" {
			return nil, newLoadError(ErrCodeQuery, path, "query name is required")
		}
		path = doc.Name
		if _, dup := byName[doc.Name]; dup {
			return nil, newLoadError(ErrCodeDuplicate, path, "query %q declared twice", doc.Name)
		}

		q, err := s.Compile(doc, byName)
		if err != nil {
			var le *LoadError
			if errors.As(err, &le) && le.Path == "" {
				le.Path = path
			}
			return nil, err
		}
		byName[doc.Name] = q
		out = append(out, NamedQuery{Name: doc.Name, Query: q, Args: doc.Args})
	}
	return out, nil
}

// Compile builds a query from doc. siblings resolves Union names.
func (s *Schema) Compile(doc QueryDoc, siblings map[string]*query.Query) (*query.Query, error) {
	q := query.New(s.Registry)
	if doc.From != "" {
		t, err := s.Table(doc.From)
		if err != nil {
			return nil, newLoadError(ErrCodeTable, "", "from: %v", err)
		}
		q.From(t)
	}
	if doc.Distinct {
		q.Distinct()
	}

	if doc.List {
		if q.FromTable() == nil {
			return nil, newLoadError(ErrCodeQuery, "", "list queries need from")
		}
		q.Select(q.FromTable().ID).Group(q.FromTable().ID)
	}
	for i, item := range doc.Select {
		expr, err := s.item(item)
		if err != nil {
			return nil, newLoadError(ErrCodeColumn, "", "select[%d]: %v", i, err)
		}
		q.Select(expr)
		if item.As != "" {
			q.As(item.As)
		}
	}
	if doc.SectionIndex != nil {
		expr, err := s.item(doc.SectionIndex.Item)
		if err != nil {
			return nil, newLoadError(ErrCodeColumn, "", "section_index: %v", err)
		}
		if doc.SectionIndex.Dir == "" {
			q.SectionIndex(expr)
		} else {
			dir, err := query.ParseDirection(doc.SectionIndex.Dir)
			if err != nil {
				return nil, newLoadError(ErrCodeOperator, "", "section_index: %v", err)
			}
			q.SectionIndex(expr, dir)
		}
	}

	for _, name := range doc.Join {
		t, err := s.Table(name)
		if err != nil {
			return nil, newLoadError(ErrCodeTable, "", "join: %v", err)
		}
		q.Join(t)
	}
	for _, name := range doc.LeftJoin {
		t, err := s.Table(name)
		if err != nil {
			return nil, newLoadError(ErrCodeTable, "", "left_join: %v", err)
		}
		q.LeftJoin(t)
	}

	if err := s.predicates(q, "where", doc.Where, q.Where); err != nil {
		return nil, err
	}
	for i, ref := range doc.Group {
		c, err := s.Column(ref)
		if err != nil {
			return nil, newLoadError(ErrCodeColumn, "", "group[%d]: %v", i, err)
		}
		q.Group(c)
	}
	if err := s.predicates(q, "having", doc.Having, q.Having); err != nil {
		return nil, err
	}

	for _, name := range doc.Union {
		sibling, ok := siblings[name]
		if !ok {
			return nil, newLoadError(ErrCodeUnion, "", "unknown union sibling %q", name)
		}
		q.Union(sibling)
	}

	for i, o := range doc.Order {
		expr, err := s.item(o.Item)
		if err != nil {
			return nil, newLoadError(ErrCodeColumn, "", "order[%d]: %v", i, err)
		}
		dir := query.Asc
		if o.Dir != "" {
			if dir, err = query.ParseDirection(o.Dir); err != nil {
				return nil, newLoadError(ErrCodeOperator, "", "order[%d]: %v", i, err)
			}
		}
		q.Order(expr, dir)
	}
	if doc.Limit != nil {
		q.Limit(*doc.Limit)
	}
	if doc.Offset != nil {
		q.Offset(*doc.Offset)
	}

	if err := q.Err(); err != nil {
		if query.IsNoJoinPath(err) || query.IsAmbiguousJoinPath(err) {
			return nil, newLoadError(ErrCodeJoin, "", "%v", err)
		}
		return nil, newLoadError(ErrCodeOperator, "", "%v", err)
	}
	return q, nil
}

// predicates adds groups; start is q.Where or q.Having.
func (s *Schema) predicates(q *query.Query, clause string, groups [][]PredDoc, start func(any, string, any) *query.Query) error {
	for i, group := range groups {
		for j, p := range group {
			col, err := s.item(p.Item)
			if err != nil {
				return newLoadError(ErrCodeColumn, "", "%s[%d][%d]: %v", clause, i, j, err)
			}
			val := p.Value
			if p.ValueColumn != "" {
				if val, err = s.Column(p.ValueColumn); err != nil {
					return newLoadError(ErrCodeColumn, "", "%s[%d][%d]: %v", clause, i, j, err)
				}
			}
			switch {
			case j == 0:
				start(col, p.Op, val)
			case p.Or:
				q.Or(col, p.Op, val)
			default:
				q.And(col, p.Op, val)
			}
		}
	}
	return nil
}

// item resolves a select/predicate/order item to an expression.
func (s *Schema) item(d ItemDoc) (any, error) {
	if d.Raw != "" {
		if d.Column != "" {
			return nil, errors.New("item has both column and raw")
		}
		return query.Raw(d.Raw), nil
	}
	c, err := s.Column(d.Column)
	if err != nil {
		return nil, err
	}
	if d.Format != "" {
		c = c.Format(d.Format)
	}
	switch {
	case d.Func != "" && d.Distinct:
		c = c.FuncDistinct(d.Func)
	case d.Func != "":
		c = c.Func(d.Func)
	case d.Distinct:
		return nil, errors.New("distinct needs func")
	}
	return c, nil
}
