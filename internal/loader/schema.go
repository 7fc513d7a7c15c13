package loader

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/sqlpath/internal/query"
)

// SchemaDoc is the declarative form of a registry. The same shape is read
// from YAML and from CUE.
type SchemaDoc struct {
	Tables []TableDoc `yaml:"tables" json:"tables"`
	Joins  []JoinDoc  `yaml:"joins" json:"joins"`
}

// TableDoc declares a table and its plain columns. Every table has an
// implicit id column.
type TableDoc struct {
	Name     string        `yaml:"name" json:"name"`
	Columns  []string      `yaml:"columns" json:"columns"`
	Computed []ComputedDoc `yaml:"computed,omitempty" json:"computed,omitempty"`
}

// ComputedDoc declares a column added once every table exists.
//
// Exactly one of Column or Subquery is set:
//
//	{name: leaders, column: Lead.leader_id, format: "COUNT(DISTINCT {column})", correlated: true}
//	{name: last_year, subquery: "SELECT MAX(year) FROM Singing WHERE ..."}
type ComputedDoc struct {
	// Name is the reference used by query documents: "<table>.<name>".
	Name string `yaml:"name" json:"name"`

	// Column is the "<table>.<column>" the expression is built from.
	Column string `yaml:"column,omitempty" json:"column,omitempty"`

	// Format wraps the column; see query.Column.Format.
	Format string `yaml:"format,omitempty" json:"format,omitempty"`

	// Correlated turns the expression into a subquery correlated with the
	// owning table through the join graph.
	Correlated bool `yaml:"correlated,omitempty" json:"correlated,omitempty"`

	// Subquery is raw SELECT text.
	Subquery string `yaml:"subquery,omitempty" json:"subquery,omitempty"`
}

// JoinDoc declares a join edge. With On set, Left and Right are table
// names; otherwise they are "<table>.<column>" references joined by equality.
type JoinDoc struct {
	Left  string `yaml:"left" json:"left"`
	Right string `yaml:"right" json:"right"`
	On    string `yaml:"on,omitempty" json:"on,omitempty"`
	Outer bool   `yaml:"outer,omitempty" json:"outer,omitempty"`
}

// Schema is a finalized registry plus the names its columns were declared
// under.
type Schema struct {
	Registry *query.Registry
	columns  map[string]*query.Column
}

// Table returns a declared table.
func (s *Schema) Table(name string) (*query.Table, error) {
	t, ok := s.Registry.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown table %q", name)
	}
	return t, nil
}

// Column resolves a "<table>.<column>" reference to a declared plain,
// id or computed column.
func (s *Schema) Column(ref string) (*query.Column, error) {
	c, ok := s.columns[ref]
	if !ok {
		return nil, fmt.Errorf("unknown column %q", ref)
	}
	return c, nil
}

// LoadSchema reads a schema file. The format follows the extension: .cue,
// .yaml or .yml.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, newLoadError(ErrCodeNotFound, "", "schema file not found: %s", path)
	}
	if err != nil {
		return nil, newLoadError(ErrCodeReadFailed, "", "reading schema: %v", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return ParseSchemaCUE(data, path)
	case ".yaml", ".yml":
		return ParseSchemaYAML(data)
	default:
		return nil, newLoadError(ErrCodeBadFormat, "", "unsupported schema format %q (want .cue, .yaml or .yml)", filepath.Ext(path))
	}
}

// ParseSchemaYAML builds a schema from a YAML document. Unknown fields are
// rejected.
func ParseSchemaYAML(data []byte) (*Schema, error) {
	var doc SchemaDoc
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, newLoadError(ErrCodeParseFailed, "", "parsing YAML: %v", err)
	}
	return Build(doc)
}

// schemaDefinition closes the CUE document: unknown fields and malformed
// identifiers fail evaluation.
const schemaDefinition = `
#Ident: =~"^[A-Za-z_][A-Za-z0-9_]*$"

#Schema: {
	tables: [...#Table]
	joins?: [...#Join]
}

#Table: {
	name:      #Ident
	columns?:  [...#Ident]
	computed?: [...#Computed]
}

#Computed: {
	name:        #Ident
	column?:     string
	format?:     string
	correlated?: bool
	subquery?:   string
}

#Join: {
	left:   string
	right:  string
	on?:    string
	outer?: bool
}
`

// ParseSchemaCUE builds a schema from CUE source. The source is unified
// with a closed schema definition before it is read, and schema errors are
// reported at their CUE position.
func ParseSchemaCUE(data []byte, filename string) (*Schema, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, formatCUEError(ErrCodeParseFailed, err)
	}

	def := ctx.CompileString(schemaDefinition, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#Schema"))
	value = def.Unify(value)
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(ErrCodeBuildFailed, err)
	}

	var doc SchemaDoc
	if err := value.Decode(&doc); err != nil {
		return nil, formatCUEError(ErrCodeBuildFailed, err)
	}

	schema, err := Build(doc)
	var le *LoadError
	if errors.As(err, &le) && le.Path != "" && !le.Pos.IsValid() {
		if v := value.LookupPath(cue.ParsePath(le.Path)); v.Exists() {
			le.Pos = v.Pos()
		}
	}
	return schema, err
}

// Build declares every table, column and join of doc on a new registry and
// finalizes it. Computed columns are added by OnCreate hooks so they may
// reference any table.
func Build(doc SchemaDoc) (*Schema, error) {
	reg := query.NewRegistry()
	s := &Schema{Registry: reg, columns: make(map[string]*query.Column)}

	for i, td := range doc.Tables {
		path := fmt.Sprintf("tables[%d]", i)
		if td.Name == "" {
			return nil, newLoadError(ErrCodeTable, path, "table name is required")
		}
		if _, exists := reg.Lookup(td.Name); exists {
			return nil, newLoadError(ErrCodeTable, path, "table %q declared twice", td.Name)
		}

		t := reg.Declare(td.Name)
		s.columns[td.Name+".id"] = t.ID
		for j, name := range td.Columns {
			if name == "" || strings.ContainsAny(name, ". ") {
				return nil, newLoadError(ErrCodeColumn, fmt.Sprintf("%s.columns[%d]", path, j), "invalid column name %q", name)
			}
			s.columns[td.Name+"."+name] = t.Column(name)
		}
	}

	for i, jd := range doc.Joins {
		if err := s.declareJoin(jd); err != nil {
			err.Path = fmt.Sprintf("joins[%d]", i)
			return nil, err
		}
	}

	var pending []computedEntry
	for i, td := range doc.Tables {
		t, _ := reg.Lookup(td.Name)
		for j, cd := range td.Computed {
			path := fmt.Sprintf("tables[%d].computed[%d]", i, j)
			ref := td.Name + "." + cd.Name
			if cd.Name == "" {
				return nil, newLoadError(ErrCodeComputed, path, "computed column name is required")
			}
			if _, exists := s.columns[ref]; exists {
				return nil, newLoadError(ErrCodeComputed, path, "column %q declared twice", ref)
			}
			if (cd.Column == "") == (cd.Subquery == "") {
				return nil, newLoadError(ErrCodeComputed, path, "exactly one of column or subquery is required")
			}
			// Reserve the name now; the hook fills it in.
			s.columns[ref] = nil
			pending = append(pending, computedEntry{table: t, ref: ref, path: path, doc: cd})
		}
	}
	if err := s.registerComputed(pending); err != nil {
		return nil, err
	}

	if err := reg.Finalize(); err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			return nil, le
		}
		return nil, newLoadError(ErrCodeComputed, "", "%v", err)
	}
	return s, nil
}

func (s *Schema) declareJoin(jd JoinDoc) *LoadError {
	if jd.On != "" {
		left, lok := s.Registry.Lookup(jd.Left)
		right, rok := s.Registry.Lookup(jd.Right)
		if !lok || !rok {
			return newLoadError(ErrCodeJoin, "", "join with on requires table names, got %q and %q", jd.Left, jd.Right)
		}
		s.Registry.JoinTables(left, right, jd.On, jd.Outer)
		return nil
	}

	left, err := s.Column(jd.Left)
	if err != nil {
		return newLoadError(ErrCodeJoin, "", "%v", err)
	}
	right, err := s.Column(jd.Right)
	if err != nil {
		return newLoadError(ErrCodeJoin, "", "%v", err)
	}
	if left.Table() == right.Table() {
		return newLoadError(ErrCodeJoin, "", "cannot join %s to itself", left.Table())
	}
	if jd.Outer {
		s.Registry.LeftJoin(left, right)
	} else {
		s.Registry.Join(left, right)
	}
	return nil
}

type computedEntry struct {
	table *query.Table
	ref   string
	path  string
	doc   ComputedDoc
}

// registerComputed registers the OnCreate hooks of computed columns so that a
// column built from another computed column runs after it, whatever the
// declaration order of their tables.
func (s *Schema) registerComputed(pending []computedEntry) *LoadError {
	waiting := make(map[string]bool, len(pending))
	for _, e := range pending {
		waiting[e.ref] = true
	}
	for len(pending) > 0 {
		var rest []computedEntry
		for _, e := range pending {
			if e.doc.Column != "" && waiting[e.doc.Column] && e.doc.Column != e.ref {
				rest = append(rest, e)
				continue
			}
			if e.doc.Column == e.ref {
				return newLoadError(ErrCodeComputed, e.path, "computed column %q is built from itself", e.ref)
			}
			e.table.OnCreate(s.computedHook(e.ref, e.path, e.doc))
			delete(waiting, e.ref)
		}
		if len(rest) == len(pending) {
			e := rest[0]
			return newLoadError(ErrCodeComputed, e.path, "computed column %q depends on %q in a cycle", e.ref, e.doc.Column)
		}
		pending = rest
	}
	return nil
}

func (s *Schema) computedHook(ref, path string, cd ComputedDoc) func(*query.Table) error {
	return func(t *query.Table) error {
		if cd.Subquery != "" {
			s.columns[ref] = t.Subquery(cd.Subquery)
			return nil
		}

		src, err := s.Column(cd.Column)
		if err != nil {
			return newLoadError(ErrCodeComputed, path, "unknown source column %q", cd.Column)
		}
		if src == nil {
			return newLoadError(ErrCodeComputed, path, "source column %q is not built yet", cd.Column)
		}
		expr := src
		if cd.Format != "" {
			expr = src.Format(cd.Format)
		}

		if cd.Correlated {
			col, err := t.SubqueryOf(expr)
			if err != nil {
				return newLoadError(ErrCodeComputed, path, "correlating %s: %v", ref, err)
			}
			s.columns[ref] = col
			return nil
		}
		s.columns[ref] = t.Add(expr)
		return nil
	}
}
