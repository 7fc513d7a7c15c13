package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/sqlpath/internal/loader"
)

// Workspace is a loaded schema plus the query documents a command runs.
type Workspace struct {
	Schema  *loader.Schema
	Queries []loader.NamedQuery
}

// loadSchema loads the schema file, logging what it found.
func loadSchema(path string) (*loader.Schema, error) {
	slog.Info("loading schema", "path", path)
	s, err := loader.LoadSchema(path)
	if err != nil {
		return nil, err
	}
	slog.Debug("schema loaded", "tables", len(s.Registry.Tables()), "joins", len(s.Registry.Edges()))
	return s, nil
}

// loadWorkspace loads the schema and compiles the query file against it.
// With names set, only those documents are kept, in file order; every name
// must exist.
func loadWorkspace(schemaPath, queriesPath string, names []string) (*Workspace, error) {
	s, err := loadSchema(schemaPath)
	if err != nil {
		return nil, err
	}

	slog.Info("loading queries", "path", queriesPath)
	all, err := loader.LoadQueries(queriesPath, s)
	if err != nil {
		return nil, err
	}

	ws := &Workspace{Schema: s, Queries: all}
	if len(names) > 0 {
		ws.Queries = nil
		for _, nq := range all {
			if slices.Contains(names, nq.Name) {
				ws.Queries = append(ws.Queries, nq)
			}
		}
		for _, name := range names {
			if !slices.ContainsFunc(ws.Queries, func(nq loader.NamedQuery) bool { return nq.Name == name }) {
				return nil, fmt.Errorf("query %q not found in %s", name, queriesPath)
			}
		}
	}
	slog.Debug("queries compiled", "count", len(ws.Queries))
	return ws, nil
}
