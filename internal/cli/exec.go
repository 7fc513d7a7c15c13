package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlpath/internal/store"
)

// DefaultAlphabet is the section alphabet used when --alphabet is not set.
const DefaultAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// ExecOptions holds flags for the exec command.
type ExecOptions struct {
	*RootOptions
	Database string
	Seed     string
	Names    []string
	Alphabet string
}

// QueryRows is the result of one executed query document.
type QueryRows struct {
	Name     string         `json:"name"`
	Columns  []string       `json:"columns"`
	Rows     [][]*string    `json:"rows"`
	Sections []SectionCount `json:"sections,omitempty"`
}

// SectionCount is the number of rows in one non-empty section.
type SectionCount struct {
	Label    string `json:"label"`
	Position int    `json:"position"`
	Count    int    `json:"count"`
}

// ExecResult is the exec payload, in document order.
type ExecResult struct {
	Queries []QueryRows `json:"queries"`
}

// WriteText prints each result as an aligned table.
func (r ExecResult) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, q := range r.Queries {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "-- %s (%d rows)\n", q.Name, len(q.Rows))
		fmt.Fprintln(tw, strings.Join(q.Columns, "\t"))
		for _, row := range q.Rows {
			cells := make([]string, len(row))
			for j, v := range row {
				if v == nil {
					cells[j] = "NULL"
				} else {
					cells[j] = *v
				}
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
		if len(q.Sections) > 0 {
			parts := make([]string, len(q.Sections))
			for j, s := range q.Sections {
				parts[j] = fmt.Sprintf("%s@%d:%d", s.Label, s.Position, s.Count)
			}
			fmt.Fprintf(tw, "sections: %s\n", strings.Join(parts, " "))
		}
	}
	return tw.Flush()
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exec <schema> <queries>",
		Short: "Run query documents against a SQLite database",
		Long: `Compile the documents of a YAML query file against a schema, run them
against an existing SQLite database, and print the rows.

Document args bind to "?" placeholders in order. Queries that select a
section index also report how many rows fall in each section of the
alphabet.

Example:
  sqlpath exec --db ./hymnal.db ./hymnal.cue ./queries.yaml
  sqlpath exec --db ./hymnal.db --name singings_by_year --alphabet 0123456789 ./hymnal.cue ./queries.yaml`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Seed, "seed", "", "SQL script to execute before the queries")
	cmd.Flags().StringSliceVar(&opts.Names, "name", nil, "run only the named documents")
	cmd.Flags().StringVar(&opts.Alphabet, "alphabet", DefaultAlphabet, "section labels, one rune per section")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runExec(opts *ExecOptions, schemaPath, queriesPath string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	if _, err := os.Stat(opts.Database); errors.Is(err, os.ErrNotExist) {
		return f.Fail(ExitCommandError, "database not found", err)
	}

	ws, err := loadWorkspace(schemaPath, queriesPath, opts.Names)
	if err != nil {
		return f.Fail(ExitCommandError, "failed to load queries", err)
	}

	st, err := store.Open(opts.Database, ws.Schema.Registry)
	if err != nil {
		return f.Fail(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Seed != "" {
		script, err := os.ReadFile(opts.Seed)
		if err != nil {
			return f.Fail(ExitCommandError, "failed to read seed script", err)
		}
		if err := st.Exec(ctx, string(script)); err != nil {
			return f.Fail(ExitCommandError, "failed to seed database", err)
		}
		slog.Info("database seeded", "script", opts.Seed)
	}

	var result ExecResult
	for _, nq := range ws.Queries {
		res, err := st.Query(ctx, nq.Query, nq.Args...)
		if err != nil {
			return f.Fail(ExitFailure, fmt.Sprintf("query %s failed", nq.Name), err)
		}
		slog.Info("query executed", "name", nq.Name, "rows", res.Len())

		rows, err := toQueryRows(nq.Name, res, nq.Query.HasSectionIndex(), opts.Alphabet)
		if err != nil {
			return f.Fail(ExitFailure, fmt.Sprintf("query %s failed", nq.Name), err)
		}
		result.Queries = append(result.Queries, rows)
	}
	return f.Success(result)
}

func toQueryRows(name string, res *store.Result, sectioned bool, alphabet string) (QueryRows, error) {
	out := QueryRows{Name: name, Columns: res.Columns, Rows: make([][]*string, 0, res.Len())}
	for _, rec := range res.Records {
		row := make([]*string, len(res.Columns))
		for i, col := range res.Columns {
			if !rec.IsNull(col) {
				v := rec.String(col)
				row[i] = &v
			}
		}
		out.Rows = append(out.Rows, row)
	}

	if !sectioned {
		return out, nil
	}
	ix, err := res.Sections(alphabet)
	if err != nil {
		return out, fmt.Errorf("sections: %w", err)
	}
	labels := ix.Labels()
	for i, label := range labels {
		if n := ix.CountForSection(i); n > 0 {
			out.Sections = append(out.Sections, SectionCount{Label: label, Position: ix.PositionForSection(i), Count: n})
		}
	}
	return out, nil
}
