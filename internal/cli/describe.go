package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlpath/internal/query"
)

// SchemaSummary is the describe payload.
type SchemaSummary struct {
	Tables []TableSummary `json:"tables"`
	Joins  []JoinSummary  `json:"joins"`
}

// TableSummary lists one table's registered columns.
type TableSummary struct {
	Name    string          `json:"name"`
	Columns []ColumnSummary `json:"columns"`
}

// ColumnSummary describes a registered column by its output alias.
type ColumnSummary struct {
	Alias string `json:"alias"`
	Kind  string `json:"kind"`
	Expr  string `json:"expr"`
}

// JoinSummary is one declared join edge.
type JoinSummary struct {
	Left  string `json:"left"`
	Right string `json:"right"`
	On    string `json:"on"`
	Outer bool   `json:"outer,omitempty"`
}

// WriteText prints tables then joins.
func (s SchemaSummary) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, t := range s.Tables {
		fmt.Fprintf(tw, "%s\n", t.Name)
		for _, c := range t.Columns {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", c.Alias, c.Kind, c.Expr)
		}
	}
	if len(s.Joins) > 0 {
		fmt.Fprintln(tw, "joins")
		for _, j := range s.Joins {
			kind := "JOIN"
			if j.Outer {
				kind = "LEFT JOIN"
			}
			fmt.Fprintf(tw, "  %s - %s\t%s\t%s\n", j.Left, j.Right, kind, j.On)
		}
	}
	return tw.Flush()
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe <schema>",
		Short: "List the tables, columns and join edges of a schema",
		Long: `Load a schema file (.cue, .yaml or .yml) and print its tables, their
registered columns with output aliases, and the declared join edges.

Example:
  sqlpath describe ./hymnal.cue
  sqlpath describe --format json ./hymnal.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runDescribe(opts *RootOptions, schemaPath string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	s, err := loadSchema(schemaPath)
	if err != nil {
		return f.Fail(ExitCommandError, "failed to load schema", err)
	}
	return f.Success(summarize(s.Registry))
}

func summarize(reg *query.Registry) SchemaSummary {
	var out SchemaSummary
	for _, t := range reg.Tables() {
		ts := TableSummary{Name: t.Name()}
		for _, c := range t.Columns() {
			ts.Columns = append(ts.Columns, ColumnSummary{
				Alias: c.Alias(),
				Kind:  c.Kind().String(),
				Expr:  c.String(),
			})
		}
		out.Tables = append(out.Tables, ts)
	}
	for _, e := range reg.Edges() {
		out.Joins = append(out.Joins, JoinSummary{Left: e.Left, Right: e.Right, On: e.On, Outer: e.Outer})
	}
	return out
}
