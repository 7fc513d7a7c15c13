package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/sqlpath/internal/loader"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Names       []string
	Concurrency int
}

// RenderedQuery is one rendered query document.
type RenderedQuery struct {
	Name  string   `json:"name"`
	SQL   string   `json:"sql"`
	Joins []string `json:"joins,omitempty"`
	Args  []any    `json:"args,omitempty"`
}

// RenderResult is the render payload, in document order.
type RenderResult struct {
	Queries []RenderedQuery `json:"queries"`
}

// WriteText prints each query as a named SQL statement.
func (r RenderResult) WriteText(w io.Writer) error {
	for i, q := range r.Queries {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "-- %s\n%s;\n", q.Name, q.SQL); err != nil {
			return err
		}
	}
	return nil
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render <schema> <queries>",
		Short: "Render query documents to SQL",
		Long: `Compile every document of a YAML query file against a schema and print
the rendered SQL, joins included.

Documents render concurrently against the finalized schema; output keeps
file order.

Example:
  sqlpath render ./hymnal.cue ./queries.yaml
  sqlpath render --name song_list --format json ./hymnal.cue ./queries.yaml`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Names, "name", nil, "render only the named documents")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 4, "maximum documents rendered at once")

	return cmd
}

func runRender(opts *RenderOptions, schemaPath, queriesPath string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	if opts.Concurrency < 1 {
		return f.Fail(ExitCommandError, "invalid flags", fmt.Errorf("--concurrency must be at least 1, got %d", opts.Concurrency))
	}

	ws, err := loadWorkspace(schemaPath, queriesPath, opts.Names)
	if err != nil {
		return f.Fail(ExitCommandError, "failed to load queries", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rendered, err := renderAll(ctx, ws.Queries, opts.Concurrency)
	if err != nil {
		return f.Fail(ExitFailure, "failed to render", err)
	}
	return f.Success(RenderResult{Queries: rendered})
}

// renderAll renders queries with at most limit in flight. The first failure
// cancels the rest.
func renderAll(ctx context.Context, queries []loader.NamedQuery, limit int) ([]RenderedQuery, error) {
	out := make([]RenderedQuery, len(queries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, nq := range queries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sql, err := nq.Query.Render()
			if err != nil {
				return fmt.Errorf("%s: %w", nq.Name, err)
			}
			clauses, err := nq.Query.Joins()
			if err != nil {
				return fmt.Errorf("%s: %w", nq.Name, err)
			}

			joins := make([]string, len(clauses))
			for j, c := range clauses {
				joins[j] = strings.TrimSpace(c.String())
			}
			out[i] = RenderedQuery{Name: nq.Name, SQL: sql, Joins: joins, Args: nq.Args}
			slog.Debug("rendered query", "name", nq.Name, "joins", len(joins))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
