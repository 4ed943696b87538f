package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/riftdata/shardsql/internal/engine"
	"github.com/riftdata/shardsql/internal/orchestration"
	"github.com/riftdata/shardsql/internal/parser"
	"github.com/riftdata/shardsql/internal/parsetree"
	"github.com/riftdata/shardsql/internal/statement"
	"github.com/riftdata/shardsql/internal/ui"
	"github.com/riftdata/shardsql/internal/visitor"
	"github.com/riftdata/shardsql/pkg/logger"
)

var errNeedTree = errors.New("only PostgreSQL is parsed from text; pass a parse tree with --tree")

// Flag variables
var (
	treeFile    string
	sqlFile     string
	interactive bool
)

var parseCmd = &cobra.Command{
	Use:   "parse [sql]",
	Short: "Show the statement built from a DDL parse tree",
	Long: `Build the statement for one DDL statement and list its segments with
their character positions in the original SQL.`,
	Example: `  shardsql parse "ALTER TABLE t_order ADD COLUMN note TEXT"
  shardsql parse --tree alter_order.yaml
  shardsql parse --file schema.sql -o json`,
	RunE: runParse,
}

var routeCmd = &cobra.Command{
	Use:   "route [sql]",
	Short: "Show where statements run and which tables they touch",
	Example: `  shardsql route "DROP TABLE t_order, t_order_item"
  shardsql route --rules rules.yaml --file schema.sql`,
	RunE: runRoute,
}

var rewriteCmd = &cobra.Command{
	Use:   "rewrite [sql]",
	Short: "Print the SQL for every data source",
	Example: `  shardsql rewrite "CREATE TABLE t_order (order_id INT PRIMARY KEY)"
  shardsql rewrite --dialect mysql --tree create_order.json > shards.sql`,
	RunE: runRewrite,
}

func registerStatementCommands() {
	for _, cmd := range []*cobra.Command{parseCmd, routeCmd, rewriteCmd} {
		cmd.Flags().StringVarP(&treeFile, "tree", "t", "", "parse tree document (.json, .yaml)")
		cmd.Flags().StringVarP(&sqlFile, "file", "f", "", "read SQL from a file (- for stdin)")
		cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "force interactive mode")
		cmd.MarkFlagsMutuallyExclusive("tree", "file")
		rootCmd.AddCommand(cmd)
	}
}

// input is one unit of work: SQL text plus, for non-PostgreSQL dialects,
// the tree a grammar engine produced for it.
type input struct {
	dialect  *parsetree.Dialect
	sql      string
	root     *parsetree.Node
	prompted bool
}

func readInput(cmd *cobra.Command, args []string) (*input, error) {
	d, err := parsetree.LookupDialect(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	if treeFile != "" {
		doc, err := parsetree.Load(treeFile)
		if err != nil {
			return nil, err
		}
		if doc.Dialect != "" && !cmd.Flags().Changed("dialect") {
			if d, err = parsetree.LookupDialect(doc.Dialect); err != nil {
				return nil, err
			}
		}
		return &input{dialect: d, sql: doc.SQL, root: doc.Root}, nil
	}

	var sql string
	prompted := false
	switch {
	case len(args) > 0:
		sql = strings.Join(args, " ")
	case sqlFile == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		sql = string(data)
	case sqlFile != "":
		data, err := os.ReadFile(sqlFile) // #nosec G304 -- path is supplied by the operator
		if err != nil {
			return nil, fmt.Errorf("reading sql: %w", err)
		}
		sql = string(data)
	case interactive || stdinIsTerminal():
		if d != parsetree.PostgreSQL {
			return nil, fmt.Errorf("%s: %w", d.Name, errNeedTree)
		}
		details, err := ui.StatementForm([]string{d.Name}, d.Name)
		if err != nil {
			return nil, err
		}
		sql = details.SQL
		prompted = true
	default:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		sql = string(data)
	}

	if err := ui.ValidateSQL(sql); err != nil {
		return nil, err
	}
	if d != parsetree.PostgreSQL {
		return nil, fmt.Errorf("%s: %w", d.Name, errNeedTree)
	}
	return &input{dialect: d, sql: strings.TrimSpace(sql), prompted: prompted}, nil
}

func stdinIsTerminal() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice != 0
}

// analyze builds the statement of a single DDL statement.
func analyze(in *input) (statement.Statement, error) {
	if in.root != nil {
		return visitor.New(in.dialect).Visit(in.root)
	}
	pq, err := parser.Parse(in.sql)
	if err != nil {
		return nil, err
	}
	if pq.StatementCount() > 1 {
		logger.Warn("only the first statement is analyzed", "statements", pq.StatementCount())
	}
	if pq.Statement == nil {
		return nil, fmt.Errorf("%w: %s", visitor.ErrUnsupportedStatement, pq.Type)
	}
	return pq.Statement, nil
}

// newEngine loads the rules. With rules.watch set the rules keep following
// the file until ctx is done.
func newEngine(ctx context.Context) (*engine.Engine, error) {
	center := orchestration.NewFileCenter(cfg.Rules.File, orchestration.WithDebounce(cfg.Rules.Debounce))
	registry := orchestration.NewRegistry(center)
	if err := registry.Refresh(ctx); err != nil {
		return nil, err
	}
	if cfg.Rules.Watch {
		go func() {
			if err := registry.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("rules watch stopped", "err", err)
			}
		}()
	}
	return engine.New(registry), nil
}

// process routes and rewrites in. SQL text may hold several statements.
func process(ctx context.Context, eng *engine.Engine, in *input) ([]*engine.ProcessedQuery, error) {
	if in.root != nil {
		pq, err := eng.ProcessTree(ctx, in.dialect, in.sql, in.root)
		if err != nil {
			return nil, err
		}
		return []*engine.ProcessedQuery{pq}, nil
	}
	return eng.ProcessScript(ctx, in.sql)
}

func runParse(cmd *cobra.Command, args []string) error {
	in, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	stmt, err := analyze(in)
	if err != nil {
		return err
	}

	view := newStatementView(in.dialect.Name, in.sql, stmt)
	if handled, err := out.Data(view); handled {
		return err
	}

	out.Title(view.Kind)
	out.KeyValue("Dialect", view.Dialect)
	out.KeyValue("Tables", strings.Join(view.Tables, ", "))
	out.Print("")

	table := ui.NewTable(out, "SEGMENT", "START", "STOP", "TEXT", "DETAIL")
	for _, row := range segmentTableRows(view.Segments) {
		table.AddRow(row...)
	}
	return table.Render()
}

// runRoute keeps prompting after each statement when the SQL came from
// the interactive form.
func runRoute(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	in, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	eng, err := newEngine(ctx)
	if err != nil {
		return err
	}

	for {
		results, err := process(ctx, eng, in)
		if err != nil {
			if !in.prompted {
				return err
			}
			out.Error(err.Error())
		} else if err := printRoutes(results); err != nil {
			return err
		}
		if !in.prompted {
			return nil
		}

		out.Print("")
		in, err = readInput(cmd, nil)
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func printRoutes(results []*engine.ProcessedQuery) error {
	if handled, err := out.Data(results); handled {
		return err
	}

	for i, pq := range results {
		if i > 0 {
			out.Print("")
		}
		out.SQL(pq.OriginalSQL)
		switch {
		case pq.IsPassthrough:
			out.Info(fmt.Sprintf("%s passes through unchanged", pq.Type))
		case pq.Route != nil && pq.Route.Broadcast:
			out.Info("broadcast to every data source")
		}

		table := ui.NewTable(out, "DATA SOURCE", "TABLES", "SQL")
		for j, unit := range pq.Units {
			table.AddRow(unit.DataSource, tableMapping(pq, j), unit.SQL)
		}
		if err := table.Render(); err != nil {
			return err
		}
	}
	return nil
}

func runRewrite(cmd *cobra.Command, args []string) error {
	in, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	eng, err := newEngine(cmd.Context())
	if err != nil {
		return err
	}
	results, err := process(cmd.Context(), eng, in)
	if err != nil {
		return err
	}

	var units []engine.ExecutionUnit
	for _, pq := range results {
		units = append(units, pq.Units...)
	}
	if handled, err := out.Data(units); handled {
		return err
	}

	w := cmd.OutOrStdout()
	for _, unit := range units {
		if _, err := fmt.Fprintf(w, "-- %s\n%s;\n", unit.DataSource, unit.SQL); err != nil {
			return err
		}
	}
	return nil
}
