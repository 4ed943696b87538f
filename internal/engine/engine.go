// Package engine ties parsing, routing and rewriting together.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/riftdata/shardsql/internal/parser"
	"github.com/riftdata/shardsql/internal/parsetree"
	"github.com/riftdata/shardsql/internal/rewrite"
	"github.com/riftdata/shardsql/internal/router"
	"github.com/riftdata/shardsql/internal/rule"
	"github.com/riftdata/shardsql/internal/statement"
	"github.com/riftdata/shardsql/internal/visitor"
	"github.com/riftdata/shardsql/pkg/logger"
)

// ErrShardedDML is returned for non-DDL statements that touch sharded
// tables; only DDL is routed across shards.
var ErrShardedDML = errors.New("statement on sharded table is not supported")

// RuleProvider supplies the active rules.
type RuleProvider interface {
	Rules() (*rule.RuleSet, error)
}

// Engine processes SQL into per-data-source statements.
type Engine struct {
	rules  RuleProvider
	logger *log.Logger
}

type Option func(*Engine)

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an engine reading rules from provider.
func New(provider RuleProvider, opts ...Option) *Engine {
	e := &Engine{
		rules:  provider,
		logger: logger.With("component", "engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecutionUnit is the SQL to run on one data source.
type ExecutionUnit struct {
	DataSource string `json:"dataSource" yaml:"dataSource"`
	SQL        string `json:"sql" yaml:"sql"`
}

// ProcessedQuery holds the result of processing a SQL statement.
type ProcessedQuery struct {
	OriginalSQL   string              `json:"sql" yaml:"sql"`
	Dialect       string              `json:"dialect" yaml:"dialect"`
	Type          parser.QueryType    `json:"-" yaml:"-"`
	Statement     statement.Statement `json:"-" yaml:"-"`
	Route         *router.Result      `json:"route,omitempty" yaml:"route,omitempty"`
	Units         []ExecutionUnit     `json:"units" yaml:"units"`
	IsPassthrough bool                `json:"passthrough" yaml:"passthrough"`
}

// ProcessQuery parses PostgreSQL text and routes it. Only the first
// statement of sql is analyzed.
func (e *Engine) ProcessQuery(ctx context.Context, sql string) (*ProcessedQuery, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Transaction control passes through
	if parser.IsTransactionControl(sql) {
		return e.passthrough(sql, parser.QueryUtility)
	}

	pq, err := parser.Parse(sql)
	if err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}
	if pq.Statement == nil {
		rules, err := e.rules.Rules()
		if err != nil {
			return nil, err
		}
		for _, table := range pq.Tables {
			if (pq.IsReadOnly() || pq.IsWrite()) && rules.IsSharded(table.Name) {
				return nil, fmt.Errorf("%w: %s %s", ErrShardedDML, pq.Type, table.QualifiedName())
			}
		}
		return e.passthrough(sql, pq.Type)
	}

	if info := parser.ExtractDDLInfo(pq); info != nil {
		e.logger.Debug("ddl", "type", info.Type, "tables", info.Tables, "modeled", info.Modeled, "segments", info.Segments)
	}
	result, err := e.route(parsetree.PostgreSQL, sql, pq.Statement)
	if err != nil {
		return nil, err
	}
	result.Type = pq.Type
	return result, nil
}

// ProcessTree routes a statement parsed by an external grammar engine.
func (e *Engine) ProcessTree(ctx context.Context, dialect *parsetree.Dialect, sql string, root *parsetree.Node) (*ProcessedQuery, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := parsetree.Validate(root, len(sql)); err != nil {
		return nil, err
	}
	stmt, err := visitor.New(dialect).Visit(root)
	if err != nil {
		return nil, fmt.Errorf("visit %s tree: %w", dialect.Name, err)
	}
	result, err := e.route(dialect, sql, stmt)
	if err != nil {
		return nil, err
	}
	result.Type = parser.QueryDDL
	return result, nil
}

// ProcessScript splits sql on top-level semicolons and processes each
// statement in order.
func (e *Engine) ProcessScript(ctx context.Context, sql string) ([]*ProcessedQuery, error) {
	var results []*ProcessedQuery
	for i, stmt := range SplitStatements(sql) {
		pq, err := e.ProcessQuery(ctx, stmt)
		if err != nil {
			return results, fmt.Errorf("statement %d: %w", i+1, err)
		}
		results = append(results, pq)
	}
	return results, nil
}

func (e *Engine) route(dialect *parsetree.Dialect, sql string, stmt statement.Statement) (*ProcessedQuery, error) {
	rules, err := e.rules.Rules()
	if err != nil {
		return nil, err
	}
	result, err := router.Route(stmt, rules)
	if err != nil {
		return nil, fmt.Errorf("route %s: %w", stmt.Kind(), err)
	}

	rw := rewrite.New(dialect, rules)
	units := make([]ExecutionUnit, 0, len(result.Units))
	for _, unit := range result.Units {
		rewritten, err := rw.Rewrite(sql, stmt, unit)
		if err != nil {
			return nil, fmt.Errorf("rewrite for %s: %w", unit.DataSource, err)
		}
		units = append(units, ExecutionUnit{DataSource: unit.DataSource, SQL: rewritten})
	}
	e.logger.Debug("routed", "kind", stmt.Kind(), "units", len(units), "broadcast", result.Broadcast)

	return &ProcessedQuery{
		OriginalSQL: sql,
		Dialect:     dialect.Name,
		Statement:   stmt,
		Route:       result,
		Units:       units,
	}, nil
}

func (e *Engine) passthrough(sql string, qt parser.QueryType) (*ProcessedQuery, error) {
	rules, err := e.rules.Rules()
	if err != nil {
		return nil, err
	}
	result, err := router.Default(rules)
	if err != nil {
		return nil, err
	}
	return &ProcessedQuery{
		OriginalSQL:   sql,
		Dialect:       parsetree.PostgreSQL.Name,
		Type:          qt,
		Route:         result,
		Units:         []ExecutionUnit{{DataSource: result.Units[0].DataSource, SQL: sql}},
		IsPassthrough: true,
	}, nil
}

// SplitStatements splits sql on semicolons outside quotes and comments.
func SplitStatements(sql string) []string {
	var stmts []string
	var current strings.Builder
	inSingle := false
	inDouble := false
	inBack := false

	for i := 0; i < len(sql); i++ {
		c := sql[i]

		if !inSingle && !inDouble && !inBack && c == '-' && i+1 < len(sql) && sql[i+1] == '-' {
			for i < len(sql) && sql[i] != '\n' {
				current.WriteByte(sql[i])
				i++
			}
			if i < len(sql) {
				current.WriteByte(sql[i])
			}
			continue
		}

		switch {
		case c == '\'' && !inDouble && !inBack:
			inSingle = !inSingle
		case c == '"' && !inSingle && !inBack:
			inDouble = !inDouble
		case c == '`' && !inSingle && !inDouble:
			inBack = !inBack
		}

		if c == ';' && !inSingle && !inDouble && !inBack {
			s := strings.TrimSpace(current.String())
			if s != "" {
				stmts = append(stmts, s)
			}
			current.Reset()
			continue
		}

		current.WriteByte(c)
	}

	s := strings.TrimSpace(current.String())
	if s != "" {
		stmts = append(stmts, s)
	}

	return stmts
}
