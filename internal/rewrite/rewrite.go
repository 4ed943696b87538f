// Package rewrite produces per-route SQL by splicing replacement text into
// the original statement at segment positions. The SQL is never re-parsed.
package rewrite

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/riftdata/shardsql/internal/parsetree"
	"github.com/riftdata/shardsql/internal/router"
	"github.com/riftdata/shardsql/internal/rule"
	"github.com/riftdata/shardsql/internal/segment"
	"github.com/riftdata/shardsql/internal/statement"
)

var (
	ErrOverlappingEdits = errors.New("overlapping rewrite edits")
	ErrEditOutOfRange   = errors.New("rewrite edit outside sql")
)

// Edit replaces the inclusive range [Start, Stop] with Text.
type Edit struct {
	Start int
	Stop  int
	Text  string
}

// Rewriter builds the SQL for one route unit.
type Rewriter struct {
	dialect *parsetree.Dialect
	rules   *rule.RuleSet
}

func New(dialect *parsetree.Dialect, rules *rule.RuleSet) *Rewriter {
	return &Rewriter{dialect: dialect, rules: rules}
}

// Rewrite returns sql with the unit's actual tables and the configured
// cipher columns in place of logical names.
func (r *Rewriter) Rewrite(sql string, stmt statement.Statement, unit router.Unit) (string, error) {
	return Apply(sql, r.Edits(stmt, unit))
}

// Edits collects the replacements for stmt under unit.
func (r *Rewriter) Edits(stmt statement.Statement, unit router.Unit) []Edit {
	var owner string
	if tables := stmt.Tables(); len(tables) > 0 {
		owner = tables[0].Name.Value
	}

	var edits []Edit
	for _, seg := range stmt.AllSegments() {
		switch s := seg.(type) {
		case *segment.Table:
			if edit, ok := r.tableEdit(s, unit); ok {
				edits = append(edits, edit)
			}
		case *segment.ColumnDefinition:
			if edit, ok := r.columnEdit(owner, s.Column); ok {
				edits = append(edits, edit)
			}
		case *segment.ColumnPosition:
			if s.ReferenceColumn != nil {
				if edit, ok := r.columnEdit(owner, s.ReferenceColumn); ok {
					edits = append(edits, edit)
				}
			}
		}
	}
	return edits
}

func (r *Rewriter) tableEdit(table *segment.Table, unit router.Unit) (Edit, bool) {
	actual := unit.ActualTable(table.Name.Value)
	if actual == table.Name.Value {
		return Edit{}, false
	}
	text := r.quote(table.Name, actual)
	if table.Owner != nil {
		text = r.quote(*table.Owner, table.Owner.Value) + "." + text
	}
	pos := table.Position()
	return Edit{Start: pos.Start, Stop: pos.Stop, Text: text}, true
}

func (r *Rewriter) columnEdit(table string, column *segment.Column) (Edit, bool) {
	if r.rules == nil || column == nil {
		return Edit{}, false
	}
	cipher, ok := r.rules.CipherColumn(table, column.Identifier.Value)
	if !ok {
		return Edit{}, false
	}
	pos := column.Position()
	return Edit{Start: pos.Start, Stop: pos.Stop, Text: r.quote(column.Identifier, cipher)}, true
}

// quote renders value with the quoting the source used for original.
func (r *Rewriter) quote(original segment.Identifier, value string) string {
	if original.Quote == segment.QuoteNone {
		return value
	}
	if r.dialect == parsetree.PostgreSQL && original.Quote == segment.QuoteDouble {
		return pgx.Identifier{value}.Sanitize()
	}
	return original.Quote.Wrap(value)
}

// Apply splices edits into sql. Identical edits collapse; any other overlap
// is an error.
func Apply(sql string, edits []Edit) (string, error) {
	if len(edits) == 0 {
		return sql, nil
	}
	sorted := append([]Edit(nil), edits...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].Stop < sorted[j].Stop
	})

	unique := sorted[:0]
	for _, e := range sorted {
		if e.Start < 0 || e.Start > e.Stop || e.Stop >= len(sql) {
			return "", fmt.Errorf("%w: [%d,%d] in %d bytes", ErrEditOutOfRange, e.Start, e.Stop, len(sql))
		}
		if n := len(unique); n > 0 {
			prev := unique[n-1]
			if prev == e {
				continue
			}
			if e.Start <= prev.Stop {
				return "", fmt.Errorf("%w: [%d,%d] and [%d,%d]", ErrOverlappingEdits, prev.Start, prev.Stop, e.Start, e.Stop)
			}
		}
		unique = append(unique, e)
	}

	var b strings.Builder
	b.Grow(len(sql))
	cursor := 0
	for _, e := range unique {
		b.WriteString(sql[cursor:e.Start])
		b.WriteString(e.Text)
		cursor = e.Stop + 1
	}
	b.WriteString(sql[cursor:])
	return b.String(), nil
}
