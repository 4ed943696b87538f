// Package visitor turns dialect parse trees into DDL statements.
//
// One DDLVisitor serves any dialect: the dialect's rule table tells it which
// node plays which role. Visit* methods return concrete types and panic with
// a *ContractViolation when a node the grammar guarantees is absent; Visit
// recovers that into an error so callers never see a partial statement.
package visitor

import (
	"fmt"

	"github.com/riftdata/shardsql/internal/parsetree"
	"github.com/riftdata/shardsql/internal/statement"
)

// DDLVisitor holds only its dialect table and is safe for concurrent use.
type DDLVisitor struct {
	dialect *parsetree.Dialect
}

func New(dialect *parsetree.Dialect) *DDLVisitor {
	return &DDLVisitor{dialect: dialect}
}

// Dialect returns the rule table this visitor reads.
func (v *DDLVisitor) Dialect() *parsetree.Dialect {
	return v.dialect
}

// Visit builds the statement rooted at root.
func (v *DDLVisitor) Visit(root *parsetree.Node) (stmt statement.Statement, err error) {
	defer func() {
		if r := recover(); r != nil {
			violation, ok := r.(*ContractViolation)
			if !ok {
				panic(r)
			}
			stmt, err = nil, violation
		}
	}()

	if root == nil {
		return nil, v.violation(&parsetree.Node{}, parsetree.RoleUnknown, "nil root")
	}

	switch v.dialect.Role(root) {
	case parsetree.RoleCreateTable:
		return v.VisitCreateTable(root), nil
	case parsetree.RoleAlterTable:
		return v.VisitAlterTable(root), nil
	case parsetree.RoleDropTable:
		return v.VisitDropTable(root), nil
	case parsetree.RoleTruncateTable:
		return v.VisitTruncateTable(root), nil
	case parsetree.RoleCreateIndex:
		return v.VisitCreateIndex(root), nil
	case parsetree.RoleDropIndex:
		return v.VisitDropIndex(root), nil
	default:
		return nil, fmt.Errorf("%w: %s rule %q", ErrUnsupportedStatement, v.dialect.Name, root.Rule)
	}
}

func (v *DDLVisitor) violation(n *parsetree.Node, child parsetree.Role, reason string) *ContractViolation {
	return &ContractViolation{Dialect: v.dialect.Name, Rule: n.Rule, Child: child, Reason: reason}
}

// must returns the first child of n with role, or panics.
func (v *DDLVisitor) must(n *parsetree.Node, role parsetree.Role) *parsetree.Node {
	child := v.dialect.Child(n, role)
	if child == nil {
		panic(v.violation(n, role, ""))
	}
	return child
}

// span returns the offsets of n, panicking on an inverted or negative range.
func (v *DDLVisitor) span(n *parsetree.Node) (int, int) {
	if n.Start < 0 || n.Start > n.Stop {
		panic(v.violation(n, parsetree.RoleUnknown, fmt.Sprintf("invalid span [%d,%d]", n.Start, n.Stop)))
	}
	return n.Start, n.Stop
}
