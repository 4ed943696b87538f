package parser

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/riftdata/shardsql/internal/parsetree"
	"github.com/riftdata/shardsql/internal/segment"
)

// ErrTokenMismatch is returned when the scanner output cannot be lined up
// with the parse result.
var ErrTokenMismatch = errors.New("token stream does not match parse result")

// pg_query reports start locations only. End offsets come from the scanner:
// every node below spans whole tokens.
type treeBuilder struct {
	sql    string
	b      *parsetree.Builder
	tokens []*pg_query.ScanToken
	first  int
	last   int
}

// typeStopWords end the word run of a type name inside a column definition.
var typeStopWords = map[string]bool{
	"PRIMARY": true, "NOT": true, "NULL": true, "DEFAULT": true, "REFERENCES": true,
	"CONSTRAINT": true, "UNIQUE": true, "CHECK": true, "COLLATE": true, "GENERATED": true,
}

func newTreeBuilder(sql string, raw *pg_query.RawStmt) (*treeBuilder, error) {
	scan, err := pg_query.Scan(sql)
	if err != nil {
		return nil, fmt.Errorf("scan sql: %w", err)
	}

	start := int(raw.StmtLocation)
	end := len(sql)
	if raw.StmtLen > 0 {
		end = start + int(raw.StmtLen)
	}

	tb := &treeBuilder{sql: sql, b: parsetree.NewBuilder(sql)}
	for _, tok := range scan.Tokens {
		text := sql[tok.Start:tok.End]
		if strings.HasPrefix(text, "--") || strings.HasPrefix(text, "/*") {
			continue
		}
		tb.tokens = append(tb.tokens, tok)
	}

	tb.first = tb.indexAt(start)
	tb.last = tb.first - 1
	for i := tb.first; i < len(tb.tokens) && int(tb.tokens[i].End) <= end; i++ {
		if tb.text(i) == ";" {
			break
		}
		tb.last = i
	}
	if tb.last < tb.first {
		return nil, fmt.Errorf("%w: empty statement", ErrTokenMismatch)
	}
	return tb, nil
}

func (tb *treeBuilder) text(i int) string {
	tok := tb.tokens[i]
	return tb.sql[tok.Start:tok.End]
}

func (tb *treeBuilder) upper(i int) string {
	return strings.ToUpper(tb.text(i))
}

// indexAt returns the first token starting at or after offset.
func (tb *treeBuilder) indexAt(offset int) int {
	return sort.Search(len(tb.tokens), func(i int) bool {
		return int(tb.tokens[i].Start) >= offset
	})
}

func (tb *treeBuilder) isWord(i int) bool {
	if i < 0 || i >= len(tb.tokens) {
		return false
	}
	c := tb.text(i)[0]
	return c == '_' || c == '"' || c >= 0x80 ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func (tb *treeBuilder) node(rule string, first, last int, children ...*parsetree.Node) *parsetree.Node {
	return tb.b.Node(rule, int(tb.tokens[first].Start), int(tb.tokens[last].End)-1, children...)
}

// matching returns the index of the bracket closing the one at open.
func (tb *treeBuilder) matching(open int) int {
	depth := 0
	for i := open; i <= tb.last; i++ {
		switch tb.text(i) {
		case "(", "[":
			depth++
		case ")", "]":
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return tb.last
}

// elementEnd returns the last token of the list element starting at i,
// stopping before a comma or closing parenthesis at depth zero.
func (tb *treeBuilder) elementEnd(i, limit int) int {
	depth := 0
	for j := i; j <= limit; j++ {
		switch tb.text(j) {
		case "(", "[":
			depth++
		case ")", "]":
			if depth == 0 {
				return j - 1
			}
			depth--
		case ",":
			if depth == 0 {
				return j - 1
			}
		}
	}
	return limit
}

// split cuts [first, last] at top-level commas.
func (tb *treeBuilder) split(first, last int) [][2]int {
	var pieces [][2]int
	for i := first; i <= last; {
		end := tb.elementEnd(i, last)
		if end < i {
			break
		}
		pieces = append(pieces, [2]int{i, end})
		i = end + 2
	}
	return pieces
}

// qualifiedName reads name(.name)* from token i.
func (tb *treeBuilder) qualifiedName(rule string, i int) (*parsetree.Node, int, error) {
	if !tb.isWord(i) || i > tb.last {
		return nil, i, fmt.Errorf("%w: expected a name at token %d", ErrTokenMismatch, i)
	}
	parts := []int{i}
	for j := i; j+2 <= tb.last && tb.text(j+1) == "." && tb.isWord(j+2); j += 2 {
		parts = append(parts, j+2)
	}
	last := parts[len(parts)-1]
	var children []*parsetree.Node
	if len(parts) >= 2 {
		owner := parts[len(parts)-2]
		children = append(children, tb.node("schema_name", owner, owner))
	}
	children = append(children, tb.node("relname", last, last))
	return tb.node(rule, i, last, children...), last, nil
}

func (tb *treeBuilder) rangeVar(rule string, rv *pg_query.RangeVar) (*parsetree.Node, int, error) {
	if rv == nil {
		return nil, 0, fmt.Errorf("%w: missing relation", ErrTokenMismatch)
	}
	return tb.qualifiedName(rule, tb.indexAt(int(rv.Location)))
}

// build returns the tree of a supported DDL statement, or nil for anything
// else.
func (tb *treeBuilder) build(stmt *pg_query.Node) (*parsetree.Node, error) {
	switch n := stmt.Node.(type) {
	case *pg_query.Node_CreateStmt:
		return tb.createStmt(n.CreateStmt)
	case *pg_query.Node_AlterTableStmt:
		return tb.alterTableStmt(n.AlterTableStmt)
	case *pg_query.Node_RenameStmt:
		return tb.renameStmt(n.RenameStmt)
	case *pg_query.Node_DropStmt:
		return tb.dropStmt(n.DropStmt)
	case *pg_query.Node_TruncateStmt:
		return tb.truncateStmt(n.TruncateStmt)
	case *pg_query.Node_IndexStmt:
		relation, _, err := tb.rangeVar("relation_expr", n.IndexStmt.Relation)
		if err != nil {
			return nil, err
		}
		return tb.node("IndexStmt", tb.first, tb.last, relation), nil
	}
	return nil, nil
}

func (tb *treeBuilder) createStmt(cs *pg_query.CreateStmt) (*parsetree.Node, error) {
	relation, nameEnd, err := tb.rangeVar("qualified_name", cs.Relation)
	if err != nil {
		return nil, err
	}
	children := []*parsetree.Node{relation}

	open := nameEnd + 1
	if len(cs.TableElts) > 0 && open <= tb.last && tb.text(open) == "(" {
		closing := tb.matching(open)
		var elements []*parsetree.Node
		for _, elt := range cs.TableElts {
			var element *parsetree.Node
			switch e := elt.Node.(type) {
			case *pg_query.Node_ColumnDef:
				start := tb.indexAt(int(e.ColumnDef.Location))
				element, err = tb.columnDef(e.ColumnDef, start, tb.elementEnd(start, closing-1))
			case *pg_query.Node_Constraint:
				start := tb.indexAt(int(e.Constraint.Location))
				element, err = tb.tableConstraint(e.Constraint, start, tb.elementEnd(start, closing-1))
			}
			if err != nil {
				return nil, err
			}
			if element != nil {
				elements = append(elements, tb.b.Node("TableElement", element.Start, element.Stop, element))
			}
		}
		children = append(children, tb.node("OptTableElementList", open, closing, elements...))
	}
	return tb.node("CreateStmt", tb.first, tb.last, children...), nil
}

func (tb *treeBuilder) columnDef(cd *pg_query.ColumnDef, first, last int) (*parsetree.Node, error) {
	if first > last || !tb.isWord(first) {
		return nil, fmt.Errorf("%w: column %q", ErrTokenMismatch, cd.Colname)
	}
	children := []*parsetree.Node{tb.node("ColId", first, first)}

	if cd.TypeName != nil {
		start := tb.indexAt(int(cd.TypeName.Location))
		if start > first && start <= last {
			nameEnd, typeEnd := tb.typeEnd(start, last)
			children = append(children, tb.node("Typename", start, typeEnd, tb.node("GenericType", start, nameEnd)))
		}
	}

	var constraints []*pg_query.Constraint
	for _, each := range cd.Constraints {
		if c, ok := each.Node.(*pg_query.Node_Constraint); ok && c.Constraint.Location >= 0 {
			constraints = append(constraints, c.Constraint)
		}
	}
	sort.Slice(constraints, func(i, j int) bool {
		return constraints[i].Location < constraints[j].Location
	})
	for i, c := range constraints {
		start := tb.indexAt(int(c.Location))
		end := last
		if i+1 < len(constraints) {
			end = tb.indexAt(int(constraints[i+1].Location)) - 1
		}
		if start > end || start > last {
			continue
		}
		elem, err := tb.constraintElem("ColConstraintElem", c, tb.skipConstraintName(start, end), end)
		if err != nil {
			return nil, err
		}
		children = append(children, tb.node("ColConstraint", start, end, elem))
	}
	return tb.node("columnDef", first, last, children...), nil
}

// typeEnd returns the last token of the type name's word run and the last
// token of the whole type, including modifiers and array bounds.
func (tb *treeBuilder) typeEnd(start, limit int) (int, int) {
	i := start
	for i <= limit && tb.isWord(i) && (i == start || !typeStopWords[tb.upper(i)]) {
		i++
	}
	nameEnd := i - 1
	if nameEnd < start {
		nameEnd = start
		i = start + 1
	}
	if i <= limit && tb.text(i) == "(" {
		i = tb.matching(i) + 1
	}
	for i <= limit && tb.text(i) == "[" {
		i = tb.matching(i) + 1
	}
	typeEnd := i - 1
	if typeEnd > limit {
		typeEnd = limit
	}
	return nameEnd, typeEnd
}

func (tb *treeBuilder) skipConstraintName(start, end int) int {
	if tb.upper(start) == "CONSTRAINT" && start+2 <= end {
		return start + 2
	}
	return start
}

func (tb *treeBuilder) constraintElem(rule string, c *pg_query.Constraint, first, last int) (*parsetree.Node, error) {
	var children []*parsetree.Node
	switch c.Contype {
	case pg_query.ConstrType_CONSTR_PRIMARY:
		if tb.upper(first) == "PRIMARY" && first+1 <= last {
			children = append(children, tb.node("PrimaryKey", first, first+1))
		}
	case pg_query.ConstrType_CONSTR_FOREIGN:
		if c.Pktable != nil {
			table, _, err := tb.rangeVar("qualified_name", c.Pktable)
			if err != nil {
				return nil, err
			}
			children = append(children, table)
		}
	}
	return tb.node(rule, first, last, children...), nil
}

func (tb *treeBuilder) tableConstraint(c *pg_query.Constraint, first, last int) (*parsetree.Node, error) {
	elem, err := tb.constraintElem("ConstraintElem", c, tb.skipConstraintName(first, last), last)
	if err != nil {
		return nil, err
	}
	return tb.node("TableConstraint", first, last, elem), nil
}

func (tb *treeBuilder) alterTableStmt(as *pg_query.AlterTableStmt) (*parsetree.Node, error) {
	relation, nameEnd, err := tb.rangeVar("relation_expr", as.Relation)
	if err != nil {
		return nil, err
	}
	children := []*parsetree.Node{relation}

	pieces := tb.split(nameEnd+1, tb.last)
	if len(pieces) != len(as.Cmds) {
		return nil, fmt.Errorf("%w: %d alter commands, %d token groups", ErrTokenMismatch, len(as.Cmds), len(pieces))
	}
	var cmds []*parsetree.Node
	for i, each := range as.Cmds {
		cmd, ok := each.Node.(*pg_query.Node_AlterTableCmd)
		if !ok {
			continue
		}
		action, err := tb.alterTableCmd(cmd.AlterTableCmd, pieces[i][0], pieces[i][1])
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, action)
	}
	if len(pieces) > 0 {
		children = append(children, tb.node("alter_table_cmds", pieces[0][0], pieces[len(pieces)-1][1], cmds...))
	}
	return tb.node("AlterTableStmt", tb.first, tb.last, children...), nil
}

func (tb *treeBuilder) alterTableCmd(cmd *pg_query.AlterTableCmd, first, last int) (*parsetree.Node, error) {
	var action *parsetree.Node
	switch cmd.Subtype {
	case pg_query.AlterTableType_AT_AddColumn:
		if cd, ok := cmd.Def.GetNode().(*pg_query.Node_ColumnDef); ok {
			column, err := tb.columnDef(cd.ColumnDef, tb.indexAt(int(cd.ColumnDef.Location)), last)
			if err != nil {
				return nil, err
			}
			action = tb.node("AddColumnCmd", first, last, column)
		}
	case pg_query.AlterTableType_AT_AddConstraint:
		if c, ok := cmd.Def.GetNode().(*pg_query.Node_Constraint); ok {
			constraint, err := tb.tableConstraint(c.Constraint, tb.indexAt(int(c.Constraint.Location)), last)
			if err != nil {
				return nil, err
			}
			action = tb.node("AddConstraintCmd", first, last, constraint)
		}
	case pg_query.AlterTableType_AT_AlterColumnType:
		action = tb.node("AlterColumnTypeCmd", first, last)
	case pg_query.AlterTableType_AT_DropColumn:
		name := last
		if u := tb.upper(name); (u == "CASCADE" || u == "RESTRICT") && name > first {
			name--
		}
		if !identifierMatches(tb.text(name), cmd.Name) {
			return nil, fmt.Errorf("%w: dropped column %q", ErrTokenMismatch, cmd.Name)
		}
		action = tb.node("DropColumnCmd", first, last, tb.node("ColId", name, name))
	}
	if action == nil {
		return tb.node("alter_table_cmd", first, last), nil
	}
	return tb.node("alter_table_cmd", first, last, action), nil
}

// renameStmt maps ALTER TABLE ... RENAME onto the ALTER TABLE tree shape.
func (tb *treeBuilder) renameStmt(rs *pg_query.RenameStmt) (*parsetree.Node, error) {
	if rs.RelationType != pg_query.ObjectType_OBJECT_TABLE && rs.RenameType != pg_query.ObjectType_OBJECT_TABLE {
		return nil, nil
	}
	relation, nameEnd, err := tb.rangeVar("relation_expr", rs.Relation)
	if err != nil {
		return nil, err
	}
	children := []*parsetree.Node{relation}

	if rs.RenameType == pg_query.ObjectType_OBJECT_COLUMN {
		first := nameEnd + 1
		if first > tb.last || tb.upper(first) != "RENAME" {
			return nil, fmt.Errorf("%w: expected RENAME", ErrTokenMismatch)
		}
		newName := tb.last
		oldName := newName - 2
		if oldName <= first || tb.upper(newName-1) != "TO" ||
			!identifierMatches(tb.text(oldName), rs.Subname) || !identifierMatches(tb.text(newName), rs.Newname) {
			return nil, fmt.Errorf("%w: rename of %q", ErrTokenMismatch, rs.Subname)
		}
		action := tb.node("RenameColumnCmd", first, tb.last,
			tb.node("ColId", oldName, oldName), tb.node("ColId", newName, newName))
		children = append(children, tb.node("alter_table_cmds", first, tb.last,
			tb.node("alter_table_cmd", first, tb.last, action)))
	}
	return tb.node("AlterTableStmt", tb.first, tb.last, children...), nil
}

func (tb *treeBuilder) dropStmt(ds *pg_query.DropStmt) (*parsetree.Node, error) {
	switch ds.RemoveType {
	case pg_query.ObjectType_OBJECT_INDEX:
		return tb.node("DropIndexStmt", tb.first, tb.last), nil
	case pg_query.ObjectType_OBJECT_TABLE:
	default:
		return nil, nil
	}

	i := tb.first
	for i <= tb.last && tb.upper(i) != "TABLE" {
		i++
	}
	i++
	if i+1 <= tb.last && tb.upper(i) == "IF" && tb.upper(i+1) == "EXISTS" {
		i += 2
	}
	end := tb.last
	if u := tb.upper(end); u == "CASCADE" || u == "RESTRICT" {
		end--
	}

	pieces := tb.split(i, end)
	if len(pieces) != len(ds.Objects) || len(pieces) == 0 {
		return nil, fmt.Errorf("%w: %d dropped tables, %d token groups", ErrTokenMismatch, len(ds.Objects), len(pieces))
	}
	names := make([]*parsetree.Node, 0, len(pieces))
	for _, piece := range pieces {
		name, _, err := tb.qualifiedName("any_name", piece[0])
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	list := tb.node("any_name_list", pieces[0][0], pieces[len(pieces)-1][1], names...)
	return tb.node("DropTableStmt", tb.first, tb.last, list), nil
}

func (tb *treeBuilder) truncateStmt(ts *pg_query.TruncateStmt) (*parsetree.Node, error) {
	var relations []*parsetree.Node
	for _, each := range ts.Relations {
		rv, ok := each.Node.(*pg_query.Node_RangeVar)
		if !ok {
			continue
		}
		relation, _, err := tb.rangeVar("relation_expr", rv.RangeVar)
		if err != nil {
			return nil, err
		}
		relations = append(relations, relation)
	}
	if len(relations) == 0 {
		return nil, fmt.Errorf("%w: truncate without relations", ErrTokenMismatch)
	}
	list := tb.b.Node("relation_expr_list", relations[0].Start, relations[len(relations)-1].Stop, relations...)
	return tb.node("TruncateStmt", tb.first, tb.last, list), nil
}

// identifierMatches compares source token text with a name pg_query already
// folded: quoted names compare exactly, bare names case-insensitively.
func identifierMatches(text, name string) bool {
	id := segment.ParseIdentifier(text)
	if id.Quote != segment.QuoteNone {
		return id.Value == name
	}
	return strings.EqualFold(id.Value, name)
}
