package visitor

import (
	"github.com/riftdata/shardsql/internal/collection"
	"github.com/riftdata/shardsql/internal/parsetree"
	"github.com/riftdata/shardsql/internal/segment"
	"github.com/riftdata/shardsql/internal/statement"
)

func (v *DDLVisitor) VisitCreateTable(n *parsetree.Node) *statement.CreateTable {
	table := v.primaryTable(n)
	var defs *statement.CreateDefinitions
	if clause := v.dialect.Child(n, parsetree.RoleCreateDefinitionClause); clause != nil {
		defs = v.VisitCreateDefinitionClause(clause)
	}
	return statement.MergeCreateTable(table, defs)
}

func (v *DDLVisitor) VisitCreateDefinitionClause(n *parsetree.Node) *statement.CreateDefinitions {
	defs := &statement.CreateDefinitions{}
	for _, each := range v.dialect.Children(n, parsetree.RoleCreateDefinition) {
		if node := v.dialect.Child(each, parsetree.RoleColumnDefinition); node != nil {
			def := v.VisitColumnDefinition(node)
			defs.ColumnDefinitions = append(defs.ColumnDefinitions, def)
			defs.Segments = append(defs.Segments, def)
			defs.Segments = statement.AppendSegments(defs.Segments, v.referencedTables(node)...)
		}
		if node := v.dialect.Child(each, parsetree.RoleTableConstraint); node != nil {
			if table := v.constraintTable(node, parsetree.RoleTableConstraintOption); table != nil {
				defs.Segments = append(defs.Segments, table)
			}
		}
	}
	return defs
}

func (v *DDLVisitor) VisitColumnDefinition(n *parsetree.Node) *segment.ColumnDefinition {
	start, stop := v.span(n)
	column := v.VisitColumnName(v.must(n, parsetree.RoleColumnName))
	return segment.NewColumnDefinition(start, stop, column, v.dataType(n), v.isPrimaryKey(n))
}

func (v *DDLVisitor) dataType(n *parsetree.Node) string {
	dataType := v.must(n, parsetree.RoleDataType)
	if name := v.dialect.Child(dataType, parsetree.RoleDataTypeName); name != nil {
		return name.Text
	}
	return dataType.Text
}

func (v *DDLVisitor) isPrimaryKey(columnDefinition *parsetree.Node) bool {
	for _, each := range v.dialect.Children(columnDefinition, parsetree.RoleColumnConstraint) {
		option := v.dialect.Child(each, parsetree.RoleColumnConstraintOption)
		if v.dialect.Child(option, parsetree.RolePrimaryKey) != nil {
			return true
		}
	}
	return false
}

// referencedTables returns tables named by the column's inline constraints.
func (v *DDLVisitor) referencedTables(columnDefinition *parsetree.Node) []*segment.Table {
	var result []*segment.Table
	for _, each := range v.dialect.Children(columnDefinition, parsetree.RoleColumnConstraint) {
		if table := v.constraintTable(each, parsetree.RoleColumnConstraintOption); table != nil {
			result = append(result, table)
		}
	}
	return result
}

func (v *DDLVisitor) constraintTable(constraint *parsetree.Node, optionRole parsetree.Role) *segment.Table {
	option := v.dialect.Child(constraint, optionRole)
	if name := v.dialect.Child(option, parsetree.RoleTableName); name != nil {
		return v.VisitTableName(name)
	}
	return nil
}

func (v *DDLVisitor) VisitAlterTable(n *parsetree.Node) *statement.AlterTable {
	table := v.primaryTable(n)
	var defs *statement.AlterDefinitions
	if clause := v.dialect.Child(n, parsetree.RoleAlterDefinitionClause); clause != nil {
		defs = v.VisitAlterDefinitionClause(clause)
	}
	return statement.MergeAlterTable(table, defs)
}

func (v *DDLVisitor) VisitAlterDefinitionClause(n *parsetree.Node) *statement.AlterDefinitions {
	defs := &statement.AlterDefinitions{}
	for _, action := range v.alterActions(n) {
		if spec := v.dialect.Child(action, parsetree.RoleAddColumnSpecification); spec != nil {
			for _, each := range v.VisitAddColumnSpecification(spec).Items() {
				defs.Added = append(defs.Added, each.ColumnDefinition)
				defs.Segments = append(defs.Segments, each.ColumnDefinition)
				if each.ColumnPosition != nil {
					defs.ChangedPositions = append(defs.ChangedPositions, each.ColumnPosition)
					defs.Segments = append(defs.Segments, each.ColumnPosition)
				}
			}
			for _, each := range v.dialect.Children(spec, parsetree.RoleColumnDefinition) {
				defs.Segments = statement.AppendSegments(defs.Segments, v.referencedTables(each)...)
			}
		}
		if spec := v.dialect.Child(action, parsetree.RoleAddConstraintSpecification); spec != nil {
			constraint := v.dialect.Child(spec, parsetree.RoleTableConstraint)
			if table := v.constraintTable(constraint, parsetree.RoleTableConstraintOption); table != nil {
				defs.Segments = append(defs.Segments, table)
			}
		}
		if spec := v.dialect.Child(action, parsetree.RoleModifyColumnSpecification); spec != nil {
			if modify := v.VisitModifyColumnSpecification(spec); modify.ColumnPosition != nil {
				defs.ChangedPositions = append(defs.ChangedPositions, modify.ColumnPosition)
				defs.Segments = append(defs.Segments, modify.ColumnPosition)
			}
		}
		if spec := v.dialect.Child(action, parsetree.RoleDropColumnSpecification); spec != nil {
			defs.DroppedColumnNames = append(defs.DroppedColumnNames, v.VisitDropColumnSpecification(spec).ColumnName)
		}
		if spec := v.dialect.Child(action, parsetree.RoleRenameColumnSpecification); spec != nil {
			defs.Renamed = append(defs.Renamed, v.VisitRenameColumnSpecification(spec))
		}
	}
	if len(defs.Added) == 0 {
		defs.Segments = statement.AppendSegments(defs.Segments, defs.Added...)
	}
	if len(defs.ChangedPositions) == 0 {
		defs.Segments = statement.AppendSegments(defs.Segments, defs.ChangedPositions...)
	}
	return defs
}

// alterActions accepts actions grouped under an actions node or placed
// directly in the clause.
func (v *DDLVisitor) alterActions(clause *parsetree.Node) []*parsetree.Node {
	var actions []*parsetree.Node
	for _, child := range clause.Children {
		switch v.dialect.Role(child) {
		case parsetree.RoleAlterTableActions:
			actions = append(actions, v.dialect.Children(child, parsetree.RoleAlterTableAction)...)
		case parsetree.RoleAlterTableAction:
			actions = append(actions, child)
		}
	}
	return actions
}

// VisitAddColumnSpecification yields one AddColumnDefinition per column
// definition. A position directive belongs to the definition before it.
func (v *DDLVisitor) VisitAddColumnSpecification(n *parsetree.Node) *collection.Value[*segment.AddColumnDefinition] {
	start, stop := v.span(n)
	result := collection.New[*segment.AddColumnDefinition](segment.NewPosition(start, stop))

	var pending *segment.ColumnDefinition
	var position *segment.ColumnPosition
	flush := func() {
		if pending == nil {
			return
		}
		end := pending.Pos.Stop
		if position != nil && position.Pos.Stop > end {
			end = position.Pos.Stop
		}
		result.Push(segment.NewAddColumnDefinition(pending.Pos.Start, end, pending, position))
		pending, position = nil, nil
	}

	for _, child := range n.Children {
		switch v.dialect.Role(child) {
		case parsetree.RoleColumnDefinition:
			flush()
			pending = v.VisitColumnDefinition(child)
		case parsetree.RoleColumnPosition:
			if pending == nil {
				panic(v.violation(n, parsetree.RoleColumnDefinition, "column position without a column definition"))
			}
			position = v.VisitColumnPosition(child)
		}
	}
	flush()
	return result
}

// VisitColumnPosition reads FIRST or AFTER <column>.
func (v *DDLVisitor) VisitColumnPosition(n *parsetree.Node) *segment.ColumnPosition {
	start, stop := v.span(n)
	if ref := v.dialect.Child(n, parsetree.RoleColumnName); ref != nil {
		return segment.NewColumnPosition(start, stop, segment.PositionAfter, v.VisitColumnName(ref))
	}
	return segment.NewColumnPosition(start, stop, segment.PositionFirst, nil)
}

// VisitModifyColumnSpecification extracts only the span and the optional
// position directive.
func (v *DDLVisitor) VisitModifyColumnSpecification(n *parsetree.Node) *segment.ModifyColumnDefinition {
	start, stop := v.span(n)
	var position *segment.ColumnPosition
	if node := v.dialect.Child(n, parsetree.RoleColumnPosition); node != nil {
		position = v.VisitColumnPosition(node)
	}
	return segment.NewModifyColumnDefinition(start, stop, position)
}

func (v *DDLVisitor) VisitDropColumnSpecification(n *parsetree.Node) *segment.DropColumnDefinition {
	start, stop := v.span(n)
	column := v.VisitColumnName(v.must(n, parsetree.RoleColumnName))
	return segment.NewDropColumnDefinition(start, stop, column.Identifier.Value)
}

// VisitRenameColumnSpecification takes the first column name as the old name
// and the second as the new one.
func (v *DDLVisitor) VisitRenameColumnSpecification(n *parsetree.Node) *segment.RenameColumn {
	start, stop := v.span(n)
	names := v.dialect.Children(n, parsetree.RoleColumnName)
	if len(names) < 2 {
		panic(v.violation(n, parsetree.RoleColumnName, "rename needs old and new column names"))
	}
	oldName := v.VisitColumnName(names[0])
	newName := v.VisitColumnName(names[1])
	return segment.NewRenameColumn(start, stop, oldName.Identifier.Value, newName.Identifier.Value)
}

func (v *DDLVisitor) VisitDropTable(n *parsetree.Node) *statement.DropTable {
	tables := v.VisitTableNamesClause(v.must(n, parsetree.RoleTableNamesClause))
	return statement.NewDropTable(tables.Items())
}

func (v *DDLVisitor) VisitTruncateTable(n *parsetree.Node) *statement.Truncate {
	tables := v.VisitTableNamesClause(v.must(n, parsetree.RoleTableNamesClause))
	return statement.NewTruncate(tables.Items())
}

func (v *DDLVisitor) VisitCreateIndex(n *parsetree.Node) *statement.CreateIndex {
	return statement.NewCreateIndex(v.primaryTable(n))
}

func (v *DDLVisitor) VisitDropIndex(*parsetree.Node) *statement.DropIndex {
	return statement.NewDropIndex()
}

// primaryTable reads the statement's own table, given either as a table name
// or wrapped in a table name clause.
func (v *DDLVisitor) primaryTable(n *parsetree.Node) *segment.Table {
	if clause := v.dialect.Child(n, parsetree.RoleTableNameClause); clause != nil {
		return v.VisitTableNameClause(clause)
	}
	return v.VisitTableName(v.must(n, parsetree.RoleTableName))
}

func (v *DDLVisitor) VisitTableNameClause(n *parsetree.Node) *segment.Table {
	return v.VisitTableName(v.must(n, parsetree.RoleTableName))
}

func (v *DDLVisitor) VisitTableNamesClause(n *parsetree.Node) *collection.Value[*segment.Table] {
	start, stop := v.span(n)
	result := collection.New[*segment.Table](segment.NewPosition(start, stop))
	for _, child := range n.Children {
		switch v.dialect.Role(child) {
		case parsetree.RoleTableNameClause:
			result.Push(v.VisitTableNameClause(child))
		case parsetree.RoleTableName:
			result.Push(v.VisitTableName(child))
		}
	}
	return result
}

// VisitTableName reads owner and name children when present; a leaf node is
// an unqualified name.
func (v *DDLVisitor) VisitTableName(n *parsetree.Node) *segment.Table {
	start, stop := v.span(n)
	var owner *segment.Identifier
	if node := v.dialect.Child(n, parsetree.RoleOwner); node != nil {
		id := segment.ParseIdentifier(node.Text)
		owner = &id
	}
	name := n.Text
	if node := v.dialect.Child(n, parsetree.RoleName); node != nil {
		name = node.Text
	} else if owner != nil {
		panic(v.violation(n, parsetree.RoleName, "qualified table without a name"))
	}
	if name == "" {
		panic(v.violation(n, parsetree.RoleName, "empty table name"))
	}
	return segment.NewTable(start, stop, owner, segment.ParseIdentifier(name))
}

func (v *DDLVisitor) VisitColumnName(n *parsetree.Node) *segment.Column {
	start, stop := v.span(n)
	if n.Text == "" {
		panic(v.violation(n, parsetree.RoleUnknown, "empty column name"))
	}
	return segment.NewColumn(start, stop, segment.ParseIdentifier(n.Text))
}
