package parsetree

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownDialect is returned by LookupDialect for unregistered names.
var ErrUnknownDialect = errors.New("unknown dialect")

// Dialect maps one grammar's rule names onto roles.
type Dialect struct {
	Name  string
	roles map[string]Role
}

// NewDialect creates a dialect from a rule-name table.
func NewDialect(name string, rules map[string]Role) *Dialect {
	roles := make(map[string]Role, len(rules))
	for rule, role := range rules {
		roles[rule] = role
	}
	return &Dialect{Name: name, roles: roles}
}

// Role returns the role of n, or RoleUnknown.
func (d *Dialect) Role(n *Node) Role {
	if n == nil {
		return RoleUnknown
	}
	return d.roles[n.Rule]
}

// Child returns the first direct child of n with the given role.
func (d *Dialect) Child(n *Node, role Role) *Node {
	if n == nil {
		return nil
	}
	for _, child := range n.Children {
		if d.Role(child) == role {
			return child
		}
	}
	return nil
}

// Children returns every direct child of n with the given role, in order.
func (d *Dialect) Children(n *Node, role Role) []*Node {
	if n == nil {
		return nil
	}
	var result []*Node
	for _, child := range n.Children {
		if d.Role(child) == role {
			result = append(result, child)
		}
	}
	return result
}

// Rule returns a rule name mapped to role, preferring the lexically smallest
// when several map to it. ok is false when the dialect has none.
func (d *Dialect) Rule(role Role) (rule string, ok bool) {
	for name, r := range d.roles {
		if r == role && (!ok || name < rule) {
			rule, ok = name, true
		}
	}
	return rule, ok
}

// Rule names shared by the ANTLR-derived MySQL and Oracle grammars.
var antlrCommon = map[string]Role{
	"createTable":                RoleCreateTable,
	"alterTable":                 RoleAlterTable,
	"dropTable":                  RoleDropTable,
	"truncateTable":              RoleTruncateTable,
	"createIndex":                RoleCreateIndex,
	"dropIndex":                  RoleDropIndex,
	"tableName":                  RoleTableName,
	"owner":                      RoleOwner,
	"name":                       RoleName,
	"createDefinitionClause":     RoleCreateDefinitionClause,
	"createDefinition":           RoleCreateDefinition,
	"columnDefinition":           RoleColumnDefinition,
	"columnName":                 RoleColumnName,
	"dataType":                   RoleDataType,
	"dataTypeName":               RoleDataTypeName,
	"columnConstraint":           RoleColumnConstraint,
	"columnConstraintOption":     RoleColumnConstraintOption,
	"primaryKey":                 RolePrimaryKey,
	"tableConstraint":            RoleTableConstraint,
	"tableConstraintOption":      RoleTableConstraintOption,
	"alterDefinitionClause":      RoleAlterDefinitionClause,
	"addColumnSpecification":     RoleAddColumnSpecification,
	"addConstraintSpecification": RoleAddConstraintSpecification,
	"modifyColumnSpecification":  RoleModifyColumnSpecification,
	"dropColumnSpecification":    RoleDropColumnSpecification,
	"renameColumnSpecification":  RoleRenameColumnSpecification,
}

func extend(base map[string]Role, extra map[string]Role) map[string]Role {
	result := make(map[string]Role, len(base)+len(extra))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range extra {
		result[k] = v
	}
	return result
}

var (
	MySQL = NewDialect("mysql", extend(antlrCommon, map[string]Role{
		"tableNames":                RoleTableNamesClause,
		"alterSpecifications":       RoleAlterTableActions,
		"alterSpecification":        RoleAlterTableAction,
		"changeColumnSpecification": RoleModifyColumnSpecification,
		"firstOrAfterColumn":        RoleColumnPosition,
	}))

	Oracle = NewDialect("oracle", extend(antlrCommon, map[string]Role{
		"tableNameClause":     RoleTableNameClause,
		"tableNamesClause":    RoleTableNamesClause,
		"alterTableActions":   RoleAlterTableActions,
		"alterTableAction":    RoleAlterTableAction,
		"inlineConstraint":    RoleColumnConstraint,
		"outOfLineConstraint": RoleTableConstraint,
	}))

	// PostgreSQL uses gram.y production names where one exists. Rules the
	// grammar inlines are given descriptive names by the pg_query adapter.
	PostgreSQL = NewDialect("postgresql", map[string]Role{
		"CreateStmt":          RoleCreateTable,
		"AlterTableStmt":      RoleAlterTable,
		"DropTableStmt":       RoleDropTable,
		"TruncateStmt":        RoleTruncateTable,
		"IndexStmt":           RoleCreateIndex,
		"DropIndexStmt":       RoleDropIndex,
		"qualified_name":      RoleTableName,
		"relation_expr":       RoleTableName,
		"any_name":            RoleTableName,
		"any_name_list":       RoleTableNamesClause,
		"relation_expr_list":  RoleTableNamesClause,
		"schema_name":         RoleOwner,
		"relname":             RoleName,
		"OptTableElementList": RoleCreateDefinitionClause,
		"TableElement":        RoleCreateDefinition,
		"columnDef":           RoleColumnDefinition,
		"ColId":               RoleColumnName,
		"Typename":            RoleDataType,
		"GenericType":         RoleDataTypeName,
		"ColConstraint":       RoleColumnConstraint,
		"ColConstraintElem":   RoleColumnConstraintOption,
		"PrimaryKey":          RolePrimaryKey,
		"TableConstraint":     RoleTableConstraint,
		"ConstraintElem":      RoleTableConstraintOption,
		"alter_table_cmds":    RoleAlterDefinitionClause,
		"alter_table_cmd":     RoleAlterTableAction,
		"AddColumnCmd":        RoleAddColumnSpecification,
		"AddConstraintCmd":    RoleAddConstraintSpecification,
		"AlterColumnTypeCmd":  RoleModifyColumnSpecification,
		"DropColumnCmd":       RoleDropColumnSpecification,
		"RenameColumnCmd":     RoleRenameColumnSpecification,
	})
)

var dialects = map[string]*Dialect{
	"mysql":      MySQL,
	"oracle":     Oracle,
	"postgresql": PostgreSQL,
	"postgres":   PostgreSQL,
}

// LookupDialect finds a dialect by case-insensitive name.
func LookupDialect(name string) (*Dialect, error) {
	d, ok := dialects[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, name)
	}
	return d, nil
}

// Dialects lists the canonical dialect names.
func Dialects() []string {
	seen := make(map[string]bool)
	var names []string
	for _, d := range dialects {
		if !seen[d.Name] {
			seen[d.Name] = true
			names = append(names, d.Name)
		}
	}
	sort.Strings(names)
	return names
}
