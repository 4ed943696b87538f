package parsetree

// Role is the dialect-independent meaning of a grammar rule. Each dialect maps
// its own rule names onto roles; the visitor only ever looks at roles.
type Role int

const (
	RoleUnknown Role = iota

	// Statements
	RoleCreateTable
	RoleAlterTable
	RoleDropTable
	RoleTruncateTable
	RoleCreateIndex
	RoleDropIndex

	// Table references
	RoleTableName
	RoleTableNameClause
	RoleTableNamesClause
	RoleOwner
	RoleName

	// CREATE TABLE body
	RoleCreateDefinitionClause
	RoleCreateDefinition
	RoleColumnDefinition
	RoleColumnName
	RoleDataType
	RoleDataTypeName
	RoleColumnConstraint
	RoleColumnConstraintOption
	RolePrimaryKey
	RoleTableConstraint
	RoleTableConstraintOption

	// ALTER TABLE body
	RoleAlterDefinitionClause
	RoleAlterTableActions
	RoleAlterTableAction
	RoleAddColumnSpecification
	RoleAddConstraintSpecification
	RoleModifyColumnSpecification
	RoleDropColumnSpecification
	RoleRenameColumnSpecification
	RoleColumnPosition
)

var roleNames = map[Role]string{
	RoleUnknown:                    "unknown",
	RoleCreateTable:                "createTable",
	RoleAlterTable:                 "alterTable",
	RoleDropTable:                  "dropTable",
	RoleTruncateTable:              "truncateTable",
	RoleCreateIndex:                "createIndex",
	RoleDropIndex:                  "dropIndex",
	RoleTableName:                  "tableName",
	RoleTableNameClause:            "tableNameClause",
	RoleTableNamesClause:           "tableNamesClause",
	RoleOwner:                      "owner",
	RoleName:                       "name",
	RoleCreateDefinitionClause:     "createDefinitionClause",
	RoleCreateDefinition:           "createDefinition",
	RoleColumnDefinition:           "columnDefinition",
	RoleColumnName:                 "columnName",
	RoleDataType:                   "dataType",
	RoleDataTypeName:               "dataTypeName",
	RoleColumnConstraint:           "columnConstraint",
	RoleColumnConstraintOption:     "columnConstraintOption",
	RolePrimaryKey:                 "primaryKey",
	RoleTableConstraint:            "tableConstraint",
	RoleTableConstraintOption:      "tableConstraintOption",
	RoleAlterDefinitionClause:      "alterDefinitionClause",
	RoleAlterTableActions:          "alterTableActions",
	RoleAlterTableAction:           "alterTableAction",
	RoleAddColumnSpecification:     "addColumnSpecification",
	RoleAddConstraintSpecification: "addConstraintSpecification",
	RoleModifyColumnSpecification:  "modifyColumnSpecification",
	RoleDropColumnSpecification:    "dropColumnSpecification",
	RoleRenameColumnSpecification:  "renameColumnSpecification",
	RoleColumnPosition:             "columnPosition",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}
