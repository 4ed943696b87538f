package parsetree

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderFillsText(t *testing.T) {
	b := NewBuilder("DROP TABLE a, b")
	n := b.Node("tableName", 11, 11)
	assert.Equal(t, "a", n.Text)

	bad := b.Node("tableName", 20, 25)
	assert.Empty(t, bad.Text)
}

func TestValidate(t *testing.T) {
	sql := "DROP TABLE a, b"
	b := NewBuilder(sql)

	tests := []struct {
		name    string
		root    *Node
		wantErr bool
	}{
		{"valid", b.Node("dropTable", 0, 14, b.Node("tableName", 11, 11)), false},
		{"nil root", nil, true},
		{"start after stop", b.Node("dropTable", 5, 4), true},
		{"past end", b.Node("dropTable", 0, 15), true},
		{"child outside parent", b.Node("tableNames", 11, 11, b.Node("tableName", 14, 14)), true},
		{"nil child", &Node{Rule: "dropTable", Start: 0, Stop: 14, Children: []*Node{nil}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.root, len(sql))
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidTree))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDecodeYAML(t *testing.T) {
	data := []byte(`
dialect: mysql
sql: TRUNCATE TABLE t
tree:
  rule: truncateTable
  start: 0
  stop: 15
  children:
    - rule: tableName
      start: 15
      stop: 15
`)
	doc, err := Decode(data, "yaml")
	require.NoError(t, err)
	assert.Equal(t, "mysql", doc.Dialect)
	assert.Equal(t, "TRUNCATE TABLE t", doc.Root.Text)
	require.Len(t, doc.Root.Children, 1)
	assert.Equal(t, "t", doc.Root.Children[0].Text)
}

func TestDecodeRejectsBadOffsets(t *testing.T) {
	data := []byte(`{"dialect":"mysql","sql":"x","tree":{"rule":"dropTable","start":0,"stop":3}}`)
	_, err := Decode(data, "json")
	assert.ErrorIs(t, err, ErrInvalidTree)

	_, err = Decode(data, "xml")
	assert.Error(t, err)
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.json")
	data := []byte(`{"dialect":"oracle","sql":"DROP INDEX i","tree":{"rule":"dropIndex","start":0,"stop":11}}`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "oracle", doc.Dialect)
	assert.Equal(t, "DROP INDEX i", doc.Root.Text)
}

func TestDialectRoles(t *testing.T) {
	tests := []struct {
		dialect *Dialect
		rule    string
		want    Role
	}{
		{MySQL, "createTable", RoleCreateTable},
		{MySQL, "firstOrAfterColumn", RoleColumnPosition},
		{MySQL, "tableNames", RoleTableNamesClause},
		{Oracle, "tableNameClause", RoleTableNameClause},
		{Oracle, "firstOrAfterColumn", RoleUnknown},
		{PostgreSQL, "CreateStmt", RoleCreateTable},
		{PostgreSQL, "createTable", RoleUnknown},
		{PostgreSQL, "relation_expr", RoleTableName},
	}
	for _, tt := range tests {
		t.Run(tt.dialect.Name+"/"+tt.rule, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.dialect.Role(&Node{Rule: tt.rule}))
		})
	}
}

func TestDialectChildren(t *testing.T) {
	b := NewBuilder("a, b")
	root := b.Node("tableNames", 0, 3, b.Node("tableName", 0, 0), b.Node("comma", 1, 1), b.Node("tableName", 3, 3))

	names := MySQL.Children(root, RoleTableName)
	require.Len(t, names, 2)
	assert.Equal(t, "a", names[0].Text)
	assert.Equal(t, "b", names[1].Text)
	assert.Same(t, names[0], MySQL.Child(root, RoleTableName))
	assert.Nil(t, MySQL.Child(root, RoleColumnName))
	assert.Nil(t, MySQL.Child(nil, RoleTableName))
}

func TestLookupDialect(t *testing.T) {
	d, err := LookupDialect(" MySQL ")
	require.NoError(t, err)
	assert.Same(t, MySQL, d)

	d, err = LookupDialect("postgres")
	require.NoError(t, err)
	assert.Same(t, PostgreSQL, d)

	_, err = LookupDialect("sqlserver")
	assert.ErrorIs(t, err, ErrUnknownDialect)

	assert.Equal(t, []string{"mysql", "oracle", "postgresql"}, Dialects())
}

func TestDialectRule(t *testing.T) {
	rule, ok := PostgreSQL.Rule(RoleTableName)
	require.True(t, ok)
	assert.Equal(t, "any_name", rule)

	_, ok = Oracle.Rule(RoleColumnPosition)
	assert.False(t, ok)
}
