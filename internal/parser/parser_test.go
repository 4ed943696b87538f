package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func refNames(refs []TableRef) []string {
	var names []string
	for _, ref := range refs {
		names = append(names, ref.QualifiedName())
	}
	return names
}

func TestParseClassifies(t *testing.T) {
	tests := []struct {
		name   string
		sql    string
		qt     QueryType
		ddl    DDLType
		tables []string
	}{
		{"select", "SELECT * FROM t_order WHERE order_id = 1", QuerySelect, DDLNone, []string{"t_order"}},
		{"join", "SELECT o.status FROM t_order o JOIN t_order_item i ON o.order_id = i.order_id", QuerySelect, DDLNone, []string{"t_order", "t_order_item"}},
		{"qualified", "SELECT * FROM sales.t_order", QuerySelect, DDLNone, []string{"sales.t_order"}},
		{"update", "UPDATE t_order SET status = 'paid' WHERE order_id = 1", QueryUpdate, DDLNone, []string{"t_order"}},
		{"delete", "DELETE FROM t_order WHERE order_id = 1", QueryDelete, DDLNone, []string{"t_order"}},
		{"create table", "CREATE TABLE t_order (order_id INT PRIMARY KEY, status TEXT)", QueryDDL, DDLCreateTable, []string{"t_order"}},
		{"add column", "ALTER TABLE t_order ADD COLUMN note TEXT", QueryDDL, DDLAlterTable, []string{"t_order"}},
		{"rename column", "ALTER TABLE t_order RENAME COLUMN note TO remark", QueryDDL, DDLAlterTable, []string{"t_order"}},
		{"drop table", "DROP TABLE IF EXISTS t_order", QueryDDL, DDLDropTable, []string{"t_order"}},
		{"truncate", "TRUNCATE TABLE t_order, t_order_item", QueryDDL, DDLTruncate, []string{"t_order", "t_order_item"}},
		{"create index", "CREATE INDEX idx_status ON t_order (status)", QueryDDL, DDLCreateIndex, []string{"t_order"}},
		{"set", "SET search_path TO public", QueryUtility, DDLNone, nil},
		{"show", "SHOW search_path", QueryUtility, DDLNone, nil},
		{"begin", "BEGIN", QueryUtility, DDLNone, nil},
		{"rollback", "ROLLBACK", QueryUtility, DDLNone, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pq, err := Parse(tt.sql)
			require.NoError(t, err)
			assert.Equal(t, tt.qt, pq.Type)
			assert.Equal(t, tt.ddl, pq.DDLType)
			assert.Equal(t, tt.tables, refNames(pq.Tables))
		})
	}
}

func TestParseInsertTargetColumns(t *testing.T) {
	pq, err := Parse("INSERT INTO t_user (user_id, pwd) VALUES (1, 'secret')")
	require.NoError(t, err)
	assert.Equal(t, QueryInsert, pq.Type)
	assert.Equal(t, []string{"t_user"}, refNames(pq.Tables))
	assert.Equal(t, []string{"user_id", "pwd"}, pq.TargetColumns)
	assert.True(t, pq.IsWrite())
	assert.False(t, pq.IsReadOnly())
}

func TestParseOnlyModelsSupportedDDL(t *testing.T) {
	pq, err := Parse("SELECT 1")
	require.NoError(t, err)
	assert.True(t, pq.IsReadOnly())
	assert.Nil(t, pq.Tree)
	assert.Nil(t, pq.Statement)

	pq, err = Parse("DROP VIEW v_order")
	require.NoError(t, err)
	assert.True(t, pq.IsDDL())
	assert.Equal(t, DDLOther, pq.DDLType)
	assert.Nil(t, pq.Statement)
}

func TestParseRejectsInvalidSQL(t *testing.T) {
	_, err := Parse("CREATE TABLE (")
	assert.Error(t, err)
}

func TestIsTransactionControl(t *testing.T) {
	for _, sql := range []string{"BEGIN", "begin", "COMMIT", "ROLLBACK", "START TRANSACTION", "SAVEPOINT sp1", "RELEASE SAVEPOINT sp1", "END"} {
		assert.True(t, IsTransactionControl(sql), sql)
	}
	for _, sql := range []string{"SELECT 1", "INSERT INTO t VALUES (1)", "CREATE TABLE t (id INT)"} {
		assert.False(t, IsTransactionControl(sql), sql)
	}
}

func TestExtractDDLInfo(t *testing.T) {
	tests := []struct {
		sql     string
		ddl     DDLType
		tables  []string
		modeled bool
	}{
		{"CREATE TABLE t_order (order_id INT PRIMARY KEY)", DDLCreateTable, []string{"t_order"}, true},
		{"DROP TABLE sales.t_order, t_order_item", DDLDropTable, []string{"sales.t_order", "t_order_item"}, true},
		{"DROP VIEW sales.v_order", DDLOther, []string{"sales.v_order"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			pq, err := Parse(tt.sql)
			require.NoError(t, err)
			info := ExtractDDLInfo(pq)
			require.NotNil(t, info)
			assert.Equal(t, tt.ddl, info.Type)
			assert.Equal(t, tt.tables, info.Tables)
			assert.Equal(t, tt.modeled, info.Modeled)
			assert.Equal(t, tt.modeled, info.Segments > 0)
		})
	}

	pq, err := Parse("SELECT 1")
	require.NoError(t, err)
	assert.Nil(t, ExtractDDLInfo(pq))
}

func TestIsTableDDL(t *testing.T) {
	tests := map[string]bool{
		"CREATE TABLE t (id INT)":            true,
		"ALTER TABLE t ADD COLUMN x INT":     true,
		"ALTER TABLE t RENAME COLUMN a TO b": true,
		"DROP TABLE t":                       true,
		"TRUNCATE t":                         true,
		"CREATE INDEX idx ON t (id)":         false,
		"DROP VIEW v":                        false,
		"SELECT * FROM t":                    false,
	}
	for sql, want := range tests {
		pq, err := Parse(sql)
		require.NoError(t, err, sql)
		assert.Equal(t, want, IsTableDDL(pq), sql)
	}
}

func TestTypeStrings(t *testing.T) {
	assert.Equal(t, "SELECT", QuerySelect.String())
	assert.Equal(t, "DDL", QueryDDL.String())
	assert.Equal(t, "UTILITY", QueryUtility.String())
	assert.Equal(t, "UNKNOWN", QueryUnknown.String())
	assert.Equal(t, "CREATE TABLE", DDLCreateTable.String())
	assert.Equal(t, "TRUNCATE", DDLTruncate.String())
	assert.Equal(t, "OTHER", DDLOther.String())
	assert.Equal(t, "NONE", DDLNone.String())
}
