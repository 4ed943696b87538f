package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftdata/shardsql/internal/orchestration"
	"github.com/riftdata/shardsql/internal/parser"
	"github.com/riftdata/shardsql/internal/parsetree"
	"github.com/riftdata/shardsql/internal/rule"
	"github.com/riftdata/shardsql/internal/statement"
	"github.com/riftdata/shardsql/internal/visitor"
)

const testRules = `
shardingRule:
  defaultDataSourceName: ds_0
  tables:
    t_order:
      actualDataNodes: ds_${0..1}.t_order_${0..1}
encryptRule:
  tables:
    t_user:
      columns:
        pwd:
          cipherColumn: pwd_cipher
`

func newEngine(t *testing.T) *Engine {
	t.Helper()
	rs, err := rule.Parse([]byte(testRules))
	require.NoError(t, err)
	return New(orchestration.NewStaticRegistry(rs))
}

func sqlOf(units []ExecutionUnit) []string {
	var out []string
	for _, u := range units {
		out = append(out, u.DataSource+": "+u.SQL)
	}
	return out
}

func TestProcessQueryShardedDDL(t *testing.T) {
	e := newEngine(t)

	pq, err := e.ProcessQuery(context.Background(), "CREATE TABLE t_order (order_id INT PRIMARY KEY)")
	require.NoError(t, err)

	assert.False(t, pq.IsPassthrough)
	assert.Equal(t, parser.QueryDDL, pq.Type)
	assert.Equal(t, "postgresql", pq.Dialect)
	assert.Equal(t, statement.KindCreateTable, pq.Statement.Kind())
	assert.Equal(t, []string{
		"ds_0: CREATE TABLE t_order_0 (order_id INT PRIMARY KEY)",
		"ds_0: CREATE TABLE t_order_1 (order_id INT PRIMARY KEY)",
		"ds_1: CREATE TABLE t_order_0 (order_id INT PRIMARY KEY)",
		"ds_1: CREATE TABLE t_order_1 (order_id INT PRIMARY KEY)",
	}, sqlOf(pq.Units))
}

func TestProcessQueryEncryptedColumn(t *testing.T) {
	e := newEngine(t)

	pq, err := e.ProcessQuery(context.Background(), "ALTER TABLE t_user ADD COLUMN pwd TEXT")
	require.NoError(t, err)
	assert.Equal(t, []string{"ds_0: ALTER TABLE t_user ADD COLUMN pwd_cipher TEXT"}, sqlOf(pq.Units))
}

func TestProcessQueryPassthrough(t *testing.T) {
	e := newEngine(t)

	tests := []struct {
		name string
		sql  string
		want parser.QueryType
	}{
		{"select", "SELECT 1", parser.QuerySelect},
		{"unsharded insert", "INSERT INTO t_user (id) VALUES (1)", parser.QueryInsert},
		{"begin", "BEGIN", parser.QueryUtility},
		{"set", "SET search_path TO public", parser.QueryUtility},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pq, err := e.ProcessQuery(context.Background(), tt.sql)
			require.NoError(t, err)
			assert.True(t, pq.IsPassthrough)
			assert.Equal(t, tt.want, pq.Type)
			assert.Nil(t, pq.Statement)
			assert.Equal(t, []ExecutionUnit{{DataSource: "ds_0", SQL: tt.sql}}, pq.Units)
		})
	}
}

func TestProcessQueryShardedDML(t *testing.T) {
	e := newEngine(t)

	_, err := e.ProcessQuery(context.Background(), "SELECT * FROM t_order WHERE order_id = 1")
	assert.ErrorIs(t, err, ErrShardedDML)
}

func TestProcessQueryErrors(t *testing.T) {
	e := newEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.ProcessQuery(ctx, "DROP TABLE t_order")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = e.ProcessQuery(context.Background(), "CREATE TABLE (")
	assert.Error(t, err)

	empty := New(orchestration.NewRegistry(orchestration.NewFileCenter(t.TempDir() + "/rules.yaml")))
	_, err = empty.ProcessQuery(context.Background(), "DROP TABLE t_order")
	assert.ErrorIs(t, err, orchestration.ErrNoRules)
}

func TestProcessTree(t *testing.T) {
	e := newEngine(t)
	sql := "DROP TABLE t_order, `t_user`"
	b := parsetree.NewBuilder(sql)
	root := b.Node("dropTable", 0, 27,
		b.Node("tableNames", 11, 27,
			b.Node("tableName", 11, 17),
			b.Node("tableName", 20, 27),
		),
	)

	pq, err := e.ProcessTree(context.Background(), parsetree.MySQL, sql, root)
	require.NoError(t, err)
	assert.Equal(t, "mysql", pq.Dialect)
	assert.Equal(t, []string{
		"ds_0: DROP TABLE t_order_0, `t_user`",
		"ds_0: DROP TABLE t_order_1, `t_user`",
		"ds_1: DROP TABLE t_order_0, `t_user`",
		"ds_1: DROP TABLE t_order_1, `t_user`",
	}, sqlOf(pq.Units))
}

func TestProcessTreeErrors(t *testing.T) {
	e := newEngine(t)
	sql := "DROP TABLE t_order"
	b := parsetree.NewBuilder(sql)

	_, err := e.ProcessTree(context.Background(), parsetree.MySQL, sql, b.Node("dropTable", 0, 40))
	assert.ErrorIs(t, err, parsetree.ErrInvalidTree)

	_, err = e.ProcessTree(context.Background(), parsetree.MySQL, sql, b.Node("dropTable", 0, 17))
	assert.ErrorIs(t, err, visitor.ErrContractViolation)

	_, err = e.ProcessTree(context.Background(), parsetree.MySQL, sql, b.Node("selectStatement", 0, 17))
	assert.ErrorIs(t, err, visitor.ErrUnsupportedStatement)
}

func TestProcessScript(t *testing.T) {
	e := newEngine(t)

	results, err := e.ProcessScript(context.Background(), "CREATE TABLE t_user (id INT);\nDROP TABLE t_order;")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Len(t, results[0].Units, 1)
	assert.Len(t, results[1].Units, 4)

	results, err = e.ProcessScript(context.Background(), "SELECT 1; SELECT * FROM t_order")
	assert.True(t, errors.Is(err, ErrShardedDML))
	assert.Len(t, results, 1)
}

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{"single", "SELECT 1", []string{"SELECT 1"}},
		{"two", "SELECT 1; SELECT 2;", []string{"SELECT 1", "SELECT 2"}},
		{"quoted semicolon", "SELECT ';'; SELECT 2", []string{"SELECT ';'", "SELECT 2"}},
		{"identifier", `CREATE TABLE "a;b" (id INT); SELECT 1`, []string{`CREATE TABLE "a;b" (id INT)`, "SELECT 1"}},
		{"back tick", "DROP TABLE `a;b`; SELECT 1", []string{"DROP TABLE `a;b`", "SELECT 1"}},
		{"comment", "SELECT 1 -- a; b\n; SELECT 2", []string{"SELECT 1 -- a; b", "SELECT 2"}},
		{"empty", " ; ;", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitStatements(tt.sql))
		})
	}
}
