package rule

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRules = `
shardingRule:
  defaultDataSourceName: ds_0
  tables:
    t_order:
      actualDataNodes: ds_${0..1}.t_order_${0..1}
    T_Order_Item:
      actualDataNodes: ds_${0..1}.t_order_item_${0..1}
  broadcastTables:
    - t_config
encryptRule:
  tables:
    t_user:
      columns:
        pwd:
          cipherColumn: pwd_cipher
          plainColumn: pwd_plain
          encryptor: aes
  encryptors:
    aes:
      type: AES
      props:
        aes.key.value: "123456"
`

func TestExpandInline(t *testing.T) {
	tests := []struct {
		expr string
		want []string
	}{
		{"ds_0.t_order", []string{"ds_0.t_order"}},
		{"ds_${0..1}.t_order", []string{"ds_0.t_order", "ds_1.t_order"}},
		{"ds_${0..1}.t_${0..1}", []string{"ds_0.t_0", "ds_0.t_1", "ds_1.t_0", "ds_1.t_1"}},
		{"ds_${['a','b']}.t", []string{"ds_a.t", "ds_b.t"}},
		{"ds_0.t_0, ds_1.t_${2..3}", []string{"ds_0.t_0", "ds_1.t_2", "ds_1.t_3"}},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ExpandInline(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandInlineErrors(t *testing.T) {
	for _, expr := range []string{"ds_${0..", "ds_${3..1}", "ds_${a..b}", "ds_${}"} {
		t.Run(expr, func(t *testing.T) {
			_, err := ExpandInline(expr)
			assert.ErrorIs(t, err, ErrInvalidRule)
		})
	}
}

func TestParse(t *testing.T) {
	rs, err := Parse([]byte(sampleRules))
	require.NoError(t, err)

	assert.True(t, rs.IsSharded("t_order"))
	assert.True(t, rs.IsSharded("T_ORDER"))
	assert.True(t, rs.IsSharded("t_order_item"))
	assert.False(t, rs.IsSharded("t_user"))
	assert.True(t, rs.IsBroadcast("T_CONFIG"))

	nodes := rs.DataNodes("t_order")
	require.Len(t, nodes, 4)
	assert.Equal(t, DataNode{DataSource: "ds_0", Table: "t_order_0"}, nodes[0])
	assert.Equal(t, "ds_1.t_order_1", nodes[3].String())

	assert.Equal(t, []string{"ds_0", "ds_1"}, rs.DataSources())

	cipher, ok := rs.CipherColumn("t_user", "PWD")
	require.True(t, ok)
	assert.Equal(t, "pwd_cipher", cipher)
	_, ok = rs.CipherColumn("t_user", "name")
	assert.False(t, ok)
	assert.True(t, rs.IsEncrypted("t_user"))
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"malformed yaml", "shardingRule: ["},
		{"no data sources", "shardingRule: {}"},
		{"bad data node", "shardingRule:\n  tables:\n    t:\n      actualDataNodes: nodot"},
		{"undeclared data source", "dataSources: [ds_0]\nshardingRule:\n  tables:\n    t:\n      actualDataNodes: ds_${0..1}.t"},
		{"missing cipher", "shardingRule:\n  defaultDataSourceName: ds\nencryptRule:\n  tables:\n    t:\n      columns:\n        c: {plainColumn: p}"},
		{"unknown encryptor", "shardingRule:\n  defaultDataSourceName: ds\nencryptRule:\n  tables:\n    t:\n      columns:\n        c: {cipherColumn: x, encryptor: rot13}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.ErrorIs(t, err, ErrInvalidRule)
		})
	}
}

func TestLoadAndMarshal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleRules), 0o600))

	rs, err := Load(path)
	require.NoError(t, err)

	out, err := rs.Marshal()
	require.NoError(t, err)
	again, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, rs.DataNodes("t_order"), again.DataNodes("t_order"))

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
