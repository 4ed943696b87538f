package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOutput(format OutputFormat, quiet bool) (*Output, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	o := NewOutput(format, true, quiet)
	o.SetWriter(&out)
	o.SetErrWriter(&errOut)
	return o, &out, &errOut
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want OutputFormat
		ok   bool
	}{
		{"", FormatTable, true},
		{"TABLE", FormatTable, true},
		{"json", FormatJSON, true},
		{"yml", FormatYAML, true},
		{"csv", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusMessages(t *testing.T) {
	o, out, errOut := newTestOutput(FormatTable, false)

	o.Success("done")
	o.KeyValue("dialect", "mysql")
	o.Error("failed")

	assert.Equal(t, "✓ done\n  dialect: mysql\n", out.String())
	assert.Equal(t, "✗ failed\n", errOut.String())
}

func TestQuietAndStructuredSuppressStatus(t *testing.T) {
	for _, tt := range []struct {
		name   string
		format OutputFormat
		quiet  bool
	}{
		{"quiet", FormatTable, true},
		{"json", FormatJSON, false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			o, out, errOut := newTestOutput(tt.format, tt.quiet)
			o.Info("hidden")
			o.Title("hidden")
			o.Error("shown")
			assert.Empty(t, out.String())
			assert.Contains(t, errOut.String(), "shown")
		})
	}
}

func TestTableRender(t *testing.T) {
	o, out, _ := newTestOutput(FormatTable, false)
	table := NewTable(o, "SOURCE", "SQL")
	table.AddRow("ds_0", "DROP TABLE t_order_0")
	table.AddRow("ds_10", "DROP TABLE t_order_1")

	require.NoError(t, table.Render())
	assert.Equal(t,
		"SOURCE  SQL\n"+
			"ds_0    DROP TABLE t_order_0\n"+
			"ds_10   DROP TABLE t_order_1\n",
		out.String())
}

func TestTableRenderStructured(t *testing.T) {
	o, out, _ := newTestOutput(FormatJSON, false)
	table := NewTable(o, "source", "sql")
	table.AddRow("ds_0", "SELECT 1")
	require.NoError(t, table.Render())
	assert.JSONEq(t, `[{"source":"ds_0","sql":"SELECT 1"}]`, out.String())

	o, out, _ = newTestOutput(FormatYAML, false)
	handled, err := o.Data(map[string]int{"units": 2})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, "units: 2\n", out.String())
}

func TestValidateSQL(t *testing.T) {
	assert.Error(t, ValidateSQL("  \n"))
	assert.NoError(t, ValidateSQL("DROP TABLE t"))
}
