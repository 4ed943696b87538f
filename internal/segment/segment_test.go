package segment

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPosition(t *testing.T) {
	p := NewPosition(3, 7)
	assert.Equal(t, 3, p.Start)
	assert.Equal(t, 7, p.Stop)
	assert.Equal(t, 5, p.Len())
	assert.Equal(t, "[3,7]", p.String())

	single := NewPosition(4, 4)
	assert.Equal(t, 1, single.Len())
}

func TestNewPositionRejectsInvalidRange(t *testing.T) {
	assert.Panics(t, func() { NewPosition(5, 4) })
	assert.Panics(t, func() { NewPosition(-1, 4) })
}

func TestPositionContains(t *testing.T) {
	outer := NewPosition(10, 30)
	tests := []struct {
		name  string
		inner Position
		want  bool
	}{
		{"inside", NewPosition(12, 20), true},
		{"same range", NewPosition(10, 30), true},
		{"starts before", NewPosition(9, 20), false},
		{"ends after", NewPosition(20, 31), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, outer.Contains(tt.inner))
		})
	}
}

func TestParseIdentifier(t *testing.T) {
	tests := []struct {
		raw   string
		value string
		quote QuoteCharacter
	}{
		{"t_order", "t_order", QuoteNone},
		{"T_Order", "T_Order", QuoteNone},
		{"`t_order`", "t_order", QuoteBackTick},
		{`"Mixed Case"`, "Mixed Case", QuoteDouble},
		{`"has""quote"`, `has"quote`, QuoteDouble},
		{"[dbo]", "dbo", QuoteBracket},
		{"`", "`", QuoteNone},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			id := ParseIdentifier(tt.raw)
			assert.Equal(t, tt.value, id.Value)
			assert.Equal(t, tt.quote, id.Quote)
			assert.Equal(t, tt.raw, id.String())
		})
	}
}

func TestTableQualifiedName(t *testing.T) {
	owner := Identifier{Value: "public"}
	assert.Equal(t, "public.t_order", NewTable(0, 13, &owner, Identifier{Value: "t_order"}).QualifiedName())
	assert.Equal(t, "t_order", NewTable(0, 6, nil, Identifier{Value: "t_order"}).QualifiedName())
}

func TestColumnPositionKindJSON(t *testing.T) {
	ref := NewColumn(6, 7, Identifier{Value: "id"})
	data, err := json.Marshal(NewColumnPosition(0, 7, PositionAfter, ref))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"AFTER"`)
}
