package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/riftdata/shardsql/internal/engine"
	"github.com/riftdata/shardsql/internal/segment"
	"github.com/riftdata/shardsql/internal/statement"
)

// segmentRow is the printable form of one segment.
type segmentRow struct {
	Type   string `json:"type" yaml:"type"`
	Start  int    `json:"start" yaml:"start"`
	Stop   int    `json:"stop" yaml:"stop"`
	Text   string `json:"text" yaml:"text"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

type statementView struct {
	Dialect  string       `json:"dialect" yaml:"dialect"`
	Kind     string       `json:"kind" yaml:"kind"`
	Tables   []string     `json:"tables" yaml:"tables"`
	Segments []segmentRow `json:"segments" yaml:"segments"`
}

func newStatementView(dialectName, sql string, stmt statement.Statement) statementView {
	view := statementView{
		Dialect:  dialectName,
		Kind:     stmt.Kind().String(),
		Tables:   []string{},
		Segments: []segmentRow{},
	}
	for _, t := range stmt.Tables() {
		view.Tables = append(view.Tables, t.QualifiedName())
	}
	for _, seg := range stmt.AllSegments() {
		view.Segments = append(view.Segments, describeSegment(sql, seg))
	}
	return view
}

func describeSegment(sql string, seg segment.Segment) segmentRow {
	pos := seg.Position()
	row := segmentRow{Start: pos.Start, Stop: pos.Stop}
	if pos.Stop < len(sql) {
		row.Text = sql[pos.Start : pos.Stop+1]
	}

	switch s := seg.(type) {
	case *segment.Table:
		row.Type = "table"
		row.Detail = s.QualifiedName()
	case *segment.Column:
		row.Type = "column"
		row.Detail = s.Identifier.Value
	case *segment.ColumnDefinition:
		row.Type = "column definition"
		row.Detail = columnDetail(s)
	case *segment.AddColumnDefinition:
		row.Type = "add column"
		row.Detail = columnDetail(s.ColumnDefinition)
		if s.ColumnPosition != nil {
			row.Detail += " " + positionDetail(s.ColumnPosition)
		}
	case *segment.ModifyColumnDefinition:
		row.Type = "modify column"
		if s.ColumnPosition != nil {
			row.Detail = positionDetail(s.ColumnPosition)
		}
	case *segment.DropColumnDefinition:
		row.Type = "drop column"
		row.Detail = s.ColumnName
	case *segment.RenameColumn:
		row.Type = "rename column"
		row.Detail = s.OldName + " -> " + s.NewName
	case *segment.ColumnPosition:
		row.Type = "column position"
		row.Detail = positionDetail(s)
	default:
		row.Type = fmt.Sprintf("%T", seg)
	}
	return row
}

func columnDetail(def *segment.ColumnDefinition) string {
	if def == nil {
		return ""
	}
	detail := def.ColumnName() + " " + def.DataType
	if def.PrimaryKey {
		detail += " primary key"
	}
	return detail
}

func positionDetail(p *segment.ColumnPosition) string {
	if p.ReferenceColumn != nil {
		return p.Kind.String() + " " + p.ReferenceColumn.Identifier.Value
	}
	return p.Kind.String()
}

func segmentTableRows(rows []segmentRow) [][]string {
	result := make([][]string, 0, len(rows))
	for _, r := range rows {
		result = append(result, []string{
			r.Type,
			strconv.Itoa(r.Start),
			strconv.Itoa(r.Stop),
			strings.Join(strings.Fields(r.Text), " "),
			r.Detail,
		})
	}
	return result
}

// tableMapping renders logical=actual pairs in statement order.
func tableMapping(pq *engine.ProcessedQuery, unit int) string {
	if pq.Statement == nil || pq.Route == nil || unit >= len(pq.Route.Units) {
		return "-"
	}
	u := pq.Route.Units[unit]
	var pairs []string
	seen := make(map[string]bool)
	for _, t := range pq.Statement.Tables() {
		name := t.Name.Value
		if seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true
		if actual := u.ActualTable(name); actual != name {
			pairs = append(pairs, name+"="+actual)
		}
	}
	if len(pairs) == 0 {
		return "-"
	}
	return strings.Join(pairs, ", ")
}
