// Package statement defines the per-kind DDL statement aggregates built by
// the visitor. A statement owns its segments; AllSegments is a flat view over
// the same values for text rewriting.
package statement

import "github.com/riftdata/shardsql/internal/segment"

// Kind classifies a statement.
type Kind int

const (
	KindCreateTable Kind = iota
	KindAlterTable
	KindDropTable
	KindTruncate
	KindCreateIndex
	KindDropIndex
)

func (k Kind) String() string {
	switch k {
	case KindCreateTable:
		return "CREATE TABLE"
	case KindAlterTable:
		return "ALTER TABLE"
	case KindDropTable:
		return "DROP TABLE"
	case KindTruncate:
		return "TRUNCATE"
	case KindCreateIndex:
		return "CREATE INDEX"
	case KindDropIndex:
		return "DROP INDEX"
	default:
		return "UNKNOWN"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Statement is implemented by every statement kind.
type Statement interface {
	Kind() Kind
	// Tables returns the referenced tables in source order.
	Tables() []*segment.Table
	// AllSegments returns every segment a rewriter may need to touch.
	AllSegments() []segment.Segment
	statementNode()
}

// CreateTable is CREATE TABLE. Tables starts with the created table,
// followed by tables referenced from constraints.
type CreateTable struct {
	tables            []*segment.Table
	columnDefinitions []*segment.ColumnDefinition
	allSegments       []segment.Segment
}

func (s *CreateTable) Kind() Kind                                    { return KindCreateTable }
func (s *CreateTable) Tables() []*segment.Table                      { return s.tables }
func (s *CreateTable) ColumnDefinitions() []*segment.ColumnDefinition { return s.columnDefinitions }
func (s *CreateTable) AllSegments() []segment.Segment                { return s.allSegments }
func (s *CreateTable) statementNode()                                {}

// AlterTable is ALTER TABLE.
type AlterTable struct {
	tables                 []*segment.Table
	addedColumnDefinitions []*segment.ColumnDefinition
	changedPositionColumns []*segment.ColumnPosition
	droppedColumnNames     []string
	renamedColumns         []*segment.RenameColumn
	allSegments            []segment.Segment
}

func (s *AlterTable) Kind() Kind               { return KindAlterTable }
func (s *AlterTable) Tables() []*segment.Table { return s.tables }
func (s *AlterTable) AddedColumnDefinitions() []*segment.ColumnDefinition {
	return s.addedColumnDefinitions
}
func (s *AlterTable) ChangedPositionColumns() []*segment.ColumnPosition {
	return s.changedPositionColumns
}
func (s *AlterTable) DroppedColumnNames() []string                { return s.droppedColumnNames }
func (s *AlterTable) RenamedColumns() []*segment.RenameColumn     { return s.renamedColumns }
func (s *AlterTable) AllSegments() []segment.Segment              { return s.allSegments }
func (s *AlterTable) statementNode()                              {}

// DropTable is DROP TABLE t1, t2, ...
type DropTable struct {
	tables      []*segment.Table
	allSegments []segment.Segment
}

// NewDropTable copies tables, in order, into both views.
func NewDropTable(tables []*segment.Table) *DropTable {
	tables = append([]*segment.Table(nil), tables...)
	return &DropTable{tables: tables, allSegments: tableSegments(tables)}
}

func (s *DropTable) Kind() Kind                      { return KindDropTable }
func (s *DropTable) Tables() []*segment.Table        { return s.tables }
func (s *DropTable) AllSegments() []segment.Segment  { return s.allSegments }
func (s *DropTable) statementNode()                  {}

// Truncate is TRUNCATE TABLE. It has the same shape as DropTable.
type Truncate struct {
	tables      []*segment.Table
	allSegments []segment.Segment
}

func NewTruncate(tables []*segment.Table) *Truncate {
	tables = append([]*segment.Table(nil), tables...)
	return &Truncate{tables: tables, allSegments: tableSegments(tables)}
}

func (s *Truncate) Kind() Kind                     { return KindTruncate }
func (s *Truncate) Tables() []*segment.Table       { return s.tables }
func (s *Truncate) AllSegments() []segment.Segment { return s.allSegments }
func (s *Truncate) statementNode()                 {}

// CreateIndex is CREATE INDEX ... ON table.
type CreateIndex struct {
	table       *segment.Table
	allSegments []segment.Segment
}

func NewCreateIndex(table *segment.Table) *CreateIndex {
	return &CreateIndex{table: table, allSegments: []segment.Segment{table}}
}

func (s *CreateIndex) Kind() Kind                     { return KindCreateIndex }
func (s *CreateIndex) Table() *segment.Table          { return s.table }
func (s *CreateIndex) Tables() []*segment.Table       { return []*segment.Table{s.table} }
func (s *CreateIndex) AllSegments() []segment.Segment { return s.allSegments }
func (s *CreateIndex) statementNode()                 {}

// DropIndex is DROP INDEX. The grammar carries no table at this level, so it
// owns no segments.
type DropIndex struct{}

func NewDropIndex() *DropIndex { return &DropIndex{} }

func (s *DropIndex) Kind() Kind                     { return KindDropIndex }
func (s *DropIndex) Tables() []*segment.Table       { return nil }
func (s *DropIndex) AllSegments() []segment.Segment { return nil }
func (s *DropIndex) statementNode()                 {}

func tableSegments(tables []*segment.Table) []segment.Segment {
	result := make([]segment.Segment, 0, len(tables))
	for _, each := range tables {
		result = append(result, each)
	}
	return result
}
