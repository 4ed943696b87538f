package segment

// ColumnDefinition is one column of a CREATE TABLE or ADD COLUMN clause.
type ColumnDefinition struct {
	Pos        Position `json:"position" yaml:"position"`
	Column     *Column  `json:"column" yaml:"column"`
	DataType   string   `json:"data_type" yaml:"data_type"`
	PrimaryKey bool     `json:"primary_key" yaml:"primary_key"`
}

// NewColumnDefinition builds a ColumnDefinition covering [start, stop].
func NewColumnDefinition(start, stop int, column *Column, dataType string, primaryKey bool) *ColumnDefinition {
	return &ColumnDefinition{
		Pos:        NewPosition(start, stop),
		Column:     column,
		DataType:   dataType,
		PrimaryKey: primaryKey,
	}
}

func (c *ColumnDefinition) Position() Position { return c.Pos }
func (c *ColumnDefinition) segmentNode()       {}

// ColumnName returns the defined column's identifier text.
func (c *ColumnDefinition) ColumnName() string {
	return c.Column.Identifier.Value
}

// ColumnPositionKind is the placement directive of a column.
type ColumnPositionKind int

const (
	PositionFirst ColumnPositionKind = iota
	PositionAfter
)

func (k ColumnPositionKind) String() string {
	if k == PositionAfter {
		return "AFTER"
	}
	return "FIRST"
}

func (k ColumnPositionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ColumnPosition is a FIRST or AFTER <column> directive.
type ColumnPosition struct {
	Pos             Position           `json:"position" yaml:"position"`
	Kind            ColumnPositionKind `json:"kind" yaml:"kind"`
	ReferenceColumn *Column            `json:"reference_column,omitempty" yaml:"reference_column,omitempty"`
}

// NewColumnPosition builds a ColumnPosition. reference must be nil for
// PositionFirst.
func NewColumnPosition(start, stop int, kind ColumnPositionKind, reference *Column) *ColumnPosition {
	return &ColumnPosition{Pos: NewPosition(start, stop), Kind: kind, ReferenceColumn: reference}
}

func (c *ColumnPosition) Position() Position { return c.Pos }
func (c *ColumnPosition) segmentNode()       {}

// AddColumnDefinition is one column added by ALTER TABLE ... ADD COLUMN.
type AddColumnDefinition struct {
	Pos              Position          `json:"position" yaml:"position"`
	ColumnDefinition *ColumnDefinition `json:"column_definition" yaml:"column_definition"`
	ColumnPosition   *ColumnPosition   `json:"column_position,omitempty" yaml:"column_position,omitempty"`
}

func NewAddColumnDefinition(start, stop int, def *ColumnDefinition, position *ColumnPosition) *AddColumnDefinition {
	return &AddColumnDefinition{Pos: NewPosition(start, stop), ColumnDefinition: def, ColumnPosition: position}
}

func (a *AddColumnDefinition) Position() Position { return a.Pos }
func (a *AddColumnDefinition) segmentNode()       {}

// ModifyColumnDefinition is an ALTER TABLE ... MODIFY COLUMN action. Only the
// optional position directive is extracted.
type ModifyColumnDefinition struct {
	Pos            Position        `json:"position" yaml:"position"`
	ColumnPosition *ColumnPosition `json:"column_position,omitempty" yaml:"column_position,omitempty"`
}

func NewModifyColumnDefinition(start, stop int, position *ColumnPosition) *ModifyColumnDefinition {
	return &ModifyColumnDefinition{Pos: NewPosition(start, stop), ColumnPosition: position}
}

func (m *ModifyColumnDefinition) Position() Position { return m.Pos }
func (m *ModifyColumnDefinition) segmentNode()       {}

// DropColumnDefinition is an ALTER TABLE ... DROP COLUMN action.
type DropColumnDefinition struct {
	Pos        Position `json:"position" yaml:"position"`
	ColumnName string   `json:"column_name" yaml:"column_name"`
}

func NewDropColumnDefinition(start, stop int, columnName string) *DropColumnDefinition {
	return &DropColumnDefinition{Pos: NewPosition(start, stop), ColumnName: columnName}
}

func (d *DropColumnDefinition) Position() Position { return d.Pos }
func (d *DropColumnDefinition) segmentNode()       {}

// RenameColumn is an ALTER TABLE ... RENAME COLUMN old TO new action.
type RenameColumn struct {
	Pos     Position `json:"position" yaml:"position"`
	OldName string   `json:"old_name" yaml:"old_name"`
	NewName string   `json:"new_name" yaml:"new_name"`
}

func NewRenameColumn(start, stop int, oldName, newName string) *RenameColumn {
	return &RenameColumn{Pos: NewPosition(start, stop), OldName: oldName, NewName: newName}
}

func (r *RenameColumn) Position() Position { return r.Pos }
func (r *RenameColumn) segmentNode()       {}
