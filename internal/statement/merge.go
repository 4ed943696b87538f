package statement

import "github.com/riftdata/shardsql/internal/segment"

// CreateDefinitions is what a create-definition clause yields: the column
// definitions in source order and every segment found inside the clause,
// including tables referenced by foreign-key constraints.
type CreateDefinitions struct {
	ColumnDefinitions []*segment.ColumnDefinition
	Segments          []segment.Segment
}

// AlterDefinitions is what an alter-definition clause yields.
type AlterDefinitions struct {
	Added              []*segment.ColumnDefinition
	ChangedPositions   []*segment.ColumnPosition
	DroppedColumnNames []string
	Renamed            []*segment.RenameColumn
	Segments           []segment.Segment
}

// MergeCreateTable builds a CreateTable from its primary table and the
// optional create-definition clause. Tables nested in the clause are appended
// to Tables after the primary table.
func MergeCreateTable(table *segment.Table, defs *CreateDefinitions) *CreateTable {
	result := &CreateTable{
		tables:      []*segment.Table{table},
		allSegments: []segment.Segment{table},
	}
	if defs == nil {
		return result
	}
	result.columnDefinitions = append(result.columnDefinitions, defs.ColumnDefinitions...)
	result.allSegments, result.tables = mergeSegments(result.allSegments, result.tables, defs.Segments)
	if len(result.columnDefinitions) == 0 {
		result.allSegments = AppendSegments(result.allSegments, result.columnDefinitions...)
	}
	return result
}

// MergeAlterTable builds an AlterTable from its table and the optional
// alter-definition clause.
func MergeAlterTable(table *segment.Table, defs *AlterDefinitions) *AlterTable {
	result := &AlterTable{
		tables:      []*segment.Table{table},
		allSegments: []segment.Segment{table},
	}
	if defs == nil {
		return result
	}
	result.addedColumnDefinitions = append(result.addedColumnDefinitions, defs.Added...)
	result.changedPositionColumns = append(result.changedPositionColumns, defs.ChangedPositions...)
	result.droppedColumnNames = append(result.droppedColumnNames, defs.DroppedColumnNames...)
	result.renamedColumns = append(result.renamedColumns, defs.Renamed...)
	result.allSegments, result.tables = mergeSegments(result.allSegments, result.tables, defs.Segments)
	return result
}

// AppendSegments appends typed segments to a flat segment list.
func AppendSegments[T segment.Segment](all []segment.Segment, items ...T) []segment.Segment {
	for _, each := range items {
		all = append(all, each)
	}
	return all
}

func mergeSegments(all []segment.Segment, tables []*segment.Table, nested []segment.Segment) ([]segment.Segment, []*segment.Table) {
	for _, each := range nested {
		all = append(all, each)
		if table, ok := each.(*segment.Table); ok {
			tables = append(tables, table)
		}
	}
	return all, tables
}
