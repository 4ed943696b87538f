package parser

import "github.com/riftdata/shardsql/internal/segment"

// DDLInfo summarizes a DDL statement for logs.
type DDLInfo struct {
	Type     DDLType
	Tables   []string
	Segments int
	// Modeled is false when no Statement could be built, so the text
	// runs unchanged.
	Modeled bool
}

// ExtractDDLInfo returns nil for anything but DDL.
func ExtractDDLInfo(pq *ParsedQuery) *DDLInfo {
	if pq.Type != QueryDDL {
		return nil
	}
	info := &DDLInfo{Type: pq.DDLType}
	if pq.Statement == nil {
		for _, t := range pq.Tables {
			info.Tables = append(info.Tables, t.QualifiedName())
		}
		return info
	}
	info.Modeled = true
	info.Tables = distinctTableNames(pq.Statement.Tables())
	info.Segments = len(pq.Statement.AllSegments())
	return info
}

func distinctTableNames(tables []*segment.Table) []string {
	names := make([]string, 0, len(tables))
	seen := make(map[string]bool, len(tables))
	for _, t := range tables {
		name := t.QualifiedName()
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// IsTableDDL reports whether the statement creates, alters, drops or
// truncates a table.
func IsTableDDL(pq *ParsedQuery) bool {
	if pq.Type != QueryDDL {
		return false
	}
	switch pq.DDLType {
	case DDLCreateTable, DDLAlterTable, DDLDropTable, DDLTruncate:
		return true
	}
	return false
}
