// Package segment defines the position-annotated fragments that make up a
// parsed DDL statement. Segments are immutable once built.
package segment

import (
	"fmt"
	"strings"
)

// Position is an inclusive character range in the original SQL text.
type Position struct {
	Start int `json:"start" yaml:"start"`
	Stop  int `json:"stop" yaml:"stop"`
}

// NewPosition returns the range [start, stop]. It panics if the range is
// inverted or negative; offsets come from the parse tree, so a bad range
// means the tree itself is broken.
func NewPosition(start, stop int) Position {
	if start < 0 || start > stop {
		panic(fmt.Sprintf("segment: invalid position [%d, %d]", start, stop))
	}
	return Position{Start: start, Stop: stop}
}

// Contains reports whether other lies entirely inside p.
func (p Position) Contains(other Position) bool {
	return p.Start <= other.Start && other.Stop <= p.Stop
}

// Len returns the number of characters covered.
func (p Position) Len() int {
	return p.Stop - p.Start + 1
}

func (p Position) String() string {
	return fmt.Sprintf("[%d,%d]", p.Start, p.Stop)
}

// Segment is implemented by every AST fragment.
type Segment interface {
	Position() Position
	segmentNode()
}

// QuoteCharacter identifies how an identifier was quoted in the source.
type QuoteCharacter int

const (
	QuoteNone QuoteCharacter = iota
	QuoteBackTick
	QuoteDouble
	QuoteBracket
)

func (q QuoteCharacter) String() string {
	switch q {
	case QuoteBackTick:
		return "BACK_QUOTE"
	case QuoteDouble:
		return "QUOTE"
	case QuoteBracket:
		return "BRACKETS"
	default:
		return "NONE"
	}
}

// MarshalText renders the quote kind by name in JSON and YAML output.
func (q QuoteCharacter) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

// Wrap quotes value with q.
func (q QuoteCharacter) Wrap(value string) string {
	switch q {
	case QuoteBackTick:
		return "`" + strings.ReplaceAll(value, "`", "``") + "`"
	case QuoteDouble:
		return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
	case QuoteBracket:
		return "[" + strings.ReplaceAll(value, "]", "]]") + "]"
	default:
		return value
	}
}

// Identifier is a name with its quoting stripped. Case is preserved.
type Identifier struct {
	Value string         `json:"value" yaml:"value"`
	Quote QuoteCharacter `json:"quote,omitempty" yaml:"quote,omitempty"`
}

// ParseIdentifier strips one level of quoting from raw identifier text.
func ParseIdentifier(raw string) Identifier {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 2 {
		first, last := raw[0], raw[len(raw)-1]
		switch {
		case first == '`' && last == '`':
			return Identifier{Value: strings.ReplaceAll(raw[1:len(raw)-1], "``", "`"), Quote: QuoteBackTick}
		case first == '"' && last == '"':
			return Identifier{Value: strings.ReplaceAll(raw[1:len(raw)-1], `""`, `"`), Quote: QuoteDouble}
		case first == '[' && last == ']':
			return Identifier{Value: strings.ReplaceAll(raw[1:len(raw)-1], "]]", "]"), Quote: QuoteBracket}
		}
	}
	return Identifier{Value: raw}
}

func (i Identifier) String() string {
	return i.Quote.Wrap(i.Value)
}

// Table is a table reference, optionally qualified by an owner (schema).
type Table struct {
	Pos   Position    `json:"position" yaml:"position"`
	Owner *Identifier `json:"owner,omitempty" yaml:"owner,omitempty"`
	Name  Identifier  `json:"name" yaml:"name"`
}

// NewTable builds a Table segment covering [start, stop].
func NewTable(start, stop int, owner *Identifier, name Identifier) *Table {
	return &Table{Pos: NewPosition(start, stop), Owner: owner, Name: name}
}

func (t *Table) Position() Position { return t.Pos }
func (t *Table) segmentNode()       {}

// QualifiedName returns owner.name, or just name when unqualified.
func (t *Table) QualifiedName() string {
	if t.Owner != nil {
		return t.Owner.Value + "." + t.Name.Value
	}
	return t.Name.Value
}

// Column is a column reference.
type Column struct {
	Pos        Position   `json:"position" yaml:"position"`
	Identifier Identifier `json:"identifier" yaml:"identifier"`
}

// NewColumn builds a Column segment covering [start, stop].
func NewColumn(start, stop int, identifier Identifier) *Column {
	return &Column{Pos: NewPosition(start, stop), Identifier: identifier}
}

func (c *Column) Position() Position { return c.Pos }
func (c *Column) segmentNode()       {}
