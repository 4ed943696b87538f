// Package collection provides the ordered carrier returned by grammar nodes
// that yield zero or more segments.
package collection

import "github.com/riftdata/shardsql/internal/segment"

// Value accumulates items in source order. Items are never de-duplicated.
type Value[T segment.Segment] struct {
	pos   segment.Position
	items []T
}

// New returns an empty Value spanning pos.
func New[T segment.Segment](pos segment.Position) *Value[T] {
	return &Value[T]{pos: pos}
}

// Push appends item.
func (v *Value[T]) Push(item T) {
	v.items = append(v.items, item)
}

// Items returns the accumulated items. The slice is shared, not copied.
func (v *Value[T]) Items() []T {
	return v.items
}

func (v *Value[T]) Len() int {
	return len(v.items)
}

func (v *Value[T]) Position() segment.Position {
	return v.pos
}
