// Package parsetree defines the concrete syntax tree handed to the visitor.
//
// A tree is produced by a grammar engine for one SQL dialect. Nodes carry the
// grammar's own rule name and inclusive character offsets into the original
// SQL text; a Dialect maps those rule names onto dialect-independent roles.
// Trees are read-only once built and may be shared between goroutines.
package parsetree

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidTree is returned when a tree's offsets are inconsistent.
var ErrInvalidTree = errors.New("invalid parse tree")

// Node is one grammar node. Start and Stop are inclusive offsets.
type Node struct {
	Rule     string  `json:"rule" yaml:"rule"`
	Start    int     `json:"start" yaml:"start"`
	Stop     int     `json:"stop" yaml:"stop"`
	Text     string  `json:"text,omitempty" yaml:"text,omitempty"`
	Children []*Node `json:"children,omitempty" yaml:"children,omitempty"`
}

func (n *Node) String() string {
	return fmt.Sprintf("%s[%d,%d]", n.Rule, n.Start, n.Stop)
}

// Builder creates nodes over one source text, filling Text from the offsets.
type Builder struct {
	source string
}

func NewBuilder(source string) *Builder {
	return &Builder{source: source}
}

// Source returns the text the builder slices from.
func (b *Builder) Source() string {
	return b.source
}

// Node creates a node spanning [start, stop]. An out-of-range span leaves
// Text empty; Validate reports it.
func (b *Builder) Node(rule string, start, stop int, children ...*Node) *Node {
	n := &Node{Rule: rule, Start: start, Stop: stop, Children: children}
	if start >= 0 && start <= stop && stop < len(b.source) {
		n.Text = b.source[start : stop+1]
	}
	return n
}

// Validate checks that every node lies inside the source text, that
// start <= stop, and that children lie inside their parent.
func Validate(root *Node, sourceLen int) error {
	if root == nil {
		return fmt.Errorf("%w: empty tree", ErrInvalidTree)
	}
	return validate(root, nil, sourceLen)
}

func validate(n, parent *Node, sourceLen int) error {
	if n.Start < 0 || n.Start > n.Stop || n.Stop >= sourceLen {
		return fmt.Errorf("%w: %s outside source of length %d", ErrInvalidTree, n, sourceLen)
	}
	if parent != nil && (n.Start < parent.Start || n.Stop > parent.Stop) {
		return fmt.Errorf("%w: %s not inside parent %s", ErrInvalidTree, n, parent)
	}
	for _, child := range n.Children {
		if child == nil {
			return fmt.Errorf("%w: nil child under %s", ErrInvalidTree, n)
		}
		if err := validate(child, n, sourceLen); err != nil {
			return err
		}
	}
	return nil
}

// Document is the serialized form of an externally produced tree.
type Document struct {
	Dialect string `json:"dialect" yaml:"dialect"`
	SQL     string `json:"sql" yaml:"sql"`
	Root    *Node  `json:"tree" yaml:"tree"`
}

// Decode reads a Document in JSON or YAML. Empty Text fields are filled from
// the SQL.
func Decode(data []byte, format string) (*Document, error) {
	var doc Document
	switch strings.ToLower(format) {
	case "json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode json tree: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode yaml tree: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported tree format %q", format)
	}
	if err := Validate(doc.Root, len(doc.SQL)); err != nil {
		return nil, err
	}
	fillText(doc.Root, doc.SQL)
	return &doc, nil
}

// Load reads a Document from a .json, .yaml or .yml file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("reading tree: %w", err)
	}
	return Decode(data, strings.TrimPrefix(filepath.Ext(path), "."))
}

func fillText(n *Node, source string) {
	if n.Text == "" {
		n.Text = source[n.Start : n.Stop+1]
	}
	for _, child := range n.Children {
		fillText(child, source)
	}
}
