// Package cst defines the concrete-syntax-tree provider contract the
// extraction engine consumes, and a tree-sitter implementation of it.
//
// The engine never talks to a parser library directly: analyzers walk Node
// values, the parse cache owns Tree handles, and the provider is the only
// component that knows how text becomes a tree. Synthetic implementations of
// Node/Tree are used in tests to drive the traversal bounds without a grammar.
package cst

// Point is a zero-based row/column position in source text.
type Point struct {
	Row    uint `json:"row"`
	Column uint `json:"column"`
}

// Node is one CST node: a type tag, byte/position spans, named-child and
// field-name accessors, and the covered source text.
type Node interface {
	// Kind returns the grammar's type tag for this node.
	Kind() string

	NamedChildCount() int
	// NamedChild returns the i-th named child, or nil if out of range.
	NamedChild(i int) Node
	// ChildByField returns the child for a grammar field name, or nil.
	ChildByField(name string) Node

	StartByte() uint
	EndByte() uint
	StartPoint() Point
	EndPoint() Point

	// Text returns the source text this node spans.
	Text() string
}

// Tree is a parsed CST whose native resources the holder owns. Close releases
// them; exactly one owner may call it, and calling it twice is a bug in the
// owner, not the provider.
type Tree interface {
	Root() Node
	Close()
}

// Edit describes one replaced byte range for incremental reparse: the bytes
// [StartByte, OldEndByte) of the previous content were replaced by new bytes
// ending at NewEndByte.
type Edit struct {
	StartByte  uint
	OldEndByte uint
	NewEndByte uint
}

// Provider produces trees for one language. Parse builds a tree from scratch;
// Reparse reuses an existing tree plus an edit list, and must yield a tree
// indistinguishable from Parse(newText) — only performance may differ.
type Provider interface {
	Parse(text []byte) (Tree, error)
	Reparse(old Tree, edits []Edit, newText []byte) (Tree, error)
}
