package cst

import (
	"fmt"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// sitterProvider wraps one tree-sitter parser. A parser instance is not safe
// for concurrent use, so Parse/Reparse serialize on the mutex.
type sitterProvider struct {
	language string
	mu       sync.Mutex
	parser   *tree_sitter.Parser
}

// sitterTree owns a *tree_sitter.Tree and keeps the exact content it was
// parsed from: node Text() slices it, and Reparse needs it to compute the
// old-side row/column positions for an edit.
type sitterTree struct {
	tree      *tree_sitter.Tree
	content   []byte
	closeOnce sync.Once
}

type sitterNode struct {
	node    tree_sitter.Node
	content []byte
}

// Registry holds one Provider per supported language.
type Registry struct {
	providers map[string]Provider
}

// NewSitterRegistry builds providers for every grammar compiled in. A grammar
// that fails to load is skipped rather than failing the rest.
func NewSitterRegistry() *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	r.register("go", tree_sitter.NewLanguage(tree_sitter_go.Language()))
	r.register("python", tree_sitter.NewLanguage(tree_sitter_python.Language()))
	r.register("javascript", tree_sitter.NewLanguage(tree_sitter_javascript.Language()))
	return r
}

func (r *Registry) register(name string, language *tree_sitter.Language) {
	parser := tree_sitter.NewParser()
	if err := parser.SetLanguage(language); err != nil {
		return
	}
	r.providers[name] = &sitterProvider{language: name, parser: parser}
}

// Provider returns the provider for a language name.
func (r *Registry) Provider(language string) (Provider, bool) {
	p, ok := r.providers[language]
	return p, ok
}

// Languages returns the names of all registered languages.
func (r *Registry) Languages() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// Parse builds a tree from scratch.
func (p *sitterProvider) Parse(text []byte) (tree Tree, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// The tree-sitter C library reads the buffer via CGO; keep a private
	// copy so callers may reuse or mutate their slice afterwards.
	buf := make([]byte, len(text))
	copy(buf, text)

	defer func() {
		if r := recover(); r != nil {
			tree = nil
			err = fmt.Errorf("%s parser panicked: %v", p.language, r)
		}
	}()

	t := p.parser.Parse(buf, nil)
	if t == nil {
		return nil, fmt.Errorf("%s parser produced no tree", p.language)
	}
	return &sitterTree{tree: t, content: buf}, nil
}

// Reparse applies the edit list to the previous tree and re-parses the new
// content incrementally. The resulting tree is equivalent to Parse(newText).
// The old tree is edited in place, so the caller must hold it exclusively
// (nothing else may dispose or read it during the call) and still owns
// closing it afterwards; its pre-edit state is not recoverable.
func (p *sitterProvider) Reparse(old Tree, edits []Edit, newText []byte) (Tree, error) {
	prev, ok := old.(*sitterTree)
	if !ok || prev.tree == nil {
		return p.Parse(newText)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	buf := make([]byte, len(newText))
	copy(buf, newText)

	for _, e := range edits {
		prev.tree.Edit(&tree_sitter.InputEdit{
			StartByte:      e.StartByte,
			OldEndByte:     e.OldEndByte,
			NewEndByte:     e.NewEndByte,
			StartPosition:  pointAt(prev.content, e.StartByte),
			OldEndPosition: pointAt(prev.content, e.OldEndByte),
			NewEndPosition: pointAt(buf, e.NewEndByte),
		})
	}

	t := p.parser.Parse(buf, prev.tree)
	if t == nil {
		return nil, fmt.Errorf("%s parser produced no tree on reparse", p.language)
	}
	return &sitterTree{tree: t, content: buf}, nil
}

// pointAt computes the row/column of a byte offset by scanning for newlines.
func pointAt(text []byte, offset uint) tree_sitter.Point {
	if offset > uint(len(text)) {
		offset = uint(len(text))
	}
	var pt tree_sitter.Point
	for _, b := range text[:offset] {
		if b == '\n' {
			pt.Row++
			pt.Column = 0
		} else {
			pt.Column++
		}
	}
	return pt
}

func (t *sitterTree) Root() Node {
	return &sitterNode{node: *t.tree.RootNode(), content: t.content}
}

func (t *sitterTree) Close() {
	t.closeOnce.Do(func() {
		t.tree.Close()
	})
}

func (n *sitterNode) Kind() string { return n.node.Kind() }

func (n *sitterNode) NamedChildCount() int {
	return int(n.node.NamedChildCount())
}

func (n *sitterNode) NamedChild(i int) Node {
	child := n.node.NamedChild(uint(i))
	if child == nil {
		return nil
	}
	return &sitterNode{node: *child, content: n.content}
}

func (n *sitterNode) ChildByField(name string) Node {
	child := n.node.ChildByFieldName(name)
	if child == nil {
		return nil
	}
	return &sitterNode{node: *child, content: n.content}
}

func (n *sitterNode) StartByte() uint { return n.node.StartByte() }
func (n *sitterNode) EndByte() uint { return n.node.EndByte() }

func (n *sitterNode) StartPoint() Point {
	pos := n.node.StartPosition()
	return Point{Row: pos.Row, Column: pos.Column}
}

func (n *sitterNode) EndPoint() Point {
	pos := n.node.EndPosition()
	return Point{Row: pos.Row, Column: pos.Column}
}

func (n *sitterNode) Text() string {
	start, end := n.node.StartByte(), n.node.EndByte()
	if end > uint(len(n.content)) || start > end {
		return ""
	}
	return string(n.content[start:end])
}
