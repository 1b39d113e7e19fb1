// Package marker holds placeholder inline nodes for syntax that prefixes a
// stock goldmark construct, like the "?" of "?[text](url)". An inline parser
// emits the marker and lets goldmark parse the construct that follows; an AST
// transformer then resolves every marker against its next sibling.
package marker

import (
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

var KindMarker = ast.NewNodeKind("Marker")

type Marker struct {
	ast.BaseInline
	// Segment is the source of the prefix, restored as text when the marker
	// does not resolve.
	Segment text.Segment
}

func (n *Marker) Kind() ast.NodeKind {
	return KindMarker
}

func (n *Marker) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Segment": string(n.Segment.Value(source)),
	}, nil)
}

// List collects the markers of one document.
type List struct {
	key parser.ContextKey
}

func NewList() *List {
	return &List{key: parser.NewContextKey()}
}

// New creates a marker covering segment and records it in the context.
func (l *List) New(pc parser.Context, segment text.Segment) *Marker {
	m := &Marker{Segment: segment}
	markers := pc.ComputeIfAbsent(l.key, func() interface{} {
		return []*Marker{}
	}).([]*Marker)
	pc.Set(l.key, append(markers, m))
	return m
}

// Take returns the markers recorded so far and forgets them.
func (l *List) Take(pc parser.Context) []*Marker {
	v := pc.Get(l.key)
	if v == nil {
		return nil
	}
	pc.Set(l.key, nil)
	return v.([]*Marker)
}

// Restore replaces the marker with its source text.
func (n *Marker) Restore() {
	parent := n.Parent()
	if parent == nil {
		return
	}
	parent.ReplaceChild(parent, n, ast.NewTextSegment(n.Segment))
}

// Remove drops the marker from the tree.
func (n *Marker) Remove() {
	if parent := n.Parent(); parent != nil {
		parent.RemoveChild(parent, n)
	}
}
