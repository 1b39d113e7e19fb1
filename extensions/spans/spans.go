// Package spans wraps delimited inline text in a classed <span>.
//
//	*!check this!*  ->  <span class="text-warning">check this</span>
//	*?not sure?*    ->  <span class="text-unsure">not sure</span>
//
// The content is kept as plain text. A span never crosses a line.
package spans

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Span describes one delimiter pair and the class it produces.
type Span struct {
	Open  string `json:"open"`
	Close string `json:"close"`
	Class string `json:"class"`
}

var (
	Warning = Span{Open: "*!", Close: "!*", Class: "text-warning"}
	Unsure  = Span{Open: "*?", Close: "?*", Class: "text-unsure"}
)

func DefaultSpans() []Span {
	return []Span{Warning, Unsure}
}

type Config struct {
	Spans []Span `json:"spans"`
}

type Option func(*Config)

// WithSpan adds a delimiter pair. Once any is added the defaults are not
// used.
func WithSpan(open, close, class string) Option {
	return func(c *Config) {
		c.Spans = append(c.Spans, Span{Open: open, Close: close, Class: class})
	}
}

var KindSpan = ast.NewNodeKind("Span")

// Node is a classed inline span.
type Node struct {
	ast.BaseInline
	Class string
}

func (n *Node) Kind() ast.NodeKind {
	return KindSpan
}

func (n *Node) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Class": n.Class}, nil)
}

func NewNode(class string) *Node {
	return &Node{Class: class}
}

type inlineParser struct {
	spans   []Span
	trigger []byte
}

func newInlineParser(spans []Span) *inlineParser {
	p := &inlineParser{}
	for _, s := range spans {
		if s.Open == "" || s.Close == "" {
			continue
		}
		p.spans = append(p.spans, s)
		if bytes.IndexByte(p.trigger, s.Open[0]) < 0 {
			p.trigger = append(p.trigger, s.Open[0])
		}
	}
	return p
}

func (p *inlineParser) Trigger() []byte {
	return p.trigger
}

func (p *inlineParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, segment := block.PeekLine()
	for _, s := range p.spans {
		if !bytes.HasPrefix(line, []byte(s.Open)) {
			continue
		}
		end := bytes.Index(line[len(s.Open):], []byte(s.Close))
		if end < 0 {
			continue
		}
		start := segment.Start + len(s.Open)
		node := NewNode(s.Class)
		if end > 0 {
			node.AppendChild(node, ast.NewTextSegment(text.NewSegment(start, start+end)))
		}
		block.Advance(len(s.Open) + end + len(s.Close))
		return node
	}
	return nil
}

type HTMLRenderer struct{}

func (r *HTMLRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindSpan, r.renderSpan)
}

func (r *HTMLRenderer) renderSpan(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		_, _ = w.WriteString("</span>")
		return ast.WalkContinue, nil
	}
	n := node.(*Node)
	_, _ = w.WriteString(`<span class="`)
	_, _ = w.Write(util.EscapeHTML([]byte(n.Class)))
	_ = w.WriteByte('"')
	if n.Attributes() != nil {
		html.RenderAttributes(w, n, html.GlobalAttributeFilter)
	}
	_ = w.WriteByte('>')
	return ast.WalkContinue, nil
}

type extender struct {
	config Config
}

var Spans goldmark.Extender = New()

func New(opts ...Option) goldmark.Extender {
	e := &extender{}
	for _, opt := range opts {
		opt(&e.config)
	}
	return e
}

func NewWithConfig(config Config) goldmark.Extender {
	return &extender{config: config}
}

func (e *extender) Extend(m goldmark.Markdown) {
	spans := e.config.Spans
	if len(spans) == 0 {
		spans = DefaultSpans()
	}
	m.Parser().AddOptions(
		parser.WithInlineParsers(
			// ahead of emphasis
			util.Prioritized(newInlineParser(spans), 450),
		),
	)
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&HTMLRenderer{}, 500),
	))
}
