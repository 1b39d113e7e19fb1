// Package sections wraps every heading and the blocks that follow it, up to
// the next heading of the same or a higher level, in a <section> whose id is
// derived from the heading text. Deeper headings produce nested sections.
//
//	# Intro           <section id="intro"><h1>Intro</h1>
//	text                <p>text</p>
//	## Details          <section id="details"><h2>Details</h2>...</section>
//	# Next            </section><section id="next">...
package sections

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

type IDStyle string

const (
	// IDStylePlain lowercases the heading and joins words with '-', keeping
	// punctuation.
	IDStylePlain IDStyle = "plain"
	IDStyleKebab IDStyle = "kebab"
	IDStyleSnake IDStyle = "snake"
)

type Config struct {
	IDStyle IDStyle `json:"idStyle"`
}

type Option func(*Config)

func WithIDStyle(style IDStyle) Option {
	return func(c *Config) {
		c.IDStyle = style
	}
}

var spaces = regexp.MustCompile(` +`)

// ID derives a section id from heading text.
func ID(style IDStyle, heading string) string {
	heading = strings.TrimSpace(heading)
	var id string
	switch style {
	case IDStyleKebab:
		id = strcase.ToKebab(heading)
	case IDStyleSnake:
		id = strcase.ToSnake(heading)
	default:
		id = spaces.ReplaceAllString(strings.ToLower(heading), "-")
	}
	if id == "" {
		return "section"
	}
	return id
}

var KindSection = ast.NewNodeKind("Section")

type Section struct {
	ast.BaseBlock
	Level int
}

func (n *Section) Kind() ast.NodeKind {
	return KindSection
}

func (n *Section) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Level": fmt.Sprint(n.Level),
	}, nil)
}

func NewSection(level int) *Section {
	return &Section{Level: level}
}

type transformer struct {
	style IDStyle
}

func (t *transformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	ids := map[string]int{}
	t.wrap(doc, doc.FirstChild(), reader.Source(), ids)
}

// wrap wraps the headings among from and its following siblings.
func (t *transformer) wrap(parent ast.Node, from ast.Node, source []byte, ids map[string]int) {
	for c := from; c != nil; {
		heading, ok := c.(*ast.Heading)
		if !ok {
			c = c.NextSibling()
			continue
		}
		section := NewSection(heading.Level)
		section.SetAttributeString("id", []byte(uniqueID(ids, ID(t.style, headingText(heading, source)))))
		parent.InsertBefore(parent, heading, section)

		for n := ast.Node(heading); n != nil; {
			next := n.NextSibling()
			if h, ok := n.(*ast.Heading); ok && n != heading && h.Level <= heading.Level {
				break
			}
			section.AppendChild(section, n)
			n = next
		}
		t.wrap(section, heading.NextSibling(), source, ids)
		c = section.NextSibling()
	}
}

func uniqueID(ids map[string]int, id string) string {
	n, seen := ids[id]
	ids[id] = n + 1
	if !seen {
		return id
	}
	return fmt.Sprintf("%s-%d", id, n)
}

func headingText(h *ast.Heading, source []byte) string {
	var sb strings.Builder
	lines := h.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		sb.Write(line.Value(source))
	}
	return sb.String()
}

type HTMLRenderer struct{}

func (r *HTMLRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindSection, r.renderSection)
}

func (r *HTMLRenderer) renderSection(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		_, _ = w.WriteString("</section>\n")
		return ast.WalkContinue, nil
	}
	_, _ = w.WriteString("<section")
	if n.Attributes() != nil {
		html.RenderAttributes(w, n, html.GlobalAttributeFilter)
	}
	_, _ = w.WriteString(">\n")
	return ast.WalkContinue, nil
}

type extender struct {
	config Config
}

var Sections goldmark.Extender = New()

func New(opts ...Option) goldmark.Extender {
	e := &extender{config: Config{IDStyle: IDStylePlain}}
	for _, opt := range opts {
		opt(&e.config)
	}
	return e
}

func NewWithConfig(config Config) goldmark.Extender {
	return &extender{config: config}
}

func (e *extender) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithASTTransformers(
			util.Prioritized(&transformer{style: e.config.IDStyle}, 500),
		),
	)
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&HTMLRenderer{}, 500),
	))
}
