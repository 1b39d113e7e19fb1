// Package blanklink adds "?[text](url)": a link opened in a new tab, with
// target="_blank" and rel="noreferrer noopener".
package blanklink

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/neuroplastio/mdplug/extensions/internal/marker"
)

type Config struct {
	// ExtraText is appended to the text of every blank link, e.g. " ↗".
	ExtraText string `json:"extraText"`
}

type Option func(*Config)

func WithExtraText(s string) Option {
	return func(c *Config) {
		c.ExtraText = s
	}
}

type extender struct {
	config Config
}

var BlankLink goldmark.Extender = New()

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
	markers := marker.NewList()
	m.Parser().AddOptions(
		parser.WithInlineParsers(
			util.Prioritized(&inlineParser{markers: markers}, 199),
		),
		parser.WithASTTransformers(
			util.Prioritized(&transformer{markers: markers, extraText: e.config.ExtraText}, 100),
		),
	)
}

type inlineParser struct {
	markers *marker.List
}

func (p *inlineParser) Trigger() []byte {
	return []byte{'?'}
}

func (p *inlineParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	if block.PrecendingCharacter() == '!' {
		return nil
	}
	line, segment := block.PeekLine()
	if len(line) < 2 || line[1] != '[' {
		return nil
	}
	block.Advance(1)
	return p.markers.New(pc, segment.WithStop(segment.Start+1))
}

type transformer struct {
	markers   *marker.List
	extraText string
}

func (t *transformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	for _, m := range t.markers.Take(pc) {
		link, ok := m.NextSibling().(*ast.Link)
		if !ok {
			m.Restore()
			continue
		}
		m.Remove()
		link.SetAttributeString("target", []byte("_blank"))
		link.SetAttributeString("rel", []byte("noreferrer noopener"))
		if t.extraText != "" {
			link.AppendChild(link, ast.NewString([]byte(t.extraText)))
		}
	}
}
