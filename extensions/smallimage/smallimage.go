// Package smallimage renders "!![alt](src "title")" as a thumbnail that
// opens the full image in a new tab:
//
//	<a href="src" target="_blank"><img src="src" alt="alt" title="title" class="small-img"></a>
package smallimage

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/neuroplastio/mdplug/extensions/internal/marker"
)

const DefaultClass = "small-img"

type Config struct {
	Class string `json:"class"`
}

type Option func(*Config)

// WithClass sets the class given to the image.
func WithClass(class string) Option {
	return func(c *Config) {
		c.Class = class
	}
}

type extender struct {
	config Config
}

var SmallImage goldmark.Extender = New()

func New(opts ...Option) goldmark.Extender {
	e := &extender{config: Config{Class: DefaultClass}}
	for _, opt := range opts {
		opt(&e.config)
	}
	return e
}

func NewWithConfig(config Config) goldmark.Extender {
	if config.Class == "" {
		config.Class = DefaultClass
	}
	return &extender{config: config}
}

func (e *extender) Extend(m goldmark.Markdown) {
	markers := marker.NewList()
	m.Parser().AddOptions(
		parser.WithInlineParsers(
			// ahead of the link parser, which also triggers on '!'
			util.Prioritized(&inlineParser{markers: markers}, 199),
		),
		parser.WithASTTransformers(
			util.Prioritized(&transformer{markers: markers, class: e.config.Class}, 100),
		),
	)
}

type inlineParser struct {
	markers *marker.List
}

func (p *inlineParser) Trigger() []byte {
	return []byte{'!'}
}

// Parse consumes the first '!' of "!![" and leaves "![...](...)" to the
// image parser.
func (p *inlineParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, segment := block.PeekLine()
	if len(line) < 3 || line[1] != '!' || line[2] != '[' {
		return nil
	}
	block.Advance(1)
	return p.markers.New(pc, segment.WithStop(segment.Start+1))
}

type transformer struct {
	markers *marker.List
	class   string
}

func (t *transformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	for _, m := range t.markers.Take(pc) {
		img, ok := m.NextSibling().(*ast.Image)
		if !ok {
			m.Restore()
			continue
		}
		parent := m.Parent()
		link := ast.NewLink()
		link.Destination = img.Destination
		link.SetAttributeString("target", []byte("_blank"))
		img.SetAttributeString("class", []byte(t.class))
		parent.ReplaceChild(parent, m, link)
		link.AppendChild(link, img)
	}
}
