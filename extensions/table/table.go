// Package table is a goldmark extension for GFM tables whose cells may open
// with a "!{...}" property tag adding classes, highlights, colspan and rowspan.
//
//	| Item              | Qty | Price |
//	|:------------------|----:|------:|
//	|!{^2} Fruit        | 2   | 1.00  |
//	|                   | 3   | 2.50  |
//	|!{+.total >2} Sum  |     | 3.50  |
//
// A column covered by a rowspan still takes one cell in each row it covers,
// and that cell must be written out: the leading pipe of "|W" is an outer
// pipe, so W would be taken as the placeholder. Write "| |W" instead.
//
// Tables without tags render like goldmark's extension.Table, except that
// cells filling out a short row carry their column's alignment. The
// extension can be used in place of extension.Table or next to it; its
// handlers run first.
package table

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"

	"github.com/neuroplastio/mdplug/tableapi"
)

type Config struct {
	// UseAlignAttribute renders alignment as align="..." instead of
	// style="text-align:...".
	UseAlignAttribute bool `json:"useAlignAttribute"`
	// SingleDigitSpans honors only the first digit of span tokens.
	SingleDigitSpans bool `json:"singleDigitSpans"`
}

type Option func(*Config)

func WithAlignAttribute(v bool) Option {
	return func(c *Config) {
		c.UseAlignAttribute = v
	}
}

func WithSingleDigitSpans(v bool) Option {
	return func(c *Config) {
		c.SingleDigitSpans = v
	}
}

type extender struct {
	config Config
}

// Table is the extension with default configuration.
var Table goldmark.Extender = &extender{}

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
	m.Parser().AddOptions(
		parser.WithParagraphTransformers(
			util.Prioritized(NewParagraphTransformer(tableapi.WithSingleDigitSpans(e.config.SingleDigitSpans)), 199),
		),
		parser.WithASTTransformers(
			util.Prioritized(defaultEscapedPipeTransformer, 0),
		),
	)
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(NewHTMLRenderer(e.config), 499),
	))
}
