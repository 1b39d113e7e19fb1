// Package buttons inserts controller button icons inline.
//
//	@!x   ->  <span class="inline-btn"><img src="x.png" alt="Cross"></span>
//	@!!x  ->  the same followed by "&nbsp;Cross"
//
// Image files are named after the abbreviation, see Names.
package buttons

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

const (
	SpanClass        = "inline-btn"
	DefaultExtension = "png"
)

// Names maps button abbreviations to display names.
var Names = map[string]string{
	"q":  "Square",
	"x":  "Cross",
	"o":  "Circle",
	"t":  "Triangle",
	"st": "Start",
	"se": "Select",
	"l1": "L1",
	"l2": "L2",
	"l3": "L3",
	"r1": "R1",
	"r2": "R2",
	"r3": "R3",
	"du": "Dpad up",
	"dl": "Dpad left",
	"dd": "Dpad down",
	"dr": "Dpad right",
}

type Config struct {
	// ImagesPath is prepended verbatim to the file name.
	ImagesPath string `json:"imagesPath"`
	// ImagesExtension is the file extension, with or without the dot.
	ImagesExtension string `json:"imagesExtension"`
}

type Option func(*Config)

func WithImagesPath(path string) Option {
	return func(c *Config) {
		c.ImagesPath = path
	}
}

func WithImagesExtension(ext string) Option {
	return func(c *Config) {
		c.ImagesExtension = ext
	}
}

// Source returns the image path for an abbreviation.
func (c Config) Source(abbr string) string {
	ext := strings.TrimPrefix(c.ImagesExtension, ".")
	if ext == "" {
		ext = DefaultExtension
	}
	return c.ImagesPath + abbr + "." + ext
}

var KindButton = ast.NewNodeKind("Button")

type Button struct {
	ast.BaseInline
	Abbr string
	// WithName appends the display name after the icon.
	WithName bool
}

func (n *Button) Kind() ast.NodeKind {
	return KindButton
}

func (n *Button) Dump(source []byte, level int) {
	m := map[string]string{"Abbr": n.Abbr}
	if n.WithName {
		m["WithName"] = "true"
	}
	ast.DumpHelper(n, source, level, m, nil)
}

// Name returns the display name of the button.
func (n *Button) Name() string {
	return Names[n.Abbr]
}

type inlineParser struct{}

func (p *inlineParser) Trigger() []byte {
	return []byte{'@'}
}

func (p *inlineParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, _ := block.PeekLine()
	if len(line) < 3 || line[1] != '!' {
		return nil
	}
	pos := 2
	withName := false
	if line[pos] == '!' {
		withName = true
		pos++
	}
	rest := line[pos:]
	// two-letter abbreviations never start with a one-letter one
	for _, n := range []int{1, 2} {
		if len(rest) < n {
			break
		}
		abbr := string(rest[:n])
		if _, ok := Names[abbr]; ok {
			block.Advance(pos + n)
			return &Button{Abbr: abbr, WithName: withName}
		}
	}
	return nil
}

type HTMLRenderer struct {
	html.Config
	config Config
}

func NewHTMLRenderer(config Config, opts ...html.Option) renderer.NodeRenderer {
	r := &HTMLRenderer{
		Config: html.NewConfig(),
		config: config,
	}
	for _, opt := range opts {
		opt.SetHTMLOption(&r.Config)
	}
	return r
}

func (r *HTMLRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindButton, r.renderButton)
}

func (r *HTMLRenderer) renderButton(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*Button)
	name := util.EscapeHTML([]byte(n.Name()))
	_, _ = w.WriteString(`<span class="` + SpanClass + `"><img src="`)
	_, _ = w.Write(util.EscapeHTML(util.URLEscape([]byte(r.config.Source(n.Abbr)), true)))
	_, _ = w.WriteString(`" alt="`)
	_, _ = w.Write(name)
	if r.XHTML {
		_, _ = w.WriteString(`" /></span>`)
	} else {
		_, _ = w.WriteString(`"></span>`)
	}
	if n.WithName {
		_, _ = w.WriteString("&nbsp;")
		_, _ = w.Write(name)
	}
	return ast.WalkSkipChildren, nil
}

type extender struct {
	config Config
}

var Buttons goldmark.Extender = New()

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
		parser.WithInlineParsers(
			util.Prioritized(&inlineParser{}, 500),
		),
	)
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(NewHTMLRenderer(e.config), 500),
	))
}
