// Package markdown builds goldmark converters from configuration.
package markdown

import (
	"bytes"
	"fmt"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/neuroplastio/mdplug/extensions"
)

// Converter converts Markdown documents with a fixed set of extensions.
// It is safe for concurrent use.
type Converter struct {
	md     goldmark.Markdown
	digest uint64
}

// New builds a converter. Front matter is always parsed.
func New(reg *extensions.Registry, cfg Config) (*Converter, error) {
	digest, err := cfg.Digest()
	if err != nil {
		return nil, err
	}
	exts := []goldmark.Extender{meta.Meta}
	seen := make(map[string]struct{}, len(cfg.Extensions))
	for _, ec := range cfg.Extensions {
		if _, ok := seen[ec.Type]; ok {
			return nil, fmt.Errorf("extension %s enabled twice", ec.Type)
		}
		seen[ec.Type] = struct{}{}
		ext, err := reg.New(ec.Type, ec.Config)
		if err != nil {
			return nil, err
		}
		exts = append(exts, ext)
	}
	if cfg.Highlight != nil {
		opts := []highlighting.Option{
			highlighting.WithFormatOptions(chromahtml.WithLineNumbers(cfg.Highlight.LineNumbers)),
		}
		if cfg.Highlight.Style != "" {
			opts = append(opts, highlighting.WithStyle(cfg.Highlight.Style))
		}
		exts = append(exts, highlighting.NewHighlighting(opts...))
	}

	var parserOpts []parser.Option
	if cfg.HeadingIDs {
		parserOpts = append(parserOpts, parser.WithAutoHeadingID())
	}
	var rendererOpts []renderer.Option
	if cfg.XHTML {
		rendererOpts = append(rendererOpts, html.WithXHTML())
	}
	if cfg.Unsafe {
		rendererOpts = append(rendererOpts, html.WithUnsafe())
	}

	md := goldmark.New(
		goldmark.WithExtensions(exts...),
		goldmark.WithParserOptions(parserOpts...),
		goldmark.WithRendererOptions(rendererOpts...),
	)
	return &Converter{md: md, digest: digest}, nil
}

// Digest returns the digest of the configuration the converter was built
// from.
func (c *Converter) Digest() uint64 {
	return c.digest
}

// Document is a converted document.
type Document struct {
	HTML []byte
	// Meta holds the YAML front matter, or nil when there is none.
	Meta map[string]any
}

func (c *Converter) Convert(source []byte) (Document, error) {
	ctx := parser.NewContext()
	var buf bytes.Buffer
	if err := c.md.Convert(source, &buf, parser.WithContext(ctx)); err != nil {
		return Document{}, fmt.Errorf("failed to convert markdown: %w", err)
	}
	metadata, err := meta.TryGet(ctx)
	if err != nil {
		return Document{}, fmt.Errorf("failed to parse front matter: %w", err)
	}
	return Document{
		HTML: buf.Bytes(),
		Meta: normalizeMeta(metadata),
	}, nil
}

// normalizeMeta turns the map[interface{}]interface{} values produced by the
// YAML decoder into map[string]any so that metadata can be encoded as JSON.
func normalizeMeta(m map[string]interface{}) map[string]any {
	if m == nil {
		return nil
	}
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = normalizeValue(v)
	}
	return result
}

func normalizeValue(v any) any {
	switch v := v.(type) {
	case map[interface{}]interface{}:
		result := make(map[string]any, len(v))
		for k, val := range v {
			result[fmt.Sprint(k)] = normalizeValue(val)
		}
		return result
	case map[string]interface{}:
		return normalizeMeta(v)
	case []interface{}:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = normalizeValue(val)
		}
		return result
	}
	return v
}
