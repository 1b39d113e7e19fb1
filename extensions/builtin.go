package extensions

import (
	"encoding/json"
	"fmt"

	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"github.com/neuroplastio/mdplug/extensions/blanklink"
	"github.com/neuroplastio/mdplug/extensions/buttons"
	"github.com/neuroplastio/mdplug/extensions/sections"
	"github.com/neuroplastio/mdplug/extensions/smallimage"
	"github.com/neuroplastio/mdplug/extensions/spans"
	"github.com/neuroplastio/mdplug/extensions/table"
)

// Builtin lists the ids of the bundled extensions in registration order.
var Builtin = []string{"table", "sections", "spans", "smallImage", "blankLink", "buttons"}

// RegisterBuiltin registers the bundled extensions.
func RegisterBuiltin(r *Registry) error {
	registrations := []struct {
		id         string
		descriptor Descriptor
		creator    Creator
	}{
		{
			id: "table",
			descriptor: Descriptor{
				DisplayName: "Extended tables",
				Description: "GFM tables with per-cell classes, highlights, colspan and rowspan",
				Syntax:      []string{"|!{+.row .cell +!1 !2 >2 ^3} text |"},
			},
			creator: newTable,
		},
		{
			id: "sections",
			descriptor: Descriptor{
				DisplayName: "Sections",
				Description: "Wraps every heading and its content in a <section> with an id",
				Syntax:      []string{"# Heading"},
			},
			creator: newSections,
		},
		{
			id: "spans",
			descriptor: Descriptor{
				DisplayName: "Highlight spans",
				Description: "Inline spans with a warning or unsure class",
				Syntax:      []string{"*!warning!*", "*?unsure?*"},
			},
			creator: newSpans,
		},
		{
			id: "smallImage",
			descriptor: Descriptor{
				DisplayName: "Small images",
				Description: "Thumbnail images linking to the full image in a new tab",
				Syntax:      []string{"!![alt](src \"title\")"},
			},
			creator: newSmallImage,
		},
		{
			id: "blankLink",
			descriptor: Descriptor{
				DisplayName: "Blank links",
				Description: "Links opened in a new tab",
				Syntax:      []string{"?[text](url)"},
			},
			creator: newBlankLink,
		},
		{
			id: "buttons",
			descriptor: Descriptor{
				DisplayName: "Buttons",
				Description: "Inline controller button icons",
				Syntax:      []string{"@!x", "@!!st"},
			},
			creator: newButtons,
		},
	}
	for _, reg := range registrations {
		if err := r.Register(reg.id, reg.descriptor, reg.creator); err != nil {
			return err
		}
	}
	return nil
}

func newTable(raw json.RawMessage, provider *Provider) (goldmark.Extender, error) {
	config, err := DecodeConfig[table.Config](raw)
	if err != nil {
		return nil, err
	}
	provider.Log.Debug("Configured table extension",
		zap.Bool("useAlignAttribute", config.UseAlignAttribute),
		zap.Bool("singleDigitSpans", config.SingleDigitSpans),
	)
	return table.NewWithConfig(config), nil
}

func newSections(raw json.RawMessage, provider *Provider) (goldmark.Extender, error) {
	config, err := DecodeConfig[sections.Config](raw)
	if err != nil {
		return nil, err
	}
	switch config.IDStyle {
	case "":
		config.IDStyle = sections.IDStylePlain
	case sections.IDStylePlain, sections.IDStyleKebab, sections.IDStyleSnake:
	default:
		return nil, fmt.Errorf("unknown id style %q", config.IDStyle)
	}
	provider.Log.Debug("Configured sections extension", zap.String("idStyle", string(config.IDStyle)))
	return sections.NewWithConfig(config), nil
}

func newSpans(raw json.RawMessage, provider *Provider) (goldmark.Extender, error) {
	config, err := DecodeConfig[spans.Config](raw)
	if err != nil {
		return nil, err
	}
	for i, s := range config.Spans {
		if s.Open == "" || s.Close == "" {
			return nil, fmt.Errorf("span %d: open and close delimiters are required", i)
		}
	}
	provider.Log.Debug("Configured spans extension", zap.Int("spans", len(config.Spans)))
	return spans.NewWithConfig(config), nil
}

func newSmallImage(raw json.RawMessage, provider *Provider) (goldmark.Extender, error) {
	config, err := DecodeConfig[smallimage.Config](raw)
	if err != nil {
		return nil, err
	}
	return smallimage.NewWithConfig(config), nil
}

func newBlankLink(raw json.RawMessage, provider *Provider) (goldmark.Extender, error) {
	config, err := DecodeConfig[blanklink.Config](raw)
	if err != nil {
		return nil, err
	}
	return blanklink.NewWithConfig(config), nil
}

func newButtons(raw json.RawMessage, provider *Provider) (goldmark.Extender, error) {
	config, err := DecodeConfig[buttons.Config](raw)
	if err != nil {
		return nil, err
	}
	provider.Log.Debug("Configured buttons extension",
		zap.String("imagesPath", config.ImagesPath),
		zap.String("imagesExtension", config.ImagesExtension),
	)
	return buttons.NewWithConfig(config), nil
}
