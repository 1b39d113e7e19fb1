package propdsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	ruleWhitespace    = lexer.SimpleRule{Name: "Whitespace", Pattern: `[ \t]+`}
	ruleRowClass      = lexer.SimpleRule{Name: "RowClass", Pattern: `\+\.[A-Za-z_][A-Za-z0-9_-]*`}
	ruleRowHighlight  = lexer.SimpleRule{Name: "RowHighlight", Pattern: `\+!\d+`}
	ruleCellClass     = lexer.SimpleRule{Name: "CellClass", Pattern: `\.[A-Za-z_][A-Za-z0-9_-]*`}
	ruleCellHighlight = lexer.SimpleRule{Name: "CellHighlight", Pattern: `!\d+`}
	ruleColspan       = lexer.SimpleRule{Name: "Colspan", Pattern: `>\d+`}
	ruleRowspan       = lexer.SimpleRule{Name: "Rowspan", Pattern: `\^\d+`}
)

// Row tokens come first so that "+." and "+!" never lex as a stray '+'.
var propertiesLexer = lexer.MustSimple([]lexer.SimpleRule{
	ruleWhitespace,
	ruleRowClass,
	ruleRowHighlight,
	ruleCellClass,
	ruleCellHighlight,
	ruleColspan,
	ruleRowspan,
})

var propertiesParser = participle.MustBuild[Properties](
	participle.Lexer(propertiesLexer),
	participle.Elide(ruleWhitespace.Name),
)

// Properties is the content of a "!{...}" tag. The grammar fixes the order of
// the groups: row classes, cell classes, row highlights, cell highlights,
// colspan, rowspan.
type Properties struct {
	RowClasses     []ClassName `parser:"@RowClass*" json:"rowClasses,omitempty"`
	CellClasses    []ClassName `parser:"@CellClass*" json:"cellClasses,omitempty"`
	RowHighlights  []Highlight `parser:"@RowHighlight*" json:"rowHighlights,omitempty"`
	CellHighlights []Highlight `parser:"@CellHighlight*" json:"cellHighlights,omitempty"`
	Colspan        *SpanCount  `parser:"@Colspan?" json:"colspan,omitempty"`
	Rowspan        *SpanCount  `parser:"@Rowspan?" json:"rowspan,omitempty"`
}

// ClassName is a CSS class captured from a "+.name" or ".name" token.
type ClassName string

func (c *ClassName) Capture(values []string) error {
	*c = ClassName(strings.TrimLeft(values[0], "+."))
	return nil
}

// Highlight is the number of a "+!N" or "!N" token.
type Highlight string

func (h *Highlight) Capture(values []string) error {
	*h = Highlight(strings.TrimLeft(values[0], "+!"))
	return nil
}

// Class returns the CSS class applied for the highlight.
func (h Highlight) Class() string {
	return HighlightClassPrefix + string(h)
}

// SpanCount keeps the digits of a ">N" or "^N" token as written.
type SpanCount string

func (s *SpanCount) Capture(values []string) error {
	if len(values[0]) < 2 {
		return fmt.Errorf("span token %q has no count", values[0])
	}
	if _, err := strconv.Atoi(values[0][1:]); err != nil {
		return fmt.Errorf("span token %q: %w", values[0], err)
	}
	*s = SpanCount(values[0][1:])
	return nil
}
