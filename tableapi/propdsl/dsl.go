// Package propdsl parses the "!{...}" property tag that may open a table cell.
//
//	|!{+.total .num +!1 >2} 42 |
//
// The tag carries row classes, cell classes, row and cell highlights, a
// colspan and a rowspan, in that order.
package propdsl

import (
	"regexp"
	"strconv"
	"strings"
)

// HighlightClassPrefix is prepended to highlight numbers to form a CSS class.
const HighlightClassPrefix = "table-highlight-"

var tagPattern = regexp.MustCompile(`^!\{([^}]*)\}`)

// Parse parses the body of a tag, without the surrounding "!{" and "}".
func Parse(body string) (Properties, error) {
	if strings.TrimSpace(body) == "" {
		return Properties{}, nil
	}
	result, err := propertiesParser.ParseString("", body)
	if err != nil {
		return Properties{}, err
	}
	return *result, nil
}

// Match looks for a tag at the very beginning of a raw cell. It returns the
// parsed properties and the byte length of the tag. ok is false when the cell
// does not open with a tag or when the tag does not follow the grammar; the
// caller then keeps the cell text as written.
func Match(cell string) (props Properties, length int, ok bool) {
	loc := tagPattern.FindStringSubmatchIndex(cell)
	if loc == nil {
		return Properties{}, 0, false
	}
	props, err := Parse(cell[loc[2]:loc[3]])
	if err != nil {
		return Properties{}, 0, false
	}
	return props, loc[1], true
}

// Value returns the span count. With singleDigit only the first digit is
// honored, which is how tags were historically read ("^12" spans one row).
// Counts too large for an int never parse, so Value only sees valid digits.
func (s SpanCount) Value(singleDigit bool) int {
	if len(s) == 0 {
		return 0
	}
	if singleDigit {
		return int(s[0] - '0')
	}
	n, err := strconv.Atoi(string(s))
	if err != nil {
		return 0
	}
	return n
}
