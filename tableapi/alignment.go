package tableapi

import (
	"fmt"
	"regexp"
	"strings"
)

// Alignment is the alignment of a table column.
type Alignment uint8

const (
	AlignNone Alignment = iota
	AlignLeft
	AlignRight
	AlignCenter
)

func (a Alignment) String() string {
	switch a {
	case AlignLeft:
		return "left"
	case AlignRight:
		return "right"
	case AlignCenter:
		return "center"
	default:
		return "none"
	}
}

var delimiterCell = regexp.MustCompile(`^:?-+:?$`)

// ParseAlignment classifies one cell of the separator row.
func ParseAlignment(cell string) (Alignment, error) {
	cell = strings.TrimSpace(cell)
	if !delimiterCell.MatchString(cell) {
		return AlignNone, fmt.Errorf("invalid delimiter cell %q", cell)
	}
	left := strings.HasPrefix(cell, ":")
	right := strings.HasSuffix(cell, ":")
	switch {
	case left && right:
		return AlignCenter, nil
	case left:
		return AlignLeft, nil
	case right:
		return AlignRight, nil
	}
	return AlignNone, nil
}

// ParseAlignments classifies every cell of the separator row. The length of
// the result is the column count of the table.
func ParseAlignments(cells []string) ([]Alignment, error) {
	if len(cells) == 0 {
		return nil, fmt.Errorf("separator row has no cells")
	}
	alignments := make([]Alignment, 0, len(cells))
	for i, cell := range cells {
		a, err := ParseAlignment(cell)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		alignments = append(alignments, a)
	}
	return alignments, nil
}
