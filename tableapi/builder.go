package tableapi

import (
	"strings"
	"unicode"

	"github.com/neuroplastio/mdplug/tableapi/propdsl"
)

type options struct {
	singleDigitSpans bool
}

type Option func(*options)

// WithSingleDigitSpans honors only the first digit of ">N" and "^N" tokens,
// for both the emitted attribute and the columns/rows skipped.
func WithSingleDigitSpans(v bool) Option {
	return func(o *options) {
		o.singleDigitSpans = v
	}
}

// spanState tracks a span that started in an earlier row of a column.
// rowsRemaining counts the rows still covered including the one that declared
// the span; a column is covered while it is at least 2.
type spanState struct {
	rowsRemaining int
	colsCovered   int
}

var noSpan = spanState{rowsRemaining: 1, colsCovered: 1}

// Builder builds the rows of one table. Its span state must not be shared
// between tables.
type Builder struct {
	alignments []Alignment
	state      []spanState
	options    options
}

func NewBuilder(alignments []Alignment, opts ...Option) *Builder {
	b := &Builder{
		alignments: alignments,
		state:      make([]spanState, len(alignments)),
	}
	for _, opt := range opts {
		opt(&b.options)
	}
	for i := range b.state {
		b.state[i] = noSpan
	}
	return b
}

// Row builds the next row from its raw cells. Rows must be passed in table
// order, header first.
func (b *Builder) Row(cells []string, header bool) Row {
	row := Row{Header: header}
	i, j := 0, 0
	for i < len(b.alignments) {
		st := &b.state[i]
		if st.rowsRemaining >= 2 {
			// The author leaves one placeholder cell per covered column.
			st.rowsRemaining--
			width := max(st.colsCovered, 1)
			row.Covered += width
			i += width
			j += width
			continue
		}

		cell := Cell{
			Column:    i,
			Source:    -1,
			Alignment: b.alignments[i],
		}
		var props *propdsl.Properties
		if j < len(cells) {
			cell.Source = j
			props = b.readCell(&cell, cells[j])
		}

		colspan, rowspan := 0, 0
		if props != nil {
			for _, c := range props.RowClasses {
				row.Classes = append(row.Classes, string(c))
			}
			for _, c := range props.CellClasses {
				cell.Classes = append(cell.Classes, string(c))
			}
			for _, h := range props.RowHighlights {
				row.Classes = append(row.Classes, h.Class())
			}
			for _, h := range props.CellHighlights {
				cell.Classes = append(cell.Classes, h.Class())
			}
			if props.Colspan != nil {
				colspan = props.Colspan.Value(b.options.singleDigitSpans)
			}
			if props.Rowspan != nil {
				rowspan = props.Rowspan.Value(b.options.singleDigitSpans)
			}
		}

		width := 1
		if colspan > 0 {
			colspan = min(colspan, len(b.alignments)-i)
			cell.Colspan = colspan
			width = colspan
		}
		if rowspan > 0 {
			cell.Rowspan = rowspan
		}
		if colspan == 0 && rowspan == 0 {
			*st = noSpan
		} else {
			*st = spanState{
				rowsRemaining: max(rowspan, 1),
				colsCovered:   width,
			}
		}

		row.Cells = append(row.Cells, cell)
		i += width
		j += width
	}
	return row
}

// EmptyRow returns a body row with one empty cell per column. Span state is
// neither read nor changed.
func (b *Builder) EmptyRow() Row {
	row := Row{Cells: make([]Cell, 0, len(b.alignments))}
	for i, a := range b.alignments {
		row.Cells = append(row.Cells, Cell{
			Column:    i,
			Source:    -1,
			Alignment: a,
		})
	}
	return row
}

func (b *Builder) readCell(cell *Cell, raw string) *propdsl.Properties {
	var props *propdsl.Properties
	start := 0
	if p, length, ok := propdsl.Match(raw); ok {
		props = &p
		start = length
	}
	cell.TextStart, cell.TextStop = trimSpace(raw, start)
	cell.Text = raw[cell.TextStart:cell.TextStop]
	return props
}

func trimSpace(s string, start int) (int, int) {
	rest := s[start:]
	left := len(rest) - len(strings.TrimLeftFunc(rest, unicode.IsSpace))
	right := len(strings.TrimRightFunc(rest, unicode.IsSpace))
	if right < left {
		return start + left, start + left
	}
	return start + left, start + right
}

// Build builds a whole table. When body is empty a single empty body row is
// emitted so that the table is never rowless.
func Build(header []string, alignments []Alignment, body [][]string, opts ...Option) Table {
	b := NewBuilder(alignments, opts...)
	table := Table{
		Alignments: alignments,
		Header:     b.Row(header, true),
	}
	for _, cells := range body {
		table.Body = append(table.Body, b.Row(cells, false))
	}
	if len(table.Body) == 0 {
		table.Body = append(table.Body, b.EmptyRow())
	}
	return table
}
