// Package tableapi builds extended tables from pre-split rows.
//
// A table is described by a header row, the alignment vector read from the
// separator row and any number of body rows, each given as raw cell strings.
// Cells may open with a "!{...}" property tag (see package propdsl) that adds
// row and cell classes, highlight classes, a colspan and a rowspan.
//
// Spans are tracked per logical column for the lifetime of one Builder, so
// every emitted row covers exactly len(alignments) logical columns. Overlapping
// spans declared by different cells are not validated; the result is best
// effort.
package tableapi

import "strings"

// Table is the result of building one table.
type Table struct {
	Alignments []Alignment
	Header     Row
	Body       []Row
}

// Row is a table row. Classes holds row classes followed by row highlight
// classes, in the order they were declared across the row's cells.
type Row struct {
	Header  bool
	Classes []string
	Cells   []Cell
	// Covered is the number of logical columns left without a cell because a
	// rowspan from an earlier row still covers them.
	Covered int
}

// Class returns the value of the class attribute, or "" when there is none.
func (r Row) Class() string {
	return strings.Join(r.Classes, " ")
}

// Width returns the number of logical columns the row accounts for, counting
// each cell's colspan and each covered column.
func (r Row) Width() int {
	width := r.Covered
	for _, c := range r.Cells {
		width += c.Width()
	}
	return width
}

// Cell is one emitted table cell.
type Cell struct {
	// Column is the logical column the cell starts at.
	Column int
	// Source is the index of the raw cell the text was read from, or -1 when
	// the row was too short.
	Source int
	// Text is the display text: property tag removed, surrounding space trimmed.
	Text string
	// TextStart and TextStop locate Text inside the raw cell.
	TextStart int
	TextStop  int

	Classes   []string
	Colspan   int
	Rowspan   int
	Alignment Alignment
}

// Class returns the value of the class attribute, or "" when there is none.
func (c Cell) Class() string {
	return strings.Join(c.Classes, " ")
}

// Width returns the number of logical columns the cell occupies.
func (c Cell) Width() int {
	if c.Colspan > 1 {
		return c.Colspan
	}
	return 1
}
