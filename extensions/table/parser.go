package table

import (
	"bytes"
	"regexp"
	"strconv"

	gast "github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/neuroplastio/mdplug/tableapi"
)

var escapedPipeCellsKey = parser.NewContextKey()

// escapedPipeCell is a cell holding "\|" inside a code span. Inline parsing
// keeps the backslash there, so it is cut out after the document is parsed.
type escapedPipeCell struct {
	cell *east.TableCell
	pos  []int
}

// rawCell locates one pipe-separated cell of a row in the source.
type rawCell struct {
	start   int
	stop    int
	escapes []int
}

type paragraphTransformer struct {
	options []tableapi.Option
}

// NewParagraphTransformer returns a parser.ParagraphTransformer that turns
// paragraphs holding a header row and a delimiter row into tables.
func NewParagraphTransformer(opts ...tableapi.Option) parser.ParagraphTransformer {
	return &paragraphTransformer{options: opts}
}

func isDelimiterRow(line []byte) bool {
	if w, _ := util.IndentWidth(line, 0); w > 3 {
		return false
	}
	hasDash := false
	for _, b := range line {
		switch {
		case b == '-':
			hasDash = true
		case util.IsSpace(b) || b == '|' || b == ':':
		default:
			return false
		}
	}
	return hasDash
}

var delimiterCell = regexp.MustCompile(`^\s*:?-+:?\s*$`)

func parseDelimiter(line []byte) []tableapi.Alignment {
	if !isDelimiterRow(line) {
		return nil
	}
	cols := bytes.Split(line, []byte{'|'})
	if util.IsBlank(cols[0]) {
		cols = cols[1:]
	}
	if len(cols) > 0 && util.IsBlank(cols[len(cols)-1]) {
		cols = cols[:len(cols)-1]
	}
	cells := make([]string, 0, len(cols))
	for _, col := range cols {
		if !delimiterCell.Match(col) {
			return nil
		}
		cells = append(cells, string(col))
	}
	alignments, err := tableapi.ParseAlignments(cells)
	if err != nil {
		return nil
	}
	return alignments
}

// splitRow splits a row on unescaped pipes. A leading and a trailing pipe are
// optional.
func splitRow(segment text.Segment, source []byte) []rawCell {
	segment = segment.TrimLeftSpace(source)
	segment = segment.TrimRightSpace(source)
	line := segment.Value(source)
	pos, limit := 0, len(line)
	if limit > 0 && line[0] == '|' {
		pos++
	}
	if limit > 0 && line[limit-1] == '|' {
		limit--
	}
	var cells []rawCell
	for pos < limit {
		cell := rawCell{start: segment.Start + pos}
		hasBacktick := false
		closure := pos
		for ; closure < limit; closure++ {
			if line[closure] == '`' {
				hasBacktick = true
			}
			if line[closure] != '|' {
				continue
			}
			if closure == 0 || line[closure-1] != '\\' {
				break
			}
			if hasBacktick {
				cell.escapes = append(cell.escapes, segment.Start+closure-1)
			}
		}
		cell.stop = segment.Start + closure
		cells = append(cells, cell)
		pos = closure + 1
	}
	return cells
}

func cellTexts(cells []rawCell, source []byte) []string {
	texts := make([]string, 0, len(cells))
	for _, c := range cells {
		texts = append(texts, string(source[c.start:c.stop]))
	}
	return texts
}

func (t *paragraphTransformer) Transform(node *gast.Paragraph, reader text.Reader, pc parser.Context) {
	lines := node.Lines()
	if lines.Len() < 2 {
		return
	}
	source := reader.Source()
	for i := 1; i < lines.Len(); i++ {
		line := lines.At(i)
		alignments := parseDelimiter(line.Value(source))
		if alignments == nil {
			continue
		}
		header := splitRow(lines.At(i-1), source)
		if len(header) > len(alignments) {
			return
		}

		b := tableapi.NewBuilder(alignments, t.options...)
		table := east.NewTable()
		table.Alignments = astAlignments(alignments)
		headerRow := b.Row(cellTexts(header, source), true)
		th := east.NewTableHeader(t.newRow(headerRow, header, table.Alignments, pc))
		setClass(th, headerRow.Class())
		table.AppendChild(table, th)
		for j := i + 1; j < lines.Len(); j++ {
			raw := splitRow(lines.At(j), source)
			table.AppendChild(table, t.newRow(b.Row(cellTexts(raw, source), false), raw, table.Alignments, pc))
		}
		if table.ChildCount() == 1 {
			table.AppendChild(table, t.newRow(b.EmptyRow(), nil, table.Alignments, pc))
		}

		node.Lines().SetSliced(0, i-1)
		node.Parent().InsertAfter(node.Parent(), node, table)
		if node.Lines().Len() == 0 {
			node.Parent().RemoveChild(node.Parent(), node)
		} else {
			last := node.Lines().At(i - 2)
			last.Stop = last.Stop - 1
			node.Lines().Set(i-2, last)
		}
		return
	}
}

func (t *paragraphTransformer) newRow(row tableapi.Row, raw []rawCell, alignments []east.Alignment, pc parser.Context) *east.TableRow {
	node := east.NewTableRow(alignments)
	if !row.Header {
		setClass(node, row.Class())
	}
	for _, c := range row.Cells {
		cell := east.NewTableCell()
		cell.Alignment = astAlignment(c.Alignment)
		setClass(cell, c.Class())
		if c.Colspan > 0 {
			cell.SetAttributeString("colspan", []byte(strconv.Itoa(c.Colspan)))
		}
		if c.Rowspan > 0 {
			cell.SetAttributeString("rowspan", []byte(strconv.Itoa(c.Rowspan)))
		}
		if c.Source >= 0 {
			src := raw[c.Source]
			cell.Lines().Append(text.NewSegment(src.start+c.TextStart, src.start+c.TextStop))
			if len(src.escapes) > 0 {
				addEscapedPipeCell(pc, &escapedPipeCell{cell: cell, pos: src.escapes})
			}
		}
		node.AppendChild(node, cell)
	}
	return node
}

func setClass(n gast.Node, class string) {
	if class != "" {
		n.SetAttributeString("class", []byte(class))
	}
}

func addEscapedPipeCell(pc parser.Context, cell *escapedPipeCell) {
	list := pc.ComputeIfAbsent(escapedPipeCellsKey, func() interface{} {
		return []*escapedPipeCell{}
	}).([]*escapedPipeCell)
	pc.Set(escapedPipeCellsKey, append(list, cell))
}

func astAlignment(a tableapi.Alignment) east.Alignment {
	switch a {
	case tableapi.AlignLeft:
		return east.AlignLeft
	case tableapi.AlignRight:
		return east.AlignRight
	case tableapi.AlignCenter:
		return east.AlignCenter
	}
	return east.AlignNone
}

func astAlignments(alignments []tableapi.Alignment) []east.Alignment {
	result := make([]east.Alignment, 0, len(alignments))
	for _, a := range alignments {
		result = append(result, astAlignment(a))
	}
	return result
}

type escapedPipeTransformer struct{}

var defaultEscapedPipeTransformer = &escapedPipeTransformer{}

// Transform drops the backslash of "\|" inside code spans of table cells.
func (a *escapedPipeTransformer) Transform(doc *gast.Document, reader text.Reader, pc parser.Context) {
	v := pc.Get(escapedPipeCellsKey)
	if v == nil {
		return
	}
	pc.Set(escapedPipeCellsKey, nil)
	for _, ec := range v.([]*escapedPipeCell) {
		_ = gast.Walk(ec.cell, func(n gast.Node, entering bool) (gast.WalkStatus, error) {
			if !entering || n.Kind() != gast.KindCodeSpan {
				return gast.WalkContinue, nil
			}
			for c := n.FirstChild(); c != nil; {
				next := c.NextSibling()
				if txt, ok := c.(*gast.Text); ok {
					splitEscapes(n, txt, ec.pos)
				}
				c = next
			}
			return gast.WalkContinue, nil
		})
	}
}

func splitEscapes(parent gast.Node, txt *gast.Text, positions []int) {
	current := txt
	for _, pos := range positions {
		seg := current.Segment
		if pos < seg.Start || pos >= seg.Stop {
			continue
		}
		left := gast.NewRawTextSegment(seg.WithStop(pos))
		right := gast.NewRawTextSegment(seg.WithStart(pos + 1))
		parent.InsertAfter(parent, current, left)
		parent.InsertAfter(parent, left, right)
		parent.RemoveChild(parent, current)
		current = right
	}
}
