package table

import (
	"fmt"

	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// HTMLRenderer renders tables built by the paragraph transformer. Output
// matches goldmark's table renderer, except that classes set on the header row
// go to its <tr>.
type HTMLRenderer struct {
	config Config
}

func NewHTMLRenderer(config Config) renderer.NodeRenderer {
	return &HTMLRenderer{config: config}
}

func (r *HTMLRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(east.KindTable, r.renderTable)
	reg.Register(east.KindTableHeader, r.renderTableHeader)
	reg.Register(east.KindTableRow, r.renderTableRow)
	reg.Register(east.KindTableCell, r.renderTableCell)
}

func (r *HTMLRenderer) renderTable(w util.BufWriter, source []byte, n gast.Node, entering bool) (gast.WalkStatus, error) {
	if !entering {
		_, _ = w.WriteString("</table>\n")
		return gast.WalkContinue, nil
	}
	_, _ = w.WriteString("<table")
	if n.Attributes() != nil {
		html.RenderAttributes(w, n, extension.TableAttributeFilter)
	}
	_, _ = w.WriteString(">\n")
	return gast.WalkContinue, nil
}

func (r *HTMLRenderer) renderTableHeader(w util.BufWriter, source []byte, n gast.Node, entering bool) (gast.WalkStatus, error) {
	if !entering {
		_, _ = w.WriteString("</tr>\n</thead>\n")
		if n.NextSibling() != nil {
			_, _ = w.WriteString("<tbody>\n")
		}
		return gast.WalkContinue, nil
	}
	_, _ = w.WriteString("<thead>\n<tr")
	if n.Attributes() != nil {
		html.RenderAttributes(w, n, extension.TableRowAttributeFilter)
	}
	_, _ = w.WriteString(">\n")
	return gast.WalkContinue, nil
}

func (r *HTMLRenderer) renderTableRow(w util.BufWriter, source []byte, n gast.Node, entering bool) (gast.WalkStatus, error) {
	if !entering {
		_, _ = w.WriteString("</tr>\n")
		if n.Parent().LastChild() == n {
			_, _ = w.WriteString("</tbody>\n")
		}
		return gast.WalkContinue, nil
	}
	_, _ = w.WriteString("<tr")
	if n.Attributes() != nil {
		html.RenderAttributes(w, n, extension.TableRowAttributeFilter)
	}
	_, _ = w.WriteString(">\n")
	return gast.WalkContinue, nil
}

func (r *HTMLRenderer) renderTableCell(w util.BufWriter, source []byte, node gast.Node, entering bool) (gast.WalkStatus, error) {
	n := node.(*east.TableCell)
	tag := "td"
	filter := extension.TableTdCellAttributeFilter
	if n.Parent().Kind() == east.KindTableHeader {
		tag = "th"
		filter = extension.TableThCellAttributeFilter
	}
	if !entering {
		_, _ = fmt.Fprintf(w, "</%s>\n", tag)
		return gast.WalkContinue, nil
	}

	_, _ = fmt.Fprintf(w, "<%s", tag)
	if n.Alignment != east.AlignNone {
		if r.config.UseAlignAttribute {
			if _, ok := n.AttributeString("align"); !ok {
				_, _ = fmt.Fprintf(w, ` align="%s"`, n.Alignment.String())
			}
		} else {
			r.appendAlignStyle(n)
		}
	}
	if n.Attributes() != nil {
		html.RenderAttributes(w, n, filter)
	}
	_ = w.WriteByte('>')
	return gast.WalkContinue, nil
}

func (r *HTMLRenderer) appendAlignStyle(n *east.TableCell) {
	var cob util.CopyOnWriteBuffer
	if v, ok := n.AttributeString("style"); ok {
		if b, ok := v.([]byte); ok {
			cob = util.NewCopyOnWriteBuffer(b)
			cob.AppendByte(';')
		}
	}
	cob.AppendString("text-align:" + n.Alignment.String())
	n.SetAttributeString("style", cob.Bytes())
}
