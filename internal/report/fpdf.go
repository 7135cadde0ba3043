package report

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// pageLayout is the printed page geometry in millimetres, shared by both
// renderers.
type pageLayout struct {
	width, height            float64
	left, top, right, bottom float64
}

var a4Layout = pageLayout{width: 210, height: 297, left: 10, top: 12, right: 10, bottom: 15}

func (l pageLayout) contentWidth() float64 { return l.width - l.left - l.right }

// widthPx and heightPx give the page size at the CSS 96 dpi.
func (l pageLayout) widthPx() int  { return int(inches(l.width) * 96) }
func (l pageLayout) heightPx() int { return int(inches(l.height) * 96) }

func inches(mm float64) float64 { return mm / 25.4 }

const (
	bodyFont   = "Helvetica"
	bodySize   = 10.0
	lineHeight = 5.0
)

// The core PDF fonts are cp1252; symbols outside it get ASCII stand-ins.
var symbolReplacer = strings.NewReplacer("✓", "Yes", "✗", "No", "≥", ">=", "≤", "<=")

// PDFRenderer lays markdown out directly with fpdf. It needs no browser.
type PDFRenderer struct {
	md goldmark.Markdown
}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{md: goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough))}
}

func (r *PDFRenderer) Render(ctx context.Context, markdown string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l := a4Layout
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: l.width, Ht: l.height},
	})
	pdf.SetMargins(l.left, l.top, l.right)
	pdf.SetAutoPageBreak(true, l.bottom)
	pdf.SetTitle("Investment Analysis Report", true)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont(bodyFont, "I", 8)
		pdf.SetTextColor(102, 102, 102)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()
	pdf.SetFont(bodyFont, "", bodySize)

	source := []byte(markdown)
	doc := r.md.Parser().Parse(text.NewReader(source))

	w := &pdfWriter{
		pdf:       pdf,
		source:    source,
		translate: pdf.UnicodeTranslatorFromDescriptor(""),
	}
	if err := ast.Walk(doc, w.walk); err != nil {
		return nil, fmt.Errorf("layout report: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

type pdfWriter struct {
	pdf       *fpdf.Fpdf
	source    []byte
	translate func(string) string
	bold      bool
	italic    bool
	headingSz float64
	lists     []listState
}

type listState struct {
	ordered bool
	next    int
}

func (w *pdfWriter) encode(s string) string {
	return w.translate(symbolReplacer.Replace(s))
}

func (w *pdfWriter) updateFont() {
	if w.headingSz > 0 {
		w.pdf.SetFont(bodyFont, "B", w.headingSz)
		return
	}
	style := ""
	if w.bold {
		style += "B"
	}
	if w.italic {
		style += "I"
	}
	w.pdf.SetFont(bodyFont, style, bodySize)
}

func (w *pdfWriter) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		w.heading(node, entering)
	case *ast.Paragraph:
		if !entering {
			w.pdf.Ln(lineHeight + 2)
		}
	case *ast.TextBlock:
		if !entering {
			w.pdf.Ln(lineHeight)
		}
	case *ast.Text:
		if entering {
			w.pdf.Write(lineHeight, w.encode(string(node.Segment.Value(w.source))))
			switch {
			case node.HardLineBreak():
				w.pdf.Ln(lineHeight)
			case node.SoftLineBreak():
				w.pdf.Write(lineHeight, " ")
			}
		}
	case *ast.String:
		if entering {
			w.pdf.Write(lineHeight, w.encode(string(node.Value)))
		}
	case *ast.Emphasis:
		if node.Level == 2 {
			w.bold = entering
		} else {
			w.italic = entering
		}
		w.updateFont()
	case *ast.CodeSpan:
		if entering {
			w.pdf.SetFont("Courier", "", bodySize)
			w.pdf.Write(lineHeight, w.encode(collectText(node, w.source)))
			w.updateFont()
		}
		return ast.WalkSkipChildren, nil
	case *ast.List:
		if entering {
			w.lists = append(w.lists, listState{ordered: node.IsOrdered(), next: node.Start})
		} else {
			w.lists = w.lists[:len(w.lists)-1]
			w.pdf.Ln(2)
		}
	case *ast.ListItem:
		if entering {
			w.listItem()
		}
	case *ast.ThematicBreak:
		if entering {
			y := w.pdf.GetY() + 2
			w.pdf.SetDrawColor(180, 180, 180)
			w.pdf.Line(a4Layout.left, y, a4Layout.left+a4Layout.contentWidth(), y)
			w.pdf.Ln(5)
		}
	case *extast.Table:
		if entering {
			w.table(node)
		}
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

func (w *pdfWriter) heading(n *ast.Heading, entering bool) {
	if !entering {
		w.pdf.Ln(lineHeight + 3)
		w.headingSz = 0
		w.pdf.SetTextColor(0, 0, 0)
		w.updateFont()
		return
	}
	switch n.Level {
	case 1:
		w.headingSz = 18
	case 2:
		w.headingSz = 14
		if w.pdf.GetY() > 60 {
			w.pdf.Ln(4)
		}
	case 3:
		w.headingSz = 12
	default:
		w.headingSz = 11
	}
	w.pdf.Ln(2)
	w.pdf.SetTextColor(31, 71, 136)
	w.updateFont()
}

func (w *pdfWriter) listItem() {
	depth := len(w.lists)
	if depth == 0 {
		return
	}
	state := &w.lists[depth-1]
	w.pdf.SetX(a4Layout.left + float64(depth)*5)
	if state.ordered {
		w.pdf.Write(lineHeight, fmt.Sprintf("%d. ", state.next))
		state.next++
		return
	}
	w.pdf.Write(lineHeight, w.encode("• "))
}

func (w *pdfWriter) table(n *extast.Table) {
	var rows [][]string
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch child.(type) {
		case *extast.TableHeader, *extast.TableRow:
			var cells []string
			for cell := child.FirstChild(); cell != nil; cell = cell.NextSibling() {
				cells = append(cells, w.encode(collectText(cell, w.source)))
			}
			rows = append(rows, cells)
		}
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	cols := len(rows[0])
	widths := w.columnWidths(rows, cols)
	const cellLine = 4.5

	w.pdf.Ln(1)
	for i, cells := range rows {
		if i == 0 {
			w.pdf.SetFont(bodyFont, "B", 9)
			w.pdf.SetFillColor(31, 71, 136)
			w.pdf.SetTextColor(255, 255, 255)
		} else {
			w.pdf.SetFont(bodyFont, "", 9)
			w.pdf.SetFillColor(255, 255, 255)
			w.pdf.SetTextColor(0, 0, 0)
		}

		lines := 1
		for j := 0; j < cols && j < len(cells); j++ {
			// Cells hold cp1252 bytes, so split on bytes rather than runes.
			if count := len(w.pdf.SplitLines([]byte(cells[j]), widths[j]-2)); count > lines {
				lines = count
			}
		}
		height := float64(lines)*cellLine + 2

		_, pageH := w.pdf.GetPageSize()
		_, _, _, bottom := w.pdf.GetMargins()
		if w.pdf.GetY()+height > pageH-bottom {
			w.pdf.AddPage()
		}

		x0, y0 := w.pdf.GetX(), w.pdf.GetY()
		x := x0
		for j := 0; j < cols; j++ {
			cell := ""
			if j < len(cells) {
				cell = cells[j]
			}
			w.pdf.SetDrawColor(160, 160, 160)
			w.pdf.Rect(x, y0, widths[j], height, "FD")
			w.pdf.SetXY(x+1, y0+1)
			w.pdf.MultiCell(widths[j]-2, cellLine, cell, "", "L", false)
			x += widths[j]
		}
		w.pdf.SetXY(x0, y0+height)
	}
	w.pdf.SetTextColor(0, 0, 0)
	w.pdf.Ln(4)
	w.updateFont()
}

// columnWidths sizes columns by their widest cell, then scales the set to
// fill the page.
func (w *pdfWriter) columnWidths(rows [][]string, cols int) []float64 {
	widths := make([]float64, cols)
	w.pdf.SetFont(bodyFont, "B", 9)
	for _, cells := range rows {
		for j := 0; j < cols && j < len(cells); j++ {
			if cw := w.pdf.GetStringWidth(cells[j]) + 4; cw > widths[j] {
				widths[j] = cw
			}
		}
	}
	total := 0.0
	for j := range widths {
		widths[j] = min(max(widths[j], 15), a4Layout.contentWidth()*0.6)
		total += widths[j]
	}
	scale := a4Layout.contentWidth() / total
	for j := range widths {
		widths[j] *= scale
	}
	return widths
}

func collectText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
