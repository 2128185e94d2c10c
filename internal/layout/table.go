// Package layout draws ruled tables onto gofpdf documents. Cells wrap their
// text, rows alternate background colors and header rows repeat after a
// page break.
package layout

import (
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// RGB is a color with 0-255 components.
type RGB struct {
	R, G, B int
}

// Column describes one table column.
type Column struct {
	Header string
	Width  float64 // 0 shares the width left over by fixed columns
	Align  string  // "L", "C" or "R"
}

// Style controls the look of a table. Sizes are in the document's unit.
type Style struct {
	FontFamily   string
	FontSize     float64 // points
	LineHeight   float64
	Padding      float64
	BottomMargin float64
	Header       RGB // header background, text is white
	Stripe       RGB // background of every other body row
	Border       RGB
}

// DefaultStyle suits documents measured in points.
var DefaultStyle = Style{
	FontFamily:   "Helvetica",
	FontSize:     9,
	LineHeight:   11,
	Padding:      3,
	BottomMargin: 36,
	Header:       RGB{41, 128, 185},
	Stripe:       RGB{245, 245, 245},
	Border:       RGB{180, 180, 180},
}

// Table renders rows under a header line.
type Table struct {
	Columns []Column
	Style   Style
	Width   float64 // total width; 0 spans the page between the margins

	tr func(string) string
}

// Latin1 replaces runes the core fonts cannot show with '?'.
func Latin1(s string) string {
	return strings.Map(func(r rune) rune {
		if r > 0xff || (r < 0x20 && r != '\n') {
			return '?'
		}
		return r
	}, s)
}

// Render draws rows starting at the current position. Each row must have
// one cell per column.
func (t *Table) Render(pdf *gofpdf.Fpdf, rows [][]string) error {
	if pdf.Err() {
		return pdf.Error()
	}
	for i, row := range rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("layout: row %d has %d cells, want %d", i, len(row), len(t.Columns))
		}
	}

	t.tr = pdf.UnicodeTranslatorFromDescriptor("")
	widths := t.widths(pdf)
	header := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c.Header
	}

	x := pdf.GetX()
	t.row(pdf, x, widths, header, -1)
	_, pageH := pdf.GetPageSize()
	for i, row := range rows {
		if pdf.GetY()+t.height(pdf, widths, row) > pageH-t.Style.BottomMargin {
			pdf.AddPage()
			pdf.SetX(x)
			t.row(pdf, x, widths, header, -1)
		}
		t.row(pdf, x, widths, row, i)
	}
	return pdf.Error()
}

func (t *Table) widths(pdf *gofpdf.Fpdf) []float64 {
	total := t.Width
	if total == 0 {
		pageW, _ := pdf.GetPageSize()
		left, _, right, _ := pdf.GetMargins()
		total = pageW - left - right
	}
	widths := make([]float64, len(t.Columns))
	fixed, auto := 0.0, 0
	for i, c := range t.Columns {
		widths[i] = c.Width
		if c.Width > 0 {
			fixed += c.Width
		} else {
			auto++
		}
	}
	if auto > 0 {
		share := max(0, total-fixed) / float64(auto)
		for i := range widths {
			if widths[i] == 0 {
				widths[i] = share
			}
		}
	}
	return widths
}

func (t *Table) lines(pdf *gofpdf.Fpdf, text string, w float64) []string {
	var out []string
	for _, para := range strings.Split(Latin1(text), "\n") {
		out = append(out, pdf.SplitText(para, max(1, w-2*t.Style.Padding))...)
	}
	if len(out) == 0 {
		out = []string{""}
	}
	return out
}

func (t *Table) height(pdf *gofpdf.Fpdf, widths []float64, cells []string) float64 {
	n := 1
	for i, c := range cells {
		n = max(n, len(t.lines(pdf, c, widths[i])))
	}
	return float64(n)*t.Style.LineHeight + 2*t.Style.Padding
}

// row draws one row; stripe is the body row index, or -1 for the header.
func (t *Table) row(pdf *gofpdf.Fpdf, x float64, widths []float64, cells []string, stripe int) {
	s := t.Style
	if stripe < 0 {
		pdf.SetFont(s.FontFamily, "B", s.FontSize)
	} else {
		pdf.SetFont(s.FontFamily, "", s.FontSize)
	}
	y := pdf.GetY()
	h := t.height(pdf, widths, cells)

	pdf.SetDrawColor(s.Border.R, s.Border.G, s.Border.B)
	for i, text := range cells {
		style := "D"
		switch {
		case stripe < 0:
			pdf.SetFillColor(s.Header.R, s.Header.G, s.Header.B)
			pdf.SetTextColor(255, 255, 255)
			style = "FD"
		case stripe%2 == 1:
			pdf.SetFillColor(s.Stripe.R, s.Stripe.G, s.Stripe.B)
			pdf.SetTextColor(0, 0, 0)
			style = "FD"
		default:
			pdf.SetTextColor(0, 0, 0)
		}
		pdf.Rect(x, y, widths[i], h, style)

		align := t.Columns[i].Align
		if align == "" || stripe < 0 {
			align = "L"
		}
		for j, line := range t.lines(pdf, text, widths[i]) {
			pdf.SetXY(x+s.Padding, y+s.Padding+float64(j)*s.LineHeight)
			pdf.CellFormat(widths[i]-2*s.Padding, s.LineHeight, t.tr(line), "", 0, align, false, 0, "")
		}
		x += widths[i]
	}

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetFillColor(0, 0, 0)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(x-sum(widths), y+h)
}

func sum(v []float64) float64 {
	var s float64
	for _, f := range v {
		s += f
	}
	return s
}
