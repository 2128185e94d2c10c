package layout_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"

	"github.com/lvillar/pdfmerge/internal/layout"
	"github.com/lvillar/pdfmerge/reader"
)

func newPDF() *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "pt", "A5", "")
	pdf.SetMargins(36, 36, 36)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	return pdf
}

func TestRenderBreaksPages(t *testing.T) {
	pdf := newPDF()
	tbl := layout.Table{
		Columns: []layout.Column{
			{Header: "#", Width: 30, Align: "R"},
			{Header: "Name"},
			{Header: "Pages", Width: 50, Align: "R"},
		},
		Style: layout.DefaultStyle,
	}
	rows := make([][]string, 60)
	for i := range rows {
		rows[i] = []string{fmt.Sprint(i + 1), fmt.Sprintf("document-%02d.pdf", i), "3"}
	}
	if err := tbl.Render(pdf, rows); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if pdf.PageNo() < 2 {
		t.Errorf("60 rows fit on %d page(s) of A5", pdf.PageNo())
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatal(err)
	}
	doc, err := reader.Parse(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if doc.NumPages() != pdf.PageNo() {
		t.Errorf("parsed %d pages, rendered %d", doc.NumPages(), pdf.PageNo())
	}
}

func TestRenderWrapsAndSanitizes(t *testing.T) {
	pdf := newPDF()
	tbl := layout.Table{
		Columns: []layout.Column{{Header: "Name", Width: 80}},
		Style:   layout.DefaultStyle,
	}
	rows := [][]string{{strings.Repeat("long name ", 10)}, {"Łódź 東京 café"}}
	if err := tbl.Render(pdf, rows); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if pdf.PageNo() != 1 {
		t.Errorf("pages = %d", pdf.PageNo())
	}
}

func TestRenderRowShape(t *testing.T) {
	tbl := layout.Table{Columns: []layout.Column{{Header: "A"}, {Header: "B"}}, Style: layout.DefaultStyle}
	err := tbl.Render(newPDF(), [][]string{{"1", "2"}, {"only one"}})
	if err == nil || !strings.Contains(err.Error(), "row 1") {
		t.Errorf("err = %v", err)
	}
}

func TestLatin1(t *testing.T) {
	tests := map[string]string{
		"plain":     "plain",
		"café":      "café",
		"東京":        "??",
		"tab\there": "tab?here",
		"two\nline": "two\nline",
	}
	for in, want := range tests {
		if got := layout.Latin1(in); got != want {
			t.Errorf("Latin1(%q) = %q, want %q", in, got, want)
		}
	}
}
