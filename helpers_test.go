package pdfmerge_test

import (
	"bytes"
	"fmt"
	"math"
	"testing"

	"github.com/jung-kurt/gofpdf"

	"github.com/lvillar/pdfmerge"
	"github.com/lvillar/pdfmerge/reader"
)

var (
	a4     = gofpdf.SizeType{Wd: 595, Ht: 842}
	letter = gofpdf.SizeType{Wd: 612, Ht: 792}
	a5     = gofpdf.SizeType{Wd: 420, Ht: 595}
)

// generatePDF creates a PDF with one labelled page per size, in points.
func generatePDF(t testing.TB, label string, sizes ...gofpdf.SizeType) []byte {
	t.Helper()
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetFont("Helvetica", "", 12)
	for i, sz := range sizes {
		pdf.AddPageFormat("P", sz)
		pdf.Text(20, 40, fmt.Sprintf("%s page %d", label, i+1))
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("generating %s: %v", label, err)
	}
	return buf.Bytes()
}

func newDoc(t testing.TB, name string, sizes ...gofpdf.SizeType) *pdfmerge.SourceDocument {
	t.Helper()
	d, err := pdfmerge.NewSourceDocument(name, generatePDF(t, name, sizes...))
	if err != nil {
		t.Fatal(err)
	}
	return d
}

// assertPages checks the page sizes of a merged artifact.
func assertPages(t *testing.T, art *pdfmerge.Artifact, want ...gofpdf.SizeType) {
	t.Helper()
	doc, err := reader.Parse(art.Bytes())
	if err != nil {
		t.Fatalf("parsing artifact: %v", err)
	}
	if doc.NumPages() != len(want) || art.PageCount() != len(want) {
		t.Fatalf("artifact has %d pages (reported %d), want %d", doc.NumPages(), art.PageCount(), len(want))
	}
	for n, p := range doc.Pages() {
		w, h := p.Size()
		if math.Abs(w-want[n-1].Wd) > 0.5 || math.Abs(h-want[n-1].Ht) > 0.5 {
			t.Errorf("page %d: %.1fx%.1f, want %.0fx%.0f", n, w, h, want[n-1].Wd, want[n-1].Ht)
		}
	}
}

// signedPDF returns a one-page document with a filled signature field.
func signedPDF() []byte {
	content := "BT /F1 12 Tf 20 40 Td (Signed page) Tj ET"
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R /AcroForm << /Fields [4 0 R] /SigFlags 3 >> >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 420 595] >>",
		"<< /Type /Page /Parent 2 0 R /Contents 6 0 R /Annots [4 0 R]" +
			" /Resources << /Font << /F1 7 0 R >> >> >>",
		"<< /FT /Sig /T (Approval) /V 5 0 R /Subtype /Widget /Rect [0 0 0 0] /P 3 0 R >>",
		"<< /Type /Sig /Filter /Adobe.PPKLite /Name (Jane Doe) /Reason (Approved) /Location (Madrid)" +
			" /M (D:20240131120000Z) /ByteRange [0 120 250 900] /Contents <0000> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

// pageTexts returns the text shown on each page of a merged artifact.
func pageTexts(t *testing.T, art *pdfmerge.Artifact) []string {
	t.Helper()
	doc, err := reader.Parse(art.Bytes())
	if err != nil {
		t.Fatalf("parsing artifact: %v", err)
	}
	var out []string
	for _, p := range doc.Pages() {
		text, err := p.ExtractText()
		if err != nil {
			t.Fatalf("page %d text: %v", p.Number, err)
		}
		out = append(out, text)
	}
	return out
}
