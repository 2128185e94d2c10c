package sign_test

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/lvillar/pdfmerge/reader"
	"github.com/lvillar/pdfmerge/sign"
)

// buildPDF writes objs numbered from 1 with a classic xref table.
func buildPDF(objs ...string) []byte {
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

func signedPDF() []byte {
	return buildPDF(
		"<< /Type /Catalog /Pages 2 0 R /AcroForm << /Fields [4 0 R 6 0 R 8 0 R] /SigFlags 3 >> >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 200 200] >>",
		"<< /Type /Page /Parent 2 0 R /Annots [4 0 R] >>",
		"<< /FT /Sig /T (Approval) /V 5 0 R /Subtype /Widget /Rect [0 0 0 0] /P 3 0 R >>",
		"<< /Type /Sig /Filter /Adobe.PPKLite /Name (Jane Doe) /Reason (Approved) /Location (Madrid)"+
			" /M (D:20240131120000+01'00') /ByteRange [0 120 250 900] /Contents <0000> >>",
		"<< /FT /Sig /T (Review) /Kids [7 0 R] >>",
		"<< /T (Second) /Parent 6 0 R >>",
		"<< /FT /Tx /T (Comment) /V (looks good) >>",
	)
}

func TestFind(t *testing.T) {
	doc, err := reader.Parse(signedPDF())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	sigs, err := sign.Find(doc)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(sigs) != 1 {
		t.Fatalf("found %d signatures, want 1", len(sigs))
	}
	s := sigs[0]
	if s.Field != "Approval" || s.Signer != "Jane Doe" || s.Reason != "Approved" || s.Location != "Madrid" {
		t.Errorf("signature = %+v", s)
	}
	want := time.Date(2024, time.January, 31, 11, 0, 0, 0, time.UTC)
	if !s.SignedAt.Equal(want) {
		t.Errorf("SignedAt = %v, want %v", s.SignedAt, want)
	}
	if s.ByteRange != [4]int64{0, 120, 250, 900} {
		t.Errorf("ByteRange = %v", s.ByteRange)
	}
}

func TestFindUnsigned(t *testing.T) {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.AddPage()
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatal(err)
	}
	doc, err := reader.Parse(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	sigs, err := sign.Find(doc)
	if err != nil || len(sigs) != 0 {
		t.Errorf("Find = %v, %v", sigs, err)
	}
}

func TestFindFieldCycle(t *testing.T) {
	data := buildPDF(
		"<< /Type /Catalog /Pages 2 0 R /AcroForm << /Fields [4 0 R] >> >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R >>",
		"<< /FT /Sig /T (Loop) /Kids [4 0 R] >>",
	)
	doc, err := reader.Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if sigs, err := sign.Find(doc); err != nil || len(sigs) != 0 {
		t.Errorf("Find = %v, %v", sigs, err)
	}
}

func TestCoversDocument(t *testing.T) {
	tests := []struct {
		br   [4]int64
		size int64
		want bool
	}{
		{[4]int64{0, 100, 200, 300}, 500, true},
		{[4]int64{0, 100, 200, 300}, 640, false},
		{[4]int64{10, 100, 200, 300}, 500, false},
		{[4]int64{}, 0, false},
	}
	for _, tt := range tests {
		if got := (sign.Signature{ByteRange: tt.br}).CoversDocument(tt.size); got != tt.want {
			t.Errorf("CoversDocument(%v, %d) = %v", tt.br, tt.size, got)
		}
	}
}
