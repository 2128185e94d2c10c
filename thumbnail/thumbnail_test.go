package thumbnail_test

import (
	"bytes"
	"context"
	"image/png"
	"math"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"

	"github.com/lvillar/pdfmerge"
	"github.com/lvillar/pdfmerge/reader"
	"github.com/lvillar/pdfmerge/thumbnail"
)

func sampleDoc(t *testing.T, name, text string, pages int) *pdfmerge.SourceDocument {
	t.Helper()
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetTitle("Quarterly report", false)
	pdf.SetFont("Helvetica", "", 12)
	for i := 0; i < pages; i++ {
		pdf.AddPage()
		pdf.Text(72, 72, text)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("generating %s: %v", name, err)
	}
	doc, err := pdfmerge.NewSourceDocument(name, buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestPreview(t *testing.T) {
	doc := sampleDoc(t, "report.pdf", "Revenue grew in every region", 3)
	th, err := thumbnail.Preview(context.Background(), doc, thumbnail.Options{Position: 2})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}

	if th.Pages != 3 {
		t.Errorf("Pages = %d, want 3", th.Pages)
	}
	if math.Abs(th.Width-595.28) > 0.5 || math.Abs(th.Height-841.89) > 0.5 {
		t.Errorf("size = %.2fx%.2f, want A4", th.Width, th.Height)
	}
	if th.Title != "Quarterly report" {
		t.Errorf("Title = %q", th.Title)
	}
	if !strings.Contains(th.Snippet, "Revenue") {
		t.Errorf("Snippet = %q", th.Snippet)
	}
	if th.Position != 2 || th.Name != "report.pdf" {
		t.Errorf("Position = %d, Name = %q", th.Position, th.Name)
	}

	scaled, err := reader.Parse(th.PDF)
	if err != nil {
		t.Fatalf("parsing thumbnail PDF: %v", err)
	}
	if scaled.NumPages() != 1 {
		t.Fatalf("thumbnail has %d pages", scaled.NumPages())
	}
	p, _ := scaled.Page(1)
	w, h := p.Size()
	if math.Abs(w-thumbnail.DefaultWidth) > 0.5 || math.Abs(h-thumbnail.DefaultWidth*841.89/595.28) > 0.5 {
		t.Errorf("thumbnail size = %.2fx%.2f", w, h)
	}

	img, err := png.Decode(bytes.NewReader(th.PNG))
	if err != nil {
		t.Fatalf("decoding card: %v", err)
	}
	if got := img.Bounds().Dx(); got != thumbnail.DefaultCardWidth {
		t.Errorf("card width = %d, want %d", got, thumbnail.DefaultCardWidth)
	}
}

func TestPreviewSnippetLength(t *testing.T) {
	doc := sampleDoc(t, "long.pdf", strings.Repeat("word ", 40), 1)
	th, err := thumbnail.Preview(context.Background(), doc, thumbnail.Options{SnippetLen: 30})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(th.Snippet, "...") || len([]rune(th.Snippet)) > 33 {
		t.Errorf("Snippet = %q", th.Snippet)
	}
}

func TestPreviewMalformed(t *testing.T) {
	doc, _ := pdfmerge.NewSourceDocument("broken.pdf", []byte("%PDF-1.4\nnot really"))
	if _, err := thumbnail.Preview(context.Background(), doc, thumbnail.Options{}); err == nil {
		t.Fatal("expected an error")
	} else if !strings.Contains(err.Error(), "broken.pdf") {
		t.Errorf("error %q does not name the document", err)
	}
}

func TestPreviewCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := thumbnail.Preview(ctx, sampleDoc(t, "a.pdf", "a", 1), thumbnail.Options{}); err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRenderAllIsolatesFailures(t *testing.T) {
	broken, _ := pdfmerge.NewSourceDocument("broken.pdf", []byte("garbage"))
	docs := []*pdfmerge.SourceDocument{
		sampleDoc(t, "a.pdf", "first", 1),
		broken,
		sampleDoc(t, "c.pdf", "third", 2),
	}
	results := thumbnail.RenderAll(context.Background(), docs, thumbnail.Options{Concurrency: 2})
	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}
	if results[1].Err == nil || results[1].Thumbnail != nil {
		t.Errorf("broken document: %+v", results[1])
	}
	for _, i := range []int{0, 2} {
		r := results[i]
		if r.Err != nil {
			t.Errorf("result %d: %v", i, r.Err)
			continue
		}
		if r.Thumbnail.Name != docs[i].Name() || r.Thumbnail.Position != i+1 {
			t.Errorf("result %d = %s #%d", i, r.Thumbnail.Name, r.Thumbnail.Position)
		}
	}
	if results[2].Thumbnail != nil && results[2].Thumbnail.Pages != 2 {
		t.Errorf("c.pdf pages = %d", results[2].Thumbnail.Pages)
	}
}
