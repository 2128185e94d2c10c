// Package thumbnail renders previews of documents staged for merging.
//
// Previews are best effort: a document that cannot be previewed yields an
// error for that document only and never affects a merge.
package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/gofpdi"
	lpdf "github.com/ledongthuc/pdf"
	"github.com/sirupsen/logrus"

	"github.com/lvillar/pdfmerge"
	"github.com/lvillar/pdfmerge/reader"
)

// Defaults applied to zero Options fields.
const (
	DefaultWidth       = 120.0 // points
	DefaultCardWidth   = 160   // pixels
	DefaultSnippetLen  = 200   // runes
	DefaultConcurrency = 4
)

// Options configures rendering.
type Options struct {
	Width       float64 // width of the PDF thumbnail in points
	CardWidth   int     // width of the PNG card in pixels
	SnippetLen  int     // maximum length of the text snippet
	Concurrency int     // parallel renders in RenderAll
	Position    int     // 1-based position printed as "File #n"; 0 omits it
	Log         *logrus.Entry
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.CardWidth <= 0 {
		o.CardWidth = DefaultCardWidth
	}
	if o.SnippetLen <= 0 {
		o.SnippetLen = DefaultSnippetLen
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.Log = logrus.NewEntry(l)
	}
	return o
}

// Thumbnail is the preview of one document.
type Thumbnail struct {
	Name     string
	Position int
	SizeMB   float64
	Pages    int
	Width    float64 // first page, points, rotation applied
	Height   float64
	Title    string
	Snippet  string // leading text of the first page
	PDF      []byte // first page scaled to Options.Width
	PNG      []byte // card showing the page outline and file details
}

// Preview parses doc and renders its thumbnails.
func Preview(ctx context.Context, doc *pdfmerge.SourceDocument, opts Options) (*Thumbnail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	data := doc.Bytes()

	parsed, err := reader.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("thumbnail: %s: %w", doc.Name(), err)
	}
	first, err := parsed.Page(1)
	if err != nil {
		return nil, fmt.Errorf("thumbnail: %s: %w", doc.Name(), err)
	}

	t := &Thumbnail{
		Name:     doc.Name(),
		Position: opts.Position,
		SizeMB:   doc.SizeMB(),
		Pages:    parsed.NumPages(),
		Title:    parsed.Metadata()["Title"],
	}
	t.Width, t.Height = first.Size()
	t.Snippet = truncate(pageText(data, first), opts.SnippetLen)

	if t.PDF, err = scaledPage(data, first, opts.Width); err != nil {
		return nil, fmt.Errorf("thumbnail: %s: %w", doc.Name(), err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.PNG, err = card(t, opts.CardWidth); err != nil {
		return nil, fmt.Errorf("thumbnail: %s: %w", doc.Name(), err)
	}
	return t, nil
}

// pageText extracts the first page's text with ledongthuc/pdf, which
// understands font encodings, and falls back to the content stream scan.
func pageText(data []byte, page *reader.Page) string {
	if s := plainText(data); s != "" {
		return s
	}
	s, _ := page.ExtractText()
	return s
}

func plainText(data []byte) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()
	r, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil || r.NumPage() == 0 {
		return ""
	}
	p := r.Page(1)
	if p.V.IsNull() {
		return ""
	}
	s, err := p.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)[:n]
	if i := strings.LastIndexByte(string(r), ' '); i > n/2 {
		return string(r)[:i] + "..."
	}
	return string(r) + "..."
}

// scaledPage draws the page as an imported template on a page width points
// wide, keeping its aspect ratio.
func scaledPage(data []byte, page *reader.Page, width float64) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("importing page: %v", r)
		}
	}()
	pw, ph := page.Size()
	if pw <= 0 || ph <= 0 {
		return nil, fmt.Errorf("page has no area")
	}
	height := width * ph / pw
	box := "/MediaBox"
	if page.CropBox != nil {
		box = "/CropBox"
	}

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCatalogSort(true)
	imp := gofpdi.NewImporter()
	var rs io.ReadSeeker = bytes.NewReader(data)
	tpl := imp.ImportPageFromStream(pdf, &rs, page.Number, box)
	pdf.AddPageFormat("P", gofpdf.SizeType{Wd: width, Ht: height})
	imp.UseImportedTemplate(pdf, tpl, 0, 0, width, height)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
