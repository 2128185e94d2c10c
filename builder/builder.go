// Package builder assembles a merged PDF from parsed source documents.
//
// A Builder owns an append-only list of page references. Pages are only
// recorded while documents are added; nothing is serialized until Build,
// which hands the whole list to an Engine exactly once.
package builder

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/lvillar/pdfmerge/reader"
)

var (
	// ErrBuilt is returned when a Builder is used after Build.
	ErrBuilt = errors.New("builder: already built")
	// ErrEmpty is returned by Build when no page was added.
	ErrEmpty = errors.New("builder: no pages to build")
)

// Source is one input document.
type Source struct {
	Label string
	Data  []byte
	Doc   *reader.Document
}

// PageRef points at one page of a Source. Width and Height are the displayed
// size in points.
type PageRef struct {
	Source int    // index into the builder's sources
	Page   int    // 1-based page number within the source
	Box    string // page box to import, "/MediaBox" or "/CropBox"
	Width  float64
	Height float64
}

// Builder collects pages from source documents in order.
type Builder struct {
	engine  Engine
	sources []Source
	pages   []PageRef
	built   bool
}

// New returns a Builder that serializes with engine. A nil engine selects
// the passthrough engine.
func New(engine Engine) *Builder {
	if engine == nil {
		engine = PassthroughEngine{}
	}
	return &Builder{engine: engine}
}

// Engine returns the engine Build will use.
func (b *Builder) Engine() Engine { return b.engine }

// AddDocument appends every page of doc, in order, and returns the number of
// pages added. data must be the bytes doc was parsed from.
func (b *Builder) AddDocument(label string, data []byte, doc *reader.Document) (int, error) {
	if b.built {
		return 0, ErrBuilt
	}
	if doc == nil {
		return 0, fmt.Errorf("builder: %s: nil document", label)
	}
	idx := len(b.sources)
	b.sources = append(b.sources, Source{Label: label, Data: data, Doc: doc})
	for n, page := range doc.Pages() {
		w, h := page.Size()
		box := "/MediaBox"
		if page.CropBox != nil {
			box = "/CropBox"
		}
		b.pages = append(b.pages, PageRef{Source: idx, Page: n, Box: box, Width: w, Height: h})
	}
	return doc.NumPages(), nil
}

// AddPDF parses data and appends its pages.
func (b *Builder) AddPDF(label string, data []byte) (int, error) {
	if b.built {
		return 0, ErrBuilt
	}
	doc, err := reader.Parse(data)
	if err != nil {
		return 0, fmt.Errorf("builder: %s: %w", label, err)
	}
	return b.AddDocument(label, data, doc)
}

// NumPages returns the number of pages recorded so far.
func (b *Builder) NumPages() int { return len(b.pages) }

// Pages returns a copy of the page list.
func (b *Builder) Pages() []PageRef {
	return append([]PageRef(nil), b.pages...)
}

// Sources returns a copy of the source list.
func (b *Builder) Sources() []Source {
	return append([]Source(nil), b.sources...)
}

// Build serializes the page list with the builder's engine. It may be called
// only once; the Builder is spent afterwards even if rendering fails.
func (b *Builder) Build(ctx context.Context) ([]byte, error) {
	if b.built {
		return nil, ErrBuilt
	}
	b.built = true
	if len(b.pages) == 0 {
		return nil, ErrEmpty
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Engines may not observe ctx while they parse a source, so rendering
	// runs in its own goroutine. A render still running when ctx is done is
	// abandoned and its output discarded.
	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		var buf bytes.Buffer
		err := b.engine.Render(ctx, b.sources, b.pages, &buf)
		done <- result{buf.Bytes(), err}
	}()
	select {
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("builder: %s engine: %w", b.engine.Name(), r.err)
		}
		return r.data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
