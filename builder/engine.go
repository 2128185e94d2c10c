package builder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/phpdave11/gofpdi"
)

// Engine serializes a page list into a PDF written to w.
type Engine interface {
	Name() string
	Render(ctx context.Context, sources []Source, pages []PageRef, w io.Writer) error
}

// Engine names accepted by EngineByName.
const (
	EngineImport      = "import"
	EnginePassthrough = "passthrough"
)

// EngineByName returns the engine registered under name. The empty name
// selects the passthrough engine.
func EngineByName(name string) (Engine, error) {
	switch name {
	case EngineImport:
		return ImportEngine{}, nil
	case "", EnginePassthrough:
		return PassthroughEngine{}, nil
	}
	return nil, fmt.Errorf("builder: unknown engine %q", name)
}

// FixedDate is stamped as creation and modification date by ImportEngine
// when none is configured, so equal inputs produce equal metadata.
var FixedDate = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// ImportEngine draws every page as an imported Form XObject on a fresh page
// of the same size. Page content is preserved; annotations and document
// level structure such as outlines are not.
type ImportEngine struct {
	Title   string
	Creator string
	Date    time.Time // zero means FixedDate
}

// Name implements Engine.
func (ImportEngine) Name() string { return EngineImport }

// Render implements Engine. The underlying importer panics on input it
// cannot handle; such panics are returned as errors.
func (e ImportEngine) Render(ctx context.Context, sources []Source, pages []PageRef, w io.Writer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("importing pages: %v", r)
		}
	}()

	date := e.Date
	if date.IsZero() {
		date = FixedDate
	}
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(date)
	pdf.SetModificationDate(date)
	pdf.SetProducer("pdfmerge", false)
	if e.Title != "" {
		pdf.SetTitle(e.Title, true)
	}
	if e.Creator != "" {
		pdf.SetCreator(e.Creator, true)
	}

	imports := make([]*sourceImport, len(sources))
	for _, p := range pages {
		if p.Source < 0 || p.Source >= len(sources) {
			return fmt.Errorf("page references unknown source %d", p.Source)
		}
		if imports[p.Source] == nil {
			imports[p.Source] = &sourceImport{index: p.Source, tpls: make(map[pageKey]int)}
		}
		imports[p.Source].want(p)
	}
	for i, imp := range imports {
		if imp == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := imp.load(pdf, sources[i].Data); err != nil {
			return fmt.Errorf("%s: %w", sources[i].Label, err)
		}
	}

	for _, p := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: p.Width, Ht: p.Height})
		imports[p.Source].draw(pdf, p)
		if pdf.Err() {
			return fmt.Errorf("%s page %d: %w", sources[p.Source].Label, p.Page, pdf.Error())
		}
	}
	return pdf.Output(w)
}

type pageKey struct {
	page int
	box  string
}

// sourceImport holds the pages imported from one source. The importer
// numbers templates from zero and derives object keys from object numbers
// alone, so both collide between sources. Every name and key handed to
// gofpdf is therefore prefixed with the source index.
type sourceImport struct {
	index int
	keys  []pageKey
	tpls  map[pageKey]int
	fpdi  *gofpdi.Importer
}

func (s *sourceImport) want(p PageRef) {
	k := pageKey{p.Page, p.Box}
	if _, ok := s.tpls[k]; !ok {
		s.tpls[k] = -1
		s.keys = append(s.keys, k)
	}
}

// load parses data, imports every wanted page and registers the resulting
// templates and objects with pdf.
func (s *sourceImport) load(pdf *gofpdf.Fpdf, data []byte) error {
	s.fpdi = gofpdi.NewImporter()
	rs := io.ReadSeeker(bytes.NewReader(data))
	s.fpdi.SetSourceStream(&rs)
	for _, k := range s.keys {
		s.tpls[k] = s.fpdi.ImportPage(k.page, k.box)
	}

	tpls := make(map[string]string)
	for name, key := range s.fpdi.PutFormXobjectsUnordered() {
		tpls[s.name(name)] = s.key(key)
	}
	objs := make(map[string][]byte)
	for key, body := range s.fpdi.GetImportedObjectsUnordered() {
		objs[s.key(key)] = body
	}
	pos := make(map[string]map[int]string)
	for key, refs := range s.fpdi.GetImportedObjHashPos() {
		scoped := make(map[int]string, len(refs))
		for at, ref := range refs {
			scoped[at] = s.key(ref)
		}
		pos[s.key(key)] = scoped
	}
	pdf.ImportTemplates(tpls)
	pdf.ImportObjects(objs)
	pdf.ImportObjPos(pos)
	if pdf.Err() {
		return pdf.Error()
	}
	return nil
}

// draw places page p over the whole current page.
func (s *sourceImport) draw(pdf *gofpdf.Fpdf, p PageRef) {
	name, sx, sy, tx, ty := s.fpdi.UseTemplate(s.tpls[pageKey{p.Page, p.Box}], 0, 0, p.Width, p.Height)
	pdf.UseImportedTemplate(s.name(name), sx, sy, tx, ty)
}

func (s *sourceImport) name(tpl string) string {
	return fmt.Sprintf("/S%d%s", s.index, strings.TrimPrefix(tpl, "/"))
}

func (s *sourceImport) key(hash string) string {
	return fmt.Sprintf("%d-%s", s.index, hash)
}

// PassthroughEngine concatenates the sources with pdfcpu, which copies page
// objects as they are. Annotations and links survive; the page list must
// cover each source completely and in order.
type PassthroughEngine struct {
	Conf *model.Configuration // nil means relaxed validation defaults
}

// Name implements Engine.
func (PassthroughEngine) Name() string { return EnginePassthrough }

// Render implements Engine.
func (e PassthroughEngine) Render(ctx context.Context, sources []Source, pages []PageRef, w io.Writer) (err error) {
	if err := wholeDocuments(sources, pages); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdfcpu merge: %v", r)
		}
	}()

	conf := e.Conf
	if conf == nil {
		conf = model.NewDefaultConfiguration()
		conf.ValidationMode = model.ValidationRelaxed
	}
	rsc := make([]io.ReadSeeker, len(sources))
	for i, src := range sources {
		rsc[i] = bytes.NewReader(src.Data)
	}
	return api.MergeRaw(rsc, w, false, conf)
}

// wholeDocuments checks that pages lists every page of every source in
// document order.
func wholeDocuments(sources []Source, pages []PageRef) error {
	i := 0
	for s, src := range sources {
		n := src.Doc.NumPages()
		for p := 1; p <= n; p++ {
			if i >= len(pages) || pages[i].Source != s || pages[i].Page != p {
				return fmt.Errorf("page list is not a concatenation of whole documents")
			}
			i++
		}
	}
	if i != len(pages) {
		return fmt.Errorf("page list is not a concatenation of whole documents")
	}
	return nil
}
