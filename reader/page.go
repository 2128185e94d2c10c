package reader

import (
	"fmt"
)

// Rectangle is a PDF rectangle [llx lly urx ury] in points.
type Rectangle struct {
	LLX, LLY, URX, URY float64
}

// Width returns the width of the rectangle.
func (r Rectangle) Width() float64 { return r.URX - r.LLX }

// Height returns the height of the rectangle.
func (r Rectangle) Height() float64 { return r.URY - r.LLY }

// US Letter, used when a page tree declares no MediaBox at all.
var defaultMediaBox = Rectangle{URX: 612, URY: 792}

// Page is one leaf of the page tree with inherited attributes applied.
type Page struct {
	Number   int
	MediaBox Rectangle
	CropBox  *Rectangle
	Rotate   int // normalized to 0, 90, 180 or 270

	dict      Dict
	resources Object // own or inherited /Resources
	doc       *Document
}

// Size returns the displayed width and height in points: the crop box (or
// media box) with the page rotation applied.
func (p *Page) Size() (w, h float64) {
	box := p.MediaBox
	if p.CropBox != nil {
		box = *p.CropBox
	}
	w, h = box.Width(), box.Height()
	if w < 0 {
		w = -w
	}
	if h < 0 {
		h = -h
	}
	if p.Rotate == 90 || p.Rotate == 270 {
		return h, w
	}
	return w, h
}

// ContentStream returns the page's decoded content. Multiple content
// streams are joined with newlines.
func (p *Page) ContentStream() ([]byte, error) {
	obj, err := p.doc.Resolve(p.dict["Contents"])
	if err != nil {
		return nil, fmt.Errorf("reader: page %d contents: %w", p.Number, err)
	}
	var parts []Object
	switch c := obj.(type) {
	case Stream:
		parts = []Object{c}
	case Array:
		parts = c
	}

	var out []byte
	for _, part := range parts {
		v, err := p.doc.Resolve(part)
		if err != nil {
			return nil, fmt.Errorf("reader: page %d contents: %w", p.Number, err)
		}
		s, ok := v.(Stream)
		if !ok {
			continue
		}
		decoded, err := decodeStream(s)
		if err != nil {
			return nil, fmt.Errorf("reader: decoding page %d content: %w", p.Number, err)
		}
		out = append(out, decoded...)
		out = append(out, '\n')
	}
	return out, nil
}

func (d *Document) rectangle(obj Object) (Rectangle, bool) {
	v, err := d.Resolve(obj)
	if err != nil {
		return Rectangle{}, false
	}
	arr, ok := v.(Array)
	if !ok || len(arr) != 4 {
		return Rectangle{}, false
	}
	var vals [4]float64
	for i, item := range arr {
		item, err := d.Resolve(item)
		if err != nil {
			return Rectangle{}, false
		}
		if vals[i], ok = asFloat(item); !ok {
			return Rectangle{}, false
		}
	}
	return Rectangle{LLX: vals[0], LLY: vals[1], URX: vals[2], URY: vals[3]}, true
}

// inheritable page attributes.
type inherited struct {
	mediaBox  *Rectangle
	cropBox   *Rectangle
	rotate    int
	resources Object
}

func (d *Document) buildPageList() error {
	catalog, err := d.Catalog()
	if err != nil {
		return err
	}
	ref, ok := catalog["Pages"].(Reference)
	if !ok {
		return syntaxErrorf(0, "catalog /Pages is not an indirect reference")
	}
	d.pages = nil
	return d.walkPages(ref, inherited{}, make(map[int]bool))
}

// walkPages appends the leaves below ref in document order. visited guards
// against page trees that reference their own ancestors.
func (d *Document) walkPages(ref Reference, attrs inherited, visited map[int]bool) error {
	if visited[ref.Number] {
		return syntaxErrorf(0, "page tree cycle at object %d", ref.Number)
	}
	visited[ref.Number] = true

	obj, err := d.Resolve(ref)
	if err != nil {
		return err
	}
	node, ok := obj.(Dict)
	if !ok {
		return syntaxErrorf(0, "page tree node %d is not a dictionary", ref.Number)
	}

	if r, ok := d.rectangle(node["MediaBox"]); ok {
		attrs.mediaBox = &r
	}
	if r, ok := d.rectangle(node["CropBox"]); ok {
		attrs.cropBox = &r
	}
	if v, err := d.Resolve(node["Rotate"]); err == nil {
		if n, ok := asInt(v); ok {
			attrs.rotate = int(((n % 360) + 360) % 360 / 90 * 90)
		}
	}

	if res, ok := node["Resources"]; ok {
		attrs.resources = res
	}

	kids, hasKids := node["Kids"]
	if node.Name("Type") == "Page" || (!hasKids && node.Name("Type") != "Pages") {
		page := &Page{
			Number:    len(d.pages) + 1,
			MediaBox:  defaultMediaBox,
			CropBox:   attrs.cropBox,
			Rotate:    attrs.rotate,
			dict:      node,
			resources: attrs.resources,
			doc:       d,
		}
		if attrs.mediaBox != nil {
			page.MediaBox = *attrs.mediaBox
		}
		d.pages = append(d.pages, page)
		return nil
	}

	v, err := d.Resolve(kids)
	if err != nil {
		return err
	}
	arr, _ := v.(Array)
	for _, kid := range arr {
		kref, ok := kid.(Reference)
		if !ok {
			return syntaxErrorf(0, "page tree node %d has a direct kid", ref.Number)
		}
		if err := d.walkPages(kref, attrs, visited); err != nil {
			return err
		}
	}
	return nil
}
