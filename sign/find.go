// Package sign finds the digital signatures of a PDF document.
//
// Merging copies page content into a new file, so signatures of the inputs
// never carry over to the result. Find lets callers tell users which inputs
// lose one.
package sign

import (
	"strings"
	"time"

	"github.com/lvillar/pdfmerge/reader"
)

// maxFieldDepth bounds recursion through /Kids.
const maxFieldDepth = 32

// Signature describes one filled signature field.
type Signature struct {
	Field     string // fully qualified field name
	Signer    string // /Name of the signature dictionary
	Reason    string
	Location  string
	SignedAt  time.Time // zero if /M is absent or unparsable
	ByteRange [4]int64
}

// CoversDocument reports whether the signed bytes reach the end of a file
// of the given size. Revisions appended after signing make it false.
func (s Signature) CoversDocument(size int64) bool {
	br := s.ByteRange
	return br[0] == 0 && br[1] > 0 && br[2]+br[3] == size
}

// Find returns the filled signature fields of doc's interactive form, in
// field order. Documents without a form have none.
func Find(doc *reader.Document) ([]Signature, error) {
	catalog, err := doc.Catalog()
	if err != nil {
		return nil, err
	}
	obj, err := doc.Resolve(catalog["AcroForm"])
	if err != nil {
		return nil, err
	}
	form, ok := obj.(reader.Dict)
	if !ok {
		return nil, nil
	}
	obj, err = doc.Resolve(form["Fields"])
	if err != nil {
		return nil, err
	}
	fields, _ := obj.(reader.Array)

	f := finder{doc: doc, visited: make(map[int]bool)}
	for _, field := range fields {
		if err := f.walk(field, "", "", 0); err != nil {
			return nil, err
		}
	}
	return f.sigs, nil
}

type finder struct {
	doc     *reader.Document
	visited map[int]bool
	sigs    []Signature
}

func (f *finder) walk(obj reader.Object, parent string, ft reader.Name, depth int) error {
	if depth > maxFieldDepth {
		return nil
	}
	if ref, ok := obj.(reader.Reference); ok {
		if f.visited[ref.Number] {
			return nil
		}
		f.visited[ref.Number] = true
	}
	v, err := f.doc.Resolve(obj)
	if err != nil {
		return err
	}
	field, ok := v.(reader.Dict)
	if !ok {
		return nil
	}

	name := parent
	if t, ok := field["T"].(reader.String); ok {
		if name != "" {
			name += "."
		}
		name += t.Text()
	}
	if n := field.Name("FT"); n != "" {
		ft = n
	}

	if ft == "Sig" {
		if sig, ok, err := f.signature(field["V"]); err != nil {
			return err
		} else if ok {
			sig.Field = name
			f.sigs = append(f.sigs, sig)
			return nil
		}
	}

	kids, err := f.doc.Resolve(field["Kids"])
	if err != nil {
		return err
	}
	arr, _ := kids.(reader.Array)
	for _, kid := range arr {
		if err := f.walk(kid, name, ft, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (f *finder) signature(obj reader.Object) (Signature, bool, error) {
	v, err := f.doc.Resolve(obj)
	if err != nil {
		return Signature{}, false, err
	}
	dict, ok := v.(reader.Dict)
	if !ok {
		return Signature{}, false, nil
	}
	sig := Signature{
		Signer:   text(f.doc, dict["Name"]),
		Reason:   text(f.doc, dict["Reason"]),
		Location: text(f.doc, dict["Location"]),
		SignedAt: parseDate(text(f.doc, dict["M"])),
	}
	for i, item := range dict.Array("ByteRange") {
		if i >= 4 {
			break
		}
		if n, ok := item.(reader.Integer); ok {
			sig.ByteRange[i] = int64(n)
		}
	}
	return sig, true, nil
}

func text(doc *reader.Document, obj reader.Object) string {
	v, err := doc.Resolve(obj)
	if err != nil {
		return ""
	}
	if s, ok := v.(reader.String); ok {
		return s.Text()
	}
	return ""
}

// parseDate parses a PDF date such as D:20240131120000+01'00'.
func parseDate(s string) time.Time {
	s = strings.TrimPrefix(s, "D:")
	if len(s) < 14 {
		return time.Time{}
	}
	for _, layout := range []string{
		"20060102150405-07'00'",
		"20060102150405-07'00",
		"20060102150405Z07'00'",
		"20060102150405Z",
		"20060102150405",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
