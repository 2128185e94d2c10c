// Package reader parses existing PDF files far enough to merge them: it
// validates the file structure, resolves indirect objects (including objects
// packed in object streams) and flattens the page tree into a page list with
// inherited geometry.
package reader

import (
	"fmt"
	"strconv"
)

// Object is the interface satisfied by all PDF object types.
type Object interface {
	pdfObject()
	String() string
}

// Null is the PDF null object.
type Null struct{}

func (Null) pdfObject()     {}
func (Null) String() string { return "null" }

// Boolean is a PDF boolean.
type Boolean bool

func (Boolean) pdfObject()       {}
func (b Boolean) String() string { return strconv.FormatBool(bool(b)) }

// Integer is a PDF integer.
type Integer int64

func (Integer) pdfObject()       {}
func (i Integer) String() string { return strconv.FormatInt(int64(i), 10) }

// Real is a PDF real number.
type Real float64

func (Real) pdfObject()       {}
func (r Real) String() string { return strconv.FormatFloat(float64(r), 'g', -1, 64) }

// Name is a PDF name such as /Type.
type Name string

func (Name) pdfObject()       {}
func (n Name) String() string { return "/" + string(n) }

// String is a literal or hexadecimal PDF string.
type String struct {
	Value []byte
	IsHex bool
}

func (String) pdfObject() {}
func (s String) String() string {
	if s.IsHex {
		return fmt.Sprintf("<%x>", s.Value)
	}
	return fmt.Sprintf("(%s)", s.Value)
}

// Text decodes s as a PDF text string.
func (s String) Text() string { return decodePDFString(s.Value) }

// Array is a PDF array.
type Array []Object

func (Array) pdfObject()       {}
func (a Array) String() string { return fmt.Sprintf("[%d items]", len(a)) }

// Dict is a PDF dictionary.
type Dict map[Name]Object

func (Dict) pdfObject()       {}
func (d Dict) String() string { return fmt.Sprintf("<<%d keys>>", len(d)) }

// Name returns the name stored under key, or "".
func (d Dict) Name(key Name) Name {
	n, _ := d[key].(Name)
	return n
}

// Int returns the integer stored under key. Reals are truncated.
func (d Dict) Int(key Name) (int64, bool) {
	return asInt(d[key])
}

// Dict returns the direct sub-dictionary stored under key, or nil.
func (d Dict) Dict(key Name) Dict {
	sub, _ := d[key].(Dict)
	return sub
}

// Array returns the direct array stored under key, or nil.
func (d Dict) Array(key Name) Array {
	arr, _ := d[key].(Array)
	return arr
}

// Stream is a stream object: its dictionary plus the still-encoded data.
type Stream struct {
	Dict Dict
	Data []byte
}

func (Stream) pdfObject()       {}
func (s Stream) String() string { return fmt.Sprintf("<<stream %d bytes>>", len(s.Data)) }

// Reference is an indirect reference such as "12 0 R".
type Reference struct {
	Number     int
	Generation int
}

func (Reference) pdfObject()       {}
func (r Reference) String() string { return fmt.Sprintf("%d %d R", r.Number, r.Generation) }

// IndirectObject is an "N G obj ... endobj" definition.
type IndirectObject struct {
	Reference
	Value Object
}

func (IndirectObject) pdfObject()       {}
func (o IndirectObject) String() string { return fmt.Sprintf("%d %d obj %s", o.Number, o.Generation, o.Value) }

func asInt(obj Object) (int64, bool) {
	switch n := obj.(type) {
	case Integer:
		return int64(n), true
	case Real:
		return int64(n), true
	}
	return 0, false
}

func asFloat(obj Object) (float64, bool) {
	switch n := obj.(type) {
	case Integer:
		return float64(n), true
	case Real:
		return float64(n), true
	}
	return 0, false
}
