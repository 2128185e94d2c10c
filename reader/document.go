package reader

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strconv"
	"strings"
	"sync"
)

// ErrEncrypted is returned for documents with an /Encrypt dictionary.
// Encrypted input cannot be merged without a password, which is not supported.
var ErrEncrypted = errors.New("reader: document is encrypted")

// SyntaxError reports a structural problem at a byte offset.
type SyntaxError struct {
	Offset int64
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("reader: offset %d: %s", e.Offset, e.Msg)
}

func syntaxErrorf(offset int64, format string, args ...any) error {
	return &SyntaxError{Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

// maxRefDepth bounds nested lookups (object streams, indirect /Length).
const maxRefDepth = 8

// Document is a parsed PDF file. It is safe for concurrent use.
type Document struct {
	Version string // from the %PDF- header, e.g. "1.7"

	data    []byte
	xref    xrefTable
	trailer Dict
	pages   []*Page

	mu         sync.Mutex
	cache      map[int]Object
	objStreams map[int]*objectStream
}

// Open reads and parses a PDF file from disk.
func Open(filename string) (*Document, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reader: opening %s: %w", filename, err)
	}
	return Parse(data)
}

// ReadFrom reads r to the end and parses the result.
func ReadFrom(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reader: reading input: %w", err)
	}
	return Parse(data)
}

// Parse parses a complete PDF file held in memory. data is retained and
// must not be modified afterwards.
func Parse(data []byte) (*Document, error) {
	version, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	start, err := findStartXRef(data)
	if err != nil {
		return nil, err
	}
	xref, trailer, err := loadXRef(data, start)
	if err != nil {
		return nil, err
	}
	if _, ok := trailer["Encrypt"]; ok {
		return nil, ErrEncrypted
	}

	doc := &Document{
		Version:    version,
		data:       data,
		xref:       xref,
		trailer:    trailer,
		cache:      make(map[int]Object),
		objStreams: make(map[int]*objectStream),
	}
	if err := doc.buildPageList(); err != nil {
		return nil, err
	}
	return doc, nil
}

// parseHeader finds "%PDF-x.y" within the first kilobyte.
func parseHeader(data []byte) (string, error) {
	head := string(data[:min(1024, len(data))])
	idx := strings.Index(head, "%PDF-")
	if idx < 0 {
		return "", syntaxErrorf(0, "missing %%PDF- header")
	}
	end := idx + len("%PDF-")
	for end < len(head) && head[end] != '\n' && head[end] != '\r' && head[end] != ' ' {
		end++
	}
	return head[idx+len("%PDF-") : end], nil
}

// NumPages returns the number of pages.
func (d *Document) NumPages() int {
	return len(d.pages)
}

// Page returns the page with the given 1-based number.
func (d *Document) Page(n int) (*Page, error) {
	if n < 1 || n > len(d.pages) {
		return nil, fmt.Errorf("reader: page %d out of range [1, %d]", n, len(d.pages))
	}
	return d.pages[n-1], nil
}

// Pages iterates over all pages in order. The index is 1-based.
func (d *Document) Pages() iter.Seq2[int, *Page] {
	return func(yield func(int, *Page) bool) {
		for i, p := range d.pages {
			if !yield(i+1, p) {
				return
			}
		}
	}
}

// Metadata returns the string entries of the /Info dictionary.
func (d *Document) Metadata() map[string]string {
	meta := make(map[string]string)
	obj, err := d.Resolve(d.trailer["Info"])
	if err != nil {
		return meta
	}
	info, _ := obj.(Dict)
	for _, key := range []Name{"Title", "Author", "Subject", "Keywords", "Creator", "Producer"} {
		v, err := d.Resolve(info[key])
		if err != nil {
			continue
		}
		if s, ok := v.(String); ok {
			meta[string(key)] = decodePDFString(s.Value)
		}
	}
	return meta
}

// Catalog returns the document catalog, the trailer's /Root dictionary.
func (d *Document) Catalog() (Dict, error) {
	obj, err := d.Resolve(d.trailer["Root"])
	if err != nil {
		return nil, err
	}
	catalog, ok := obj.(Dict)
	if !ok {
		return nil, syntaxErrorf(0, "trailer /Root is not a dictionary")
	}
	return catalog, nil
}

// Size returns the length of the file in bytes.
func (d *Document) Size() int64 { return int64(len(d.data)) }

// Resolve follows obj if it is a Reference and returns it unchanged
// otherwise. Missing and free objects resolve to Null.
func (d *Document) Resolve(obj Object) (Object, error) {
	ref, ok := obj.(Reference)
	if !ok {
		if obj == nil {
			return Null{}, nil
		}
		return obj, nil
	}
	return d.lookup(ref, 0)
}

func (d *Document) lookup(ref Reference, depth int) (Object, error) {
	if depth > maxRefDepth {
		return nil, syntaxErrorf(0, "reference chain through object %d too deep", ref.Number)
	}
	d.mu.Lock()
	obj, ok := d.cache[ref.Number]
	d.mu.Unlock()
	if ok {
		return obj, nil
	}

	obj, err := d.load(ref, depth)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.cache[ref.Number] = obj
	d.mu.Unlock()
	return obj, nil
}

func (d *Document) load(ref Reference, depth int) (Object, error) {
	e, ok := d.xref[ref.Number]
	if !ok || e.kind == xrefFree {
		return Null{}, nil
	}

	if e.kind == xrefCompressed {
		stm, err := d.objectStream(e.stream, depth)
		if err != nil {
			return nil, err
		}
		return stm.object(e.index, ref.Number)
	}

	if e.offset < 0 || e.offset >= int64(len(d.data)) {
		return nil, syntaxErrorf(e.offset, "object %d offset out of bounds", ref.Number)
	}
	l := newLexer(d.data[e.offset:], e.offset)
	l.length = func(r Reference) (int64, bool) {
		v, err := d.lookup(r, depth+1)
		if err != nil {
			return 0, false
		}
		return asInt(v)
	}
	obj, err := l.indirect()
	if err != nil {
		return nil, err
	}
	if obj.Number != ref.Number {
		return nil, syntaxErrorf(e.offset, "xref points object %d at object %d", ref.Number, obj.Number)
	}
	return obj.Value, nil
}

// objectStream holds a decoded /Type /ObjStm stream.
type objectStream struct {
	data    []byte
	numbers []int
	offsets []int // relative to data
}

func (d *Document) objectStream(num, depth int) (*objectStream, error) {
	d.mu.Lock()
	stm, ok := d.objStreams[num]
	d.mu.Unlock()
	if ok {
		return stm, nil
	}

	if e := d.xref[num]; e.kind != xrefOffset {
		return nil, syntaxErrorf(0, "object stream %d is not stored at a file offset", num)
	}
	obj, err := d.lookup(Reference{Number: num}, depth+1)
	if err != nil {
		return nil, err
	}
	s, ok := obj.(Stream)
	if !ok || s.Dict.Name("Type") != "ObjStm" {
		return nil, syntaxErrorf(0, "object %d is not an object stream", num)
	}
	raw, err := decodeStream(s)
	if err != nil {
		return nil, syntaxErrorf(0, "object stream %d: %v", num, err)
	}
	n, _ := s.Dict.Int("N")
	first, _ := s.Dict.Int("First")
	if n < 0 || first < 0 || first > int64(len(raw)) {
		return nil, syntaxErrorf(0, "object stream %d has bad /N or /First", num)
	}

	stm = &objectStream{data: raw[first:]}
	l := newLexer(raw[:first], 0)
	for i := int64(0); i < n; i++ {
		objNum, err1 := strconv.Atoi(l.token())
		off, err2 := strconv.Atoi(l.token())
		if err1 != nil || err2 != nil || off < 0 || off > len(stm.data) {
			return nil, syntaxErrorf(0, "object stream %d header entry %d invalid", num, i)
		}
		stm.numbers = append(stm.numbers, objNum)
		stm.offsets = append(stm.offsets, off)
	}

	d.mu.Lock()
	d.objStreams[num] = stm
	d.mu.Unlock()
	return stm, nil
}

func (s *objectStream) object(index, num int) (Object, error) {
	if index < 0 || index >= len(s.numbers) || s.numbers[index] != num {
		index = -1
		for i, n := range s.numbers {
			if n == num {
				index = i
				break
			}
		}
		if index < 0 {
			return nil, syntaxErrorf(0, "object %d missing from its object stream", num)
		}
	}
	l := newLexer(s.data[s.offsets[index]:], 0)
	return l.object()
}
