package reader

import (
	"bytes"
	"strings"
	"unicode/utf16"
)

// maxFormDepth bounds the nesting of Form XObjects followed by ExtractText.
const maxFormDepth = 8

// ExtractText returns the text shown by the page's Tj, TJ, ' and "
// operators, including text drawn by Form XObjects the page invokes with Do.
// Font encodings and ToUnicode maps are not applied, so the result is only
// reliable for simple fonts.
func (p *Page) ExtractText() (string, error) {
	data, err := p.ContentStream()
	if err != nil {
		return "", err
	}
	res, _ := p.doc.Resolve(p.resources)
	dict, _ := res.(Dict)
	return p.doc.formText(data, dict, 0), nil
}

// formText extracts the text of content drawn with resources res.
func (d *Document) formText(data []byte, res Dict, depth int) string {
	return scanText(data, func(name Name) string {
		if depth >= maxFormDepth || res == nil {
			return ""
		}
		obj, err := d.Resolve(res["XObject"])
		if err != nil {
			return ""
		}
		xobjs, _ := obj.(Dict)
		if obj, err = d.Resolve(xobjs[name]); err != nil {
			return ""
		}
		form, ok := obj.(Stream)
		if !ok || form.Dict.Name("Subtype") != "Form" {
			return ""
		}
		decoded, err := decodeStream(form)
		if err != nil {
			return ""
		}
		inner := res
		if obj, err := d.Resolve(form.Dict["Resources"]); err == nil {
			if dict, ok := obj.(Dict); ok {
				inner = dict
			}
		}
		return d.formText(decoded, inner, depth+1)
	})
}

// contentText scans a content stream without following XObjects.
func contentText(data []byte) string {
	return scanText(data, nil)
}

// scanText scans a content stream as operands followed by operators. When
// form is not nil it supplies the text of the XObject named by each Do.
func scanText(data []byte, form func(Name) string) string {
	var sb strings.Builder
	var operands []Object
	l := newLexer(data, 0)

	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			break
		}
		switch c := l.data[l.pos]; {
		case c == '(' || c == '<' || c == '[' || c == '/' ||
			c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
			obj, err := l.object()
			if err != nil {
				l.pos++
				operands = operands[:0]
				continue
			}
			operands = append(operands, obj)
			continue
		case isDelim(c):
			l.pos++
			continue
		}

		op := l.token()
		if op == "" {
			l.pos++
			continue
		}
		switch op {
		case "Tj", "'", `"`:
			if n := len(operands); n > 0 {
				if s, ok := operands[n-1].(String); ok {
					if op != "Tj" {
						sb.WriteByte(' ')
					}
					sb.WriteString(decodePDFString(s.Value))
				}
			}
		case "TJ":
			if n := len(operands); n > 0 {
				arr, _ := operands[n-1].(Array)
				for _, item := range arr {
					switch v := item.(type) {
					case String:
						sb.WriteString(decodePDFString(v.Value))
					case Integer, Real:
						// Large negative kerning reads as a word gap.
						if f, _ := asFloat(v); f < -200 {
							sb.WriteByte(' ')
						}
					}
				}
			}
		case "Td", "TD", "T*", "ET":
			sb.WriteByte(' ')
		case "Do":
			if n := len(operands); n > 0 && form != nil {
				if name, ok := operands[n-1].(Name); ok {
					sb.WriteByte(' ')
					sb.WriteString(form(name))
					sb.WriteByte(' ')
				}
			}
		case "ID":
			// Inline image data runs until an "EI" token.
			end := bytes.Index(l.data[l.pos:], []byte("EI"))
			for end >= 0 {
				at := l.pos + end
				if at+2 >= len(l.data) || isSpace(l.data[at+2]) {
					break
				}
				next := bytes.Index(l.data[at+2:], []byte("EI"))
				if next < 0 {
					end = -1
					break
				}
				end += 2 + next
			}
			if end < 0 {
				l.pos = len(l.data)
			} else {
				l.pos += end + 2
			}
		}
		operands = operands[:0]
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

// decodePDFString decodes a text string: UTF-16BE when it carries a BOM,
// otherwise bytes are taken as Latin-1.
func decodePDFString(data []byte) string {
	if len(data) >= 2 && data[0] == 0xFE && data[1] == 0xFF {
		data = data[2:]
		u16 := make([]uint16, len(data)/2)
		for i := range u16 {
			u16[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
		}
		return string(utf16.Decode(u16))
	}
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}
