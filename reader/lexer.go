package reader

import (
	"bytes"
	"io"
	"strconv"
)

// maxNesting bounds array/dictionary recursion so hostile input cannot
// exhaust the stack.
const maxNesting = 256

// lexer reads PDF objects from a byte slice.
type lexer struct {
	data []byte
	pos  int
	base int64 // file offset of data[0], for error messages

	// length resolves an indirect /Length value of a stream. May be nil.
	length func(Reference) (int64, bool)
}

func newLexer(data []byte, base int64) *lexer {
	return &lexer{data: data, base: base}
}

func (l *lexer) errorf(format string, args ...any) error {
	return syntaxErrorf(l.base+int64(l.pos), format, args...)
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\f', 0:
		return true
	}
	return false
}

func isDelim(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

// skipSpace advances past whitespace and comments.
func (l *lexer) skipSpace() {
	for l.pos < len(l.data) {
		switch b := l.data[l.pos]; {
		case isSpace(b):
			l.pos++
		case b == '%':
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
		default:
			return
		}
	}
}

// token returns the next run of regular characters.
func (l *lexer) token() string {
	l.skipSpace()
	start := l.pos
	for l.pos < len(l.data) && !isSpace(l.data[l.pos]) && !isDelim(l.data[l.pos]) {
		l.pos++
	}
	return string(l.data[start:l.pos])
}

func (l *lexer) hasPrefix(s string) bool {
	return bytes.HasPrefix(l.data[l.pos:], []byte(s))
}

// object parses the next direct object.
func (l *lexer) object() (Object, error) {
	return l.nested(0)
}

func (l *lexer) nested(depth int) (Object, error) {
	if depth > maxNesting {
		return nil, l.errorf("objects nested deeper than %d", maxNesting)
	}
	l.skipSpace()
	if l.pos >= len(l.data) {
		return nil, io.ErrUnexpectedEOF
	}
	switch b := l.data[l.pos]; {
	case b == '<' && l.pos+1 < len(l.data) && l.data[l.pos+1] == '<':
		return l.dict(depth)
	case b == '<':
		return l.hexString()
	case b == '(':
		return l.literalString()
	case b == '/':
		return l.name(), nil
	case b == '[':
		return l.array(depth)
	case b == '+' || b == '-' || b == '.' || (b >= '0' && b <= '9'):
		return l.numberOrRef()
	}

	start := l.pos
	switch tok := l.token(); tok {
	case "true":
		return Boolean(true), nil
	case "false":
		return Boolean(false), nil
	case "null":
		return Null{}, nil
	default:
		l.pos = start
		return nil, l.errorf("unexpected token %q", tok)
	}
}

func (l *lexer) name() Name {
	l.pos++ // '/'
	var buf []byte
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		if isSpace(b) || isDelim(b) {
			break
		}
		if b == '#' && l.pos+2 < len(l.data) {
			hi, lo := unhex(l.data[l.pos+1]), unhex(l.data[l.pos+2])
			if hi >= 0 && lo >= 0 {
				buf = append(buf, byte(hi<<4|lo))
				l.pos += 3
				continue
			}
		}
		buf = append(buf, b)
		l.pos++
	}
	return Name(buf)
}

func (l *lexer) numberOrRef() (Object, error) {
	start := l.pos
	tok := l.token()
	n, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(tok, 64)
		if ferr != nil {
			l.pos = start
			return nil, l.errorf("malformed number %q", tok)
		}
		return Real(f), nil
	}

	// "N G R" lookahead.
	after := l.pos
	l.skipSpace()
	if l.pos < len(l.data) && l.data[l.pos] >= '0' && l.data[l.pos] <= '9' {
		if gen, err := strconv.ParseInt(l.token(), 10, 64); err == nil {
			l.skipSpace()
			if l.pos < len(l.data) && l.data[l.pos] == 'R' &&
				(l.pos+1 == len(l.data) || isSpace(l.data[l.pos+1]) || isDelim(l.data[l.pos+1])) {
				l.pos++
				return Reference{Number: int(n), Generation: int(gen)}, nil
			}
		}
	}
	l.pos = after
	return Integer(n), nil
}

func (l *lexer) literalString() (String, error) {
	start := l.pos
	l.pos++ // '('
	var buf []byte
	depth := 1
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		l.pos++
		switch b {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return String{Value: buf}, nil
			}
		case '\\':
			if l.pos >= len(l.data) {
				continue
			}
			b = l.data[l.pos]
			l.pos++
			switch b {
			case 'n':
				b = '\n'
			case 'r':
				b = '\r'
			case 't':
				b = '\t'
			case 'b':
				b = '\b'
			case 'f':
				b = '\f'
			case '\r':
				// line continuation
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
				continue
			case '\n':
				continue
			default:
				if b >= '0' && b <= '7' {
					v := int(b - '0')
					for i := 0; i < 2 && l.pos < len(l.data) && l.data[l.pos] >= '0' && l.data[l.pos] <= '7'; i++ {
						v = v*8 + int(l.data[l.pos]-'0')
						l.pos++
					}
					b = byte(v)
				}
			}
		}
		buf = append(buf, b)
	}
	l.pos = start
	return String{}, l.errorf("unterminated literal string")
}

func (l *lexer) hexString() (String, error) {
	start := l.pos
	l.pos++ // '<'
	var buf []byte
	hi := -1
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		l.pos++
		if b == '>' {
			if hi >= 0 {
				buf = append(buf, byte(hi<<4))
			}
			return String{Value: buf, IsHex: true}, nil
		}
		if isSpace(b) {
			continue
		}
		v := unhex(b)
		if v < 0 {
			return String{}, l.errorf("invalid hex digit %q", b)
		}
		if hi < 0 {
			hi = v
			continue
		}
		buf = append(buf, byte(hi<<4|v))
		hi = -1
	}
	l.pos = start
	return String{}, l.errorf("unterminated hex string")
}

func (l *lexer) array(depth int) (Array, error) {
	l.pos++ // '['
	arr := Array{}
	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			return nil, l.errorf("unterminated array")
		}
		if l.data[l.pos] == ']' {
			l.pos++
			return arr, nil
		}
		obj, err := l.nested(depth + 1)
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
}

func (l *lexer) dict(depth int) (Dict, error) {
	l.pos += 2 // '<<'
	d := Dict{}
	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			return nil, l.errorf("unterminated dictionary")
		}
		if l.hasPrefix(">>") {
			l.pos += 2
			return d, nil
		}
		if l.data[l.pos] != '/' {
			return nil, l.errorf("dictionary key is not a name")
		}
		key := l.name()
		val, err := l.nested(depth + 1)
		if err != nil {
			return nil, err
		}
		d[key] = val
	}
}

// indirect parses "N G obj <object> [stream ... endstream] endobj".
func (l *lexer) indirect() (*IndirectObject, error) {
	num, err := strconv.Atoi(l.token())
	if err != nil {
		return nil, l.errorf("expected object number")
	}
	gen, err := strconv.Atoi(l.token())
	if err != nil {
		return nil, l.errorf("expected generation number")
	}
	if kw := l.token(); kw != "obj" {
		return nil, l.errorf("expected obj keyword, got %q", kw)
	}

	val, err := l.object()
	if err != nil {
		return nil, err
	}

	l.skipSpace()
	if l.hasPrefix("stream") {
		dict, ok := val.(Dict)
		if !ok {
			return nil, l.errorf("stream %d %d has no dictionary", num, gen)
		}
		data, err := l.streamData(dict)
		if err != nil {
			return nil, err
		}
		val = Stream{Dict: dict, Data: data}
	}

	l.skipSpace()
	if l.hasPrefix("endobj") {
		l.pos += len("endobj")
	}
	return &IndirectObject{Reference: Reference{Number: num, Generation: gen}, Value: val}, nil
}

// streamData reads the bytes between "stream" and "endstream". The declared
// /Length is trusted only when "endstream" follows it; otherwise the data is
// delimited by scanning for the keyword.
func (l *lexer) streamData(dict Dict) ([]byte, error) {
	l.pos += len("stream")
	if l.pos < len(l.data) && l.data[l.pos] == '\r' {
		l.pos++
	}
	if l.pos < len(l.data) && l.data[l.pos] == '\n' {
		l.pos++
	}
	start := l.pos

	length := int64(-1)
	switch v := dict["Length"].(type) {
	case Integer:
		length = int64(v)
	case Reference:
		if l.length != nil {
			if n, ok := l.length(v); ok {
				length = n
			}
		}
	}

	if length >= 0 && start+int(length) <= len(l.data) {
		end := start + int(length)
		p := end
		for p < len(l.data) && isSpace(l.data[p]) {
			p++
		}
		if bytes.HasPrefix(l.data[p:], []byte("endstream")) {
			l.pos = p + len("endstream")
			return l.data[start:end:end], nil
		}
	}

	idx := bytes.Index(l.data[start:], []byte("endstream"))
	if idx < 0 {
		return nil, l.errorf("stream without endstream")
	}
	end := start + idx
	if end > start && l.data[end-1] == '\n' {
		end--
	}
	if end > start && l.data[end-1] == '\r' {
		end--
	}
	l.pos = start + idx + len("endstream")
	return l.data[start:end:end], nil
}

func unhex(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10
	case b >= 'A' && b <= 'F':
		return int(b-'A') + 10
	}
	return -1
}
