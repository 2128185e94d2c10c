package reader

import (
	"bytes"
	"strconv"
)

type xrefKind uint8

const (
	xrefFree xrefKind = iota
	xrefOffset
	xrefCompressed
)

// xrefEntry locates one object: either at a byte offset in the file, or at an
// index inside an object stream.
type xrefEntry struct {
	kind       xrefKind
	offset     int64 // xrefOffset
	generation int
	stream     int // xrefCompressed: object number of the ObjStm
	index      int // xrefCompressed: position inside the ObjStm
}

// xrefTable maps object numbers to their locations.
type xrefTable map[int]xrefEntry

// merge copies entries from older into t without overriding newer ones.
func (t xrefTable) merge(older xrefTable) {
	for num, e := range older {
		if _, ok := t[num]; !ok {
			t[num] = e
		}
	}
}

// findStartXRef reads the offset following the last "startxref" keyword.
func findStartXRef(data []byte) (int64, error) {
	tail := data[max(0, len(data)-2048):]
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, syntaxErrorf(int64(len(data)), "startxref not found")
	}
	base := int64(len(data) - len(tail) + idx + len("startxref"))
	l := newLexer(data[base:], base)
	tok := l.token()
	offset, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return 0, syntaxErrorf(base, "invalid startxref offset %q", tok)
	}
	return offset, nil
}

// loadXRef reads the cross-reference chain starting at offset, following
// /Prev and hybrid /XRefStm links. The first trailer read is returned.
func loadXRef(data []byte, offset int64) (xrefTable, Dict, error) {
	table := make(xrefTable)
	var trailer Dict
	seen := make(map[int64]bool)

	for {
		if seen[offset] {
			return nil, nil, syntaxErrorf(offset, "xref chain loops")
		}
		seen[offset] = true

		section, dict, err := readXRefSection(data, offset)
		if err != nil {
			return nil, nil, err
		}
		table.merge(section)
		if trailer == nil {
			trailer = dict
		}

		if stm, ok := dict.Int("XRefStm"); ok && !seen[stm] {
			seen[stm] = true
			if hidden, _, err := readXRefStream(data, stm); err == nil {
				table.merge(hidden)
			}
		}

		prev, ok := dict.Int("Prev")
		if !ok {
			return table, trailer, nil
		}
		offset = prev
	}
}

func readXRefSection(data []byte, offset int64) (xrefTable, Dict, error) {
	if offset < 0 || offset >= int64(len(data)) {
		return nil, nil, syntaxErrorf(offset, "xref offset out of bounds")
	}
	l := newLexer(data[offset:], offset)
	l.skipSpace()
	if !l.hasPrefix("xref") {
		return readXRefStream(data, offset)
	}
	l.token()

	table := make(xrefTable)
	for {
		start := l.pos
		tok := l.token()
		if tok == "trailer" {
			break
		}
		if tok == "" {
			return nil, nil, l.errorf("xref table without trailer")
		}
		first, err := strconv.Atoi(tok)
		if err != nil {
			l.pos = start
			return nil, nil, l.errorf("bad xref subsection start %q", tok)
		}
		count, err := strconv.Atoi(l.token())
		if err != nil || count < 0 {
			return nil, nil, l.errorf("bad xref subsection count")
		}
		for i := 0; i < count; i++ {
			off, err1 := strconv.ParseInt(l.token(), 10, 64)
			gen, err2 := strconv.Atoi(l.token())
			kind := l.token()
			if err1 != nil || err2 != nil || (kind != "n" && kind != "f") {
				return nil, nil, l.errorf("bad xref entry %d", first+i)
			}
			if _, ok := table[first+i]; ok {
				continue
			}
			e := xrefEntry{kind: xrefFree, generation: gen}
			if kind == "n" {
				e.kind, e.offset = xrefOffset, off
			}
			table[first+i] = e
		}
	}

	obj, err := l.object()
	if err != nil {
		return nil, nil, err
	}
	trailer, ok := obj.(Dict)
	if !ok {
		return nil, nil, l.errorf("trailer is not a dictionary")
	}
	return table, trailer, nil
}

// readXRefStream parses a PDF 1.5 cross-reference stream. Its dictionary
// doubles as the trailer.
func readXRefStream(data []byte, offset int64) (xrefTable, Dict, error) {
	if offset < 0 || offset >= int64(len(data)) {
		return nil, nil, syntaxErrorf(offset, "xref stream offset out of bounds")
	}
	l := newLexer(data[offset:], offset)
	obj, err := l.indirect()
	if err != nil {
		return nil, nil, err
	}
	stream, ok := obj.Value.(Stream)
	if !ok || stream.Dict.Name("Type") != "XRef" {
		return nil, nil, syntaxErrorf(offset, "expected xref stream")
	}
	raw, err := decodeStream(stream)
	if err != nil {
		return nil, nil, syntaxErrorf(offset, "xref stream: %v", err)
	}

	w := stream.Dict.Array("W")
	if len(w) != 3 {
		return nil, nil, syntaxErrorf(offset, "xref stream /W must have 3 entries")
	}
	var widths [3]int
	for i, v := range w {
		n, ok := asInt(v)
		if !ok || n < 0 || n > 8 {
			return nil, nil, syntaxErrorf(offset, "xref stream /W entry %d invalid", i)
		}
		widths[i] = int(n)
	}
	rowLen := widths[0] + widths[1] + widths[2]
	if rowLen == 0 {
		return nil, nil, syntaxErrorf(offset, "xref stream rows are empty")
	}

	var index []int64
	if arr := stream.Dict.Array("Index"); arr != nil {
		for _, v := range arr {
			n, _ := asInt(v)
			index = append(index, n)
		}
	} else {
		size, _ := stream.Dict.Int("Size")
		index = []int64{0, size}
	}

	table := make(xrefTable)
	row := 0
	for i := 0; i+1 < len(index); i += 2 {
		first, count := int(index[i]), int(index[i+1])
		for j := 0; j < count; j++ {
			if (row+1)*rowLen > len(raw) {
				return table, stream.Dict, nil
			}
			fields := raw[row*rowLen : (row+1)*rowLen]
			row++

			typ := int64(1)
			if widths[0] > 0 {
				typ = field(fields[:widths[0]])
			}
			f2 := field(fields[widths[0] : widths[0]+widths[1]])
			f3 := field(fields[widths[0]+widths[1]:])

			num := first + j
			if _, ok := table[num]; ok {
				continue
			}
			switch typ {
			case 0:
				table[num] = xrefEntry{kind: xrefFree, generation: int(f3)}
			case 1:
				table[num] = xrefEntry{kind: xrefOffset, offset: f2, generation: int(f3)}
			case 2:
				table[num] = xrefEntry{kind: xrefCompressed, stream: int(f2), index: int(f3)}
			}
		}
	}
	return table, stream.Dict, nil
}

// field decodes a big-endian unsigned integer.
func field(b []byte) int64 {
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}
