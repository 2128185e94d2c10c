package reader

import (
	"bytes"
	"compress/zlib"
	"encoding/ascii85"
	"encoding/hex"
	"fmt"
	"io"
)

// maxDecoded caps the output of a single filter to guard against
// decompression bombs.
const maxDecoded = 256 << 20

// decodeStream applies the stream's filter chain.
func decodeStream(s Stream) ([]byte, error) {
	var filters []Name
	var params []Dict
	switch f := s.Dict["Filter"].(type) {
	case nil:
		return s.Data, nil
	case Name:
		filters = []Name{f}
		params = []Dict{s.Dict.Dict("DecodeParms")}
	case Array:
		parms := s.Dict.Array("DecodeParms")
		for i, item := range f {
			n, ok := item.(Name)
			if !ok {
				return nil, fmt.Errorf("filter array contains %T", item)
			}
			filters = append(filters, n)
			var p Dict
			if i < len(parms) {
				p, _ = parms[i].(Dict)
			}
			params = append(params, p)
		}
	default:
		return nil, fmt.Errorf("unexpected /Filter type %T", f)
	}

	data := s.Data
	for i, f := range filters {
		var err error
		if data, err = applyFilter(f, params[i], data); err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
	}
	return data, nil
}

func applyFilter(name Name, params Dict, data []byte) ([]byte, error) {
	switch name {
	case "FlateDecode", "Fl":
		out, err := flateDecode(data)
		if err != nil {
			return nil, err
		}
		return unpredict(out, params)
	case "ASCIIHexDecode", "AHx":
		return asciiHexDecode(data)
	case "ASCII85Decode", "A85":
		return ascii85Decode(data)
	default:
		return nil, fmt.Errorf("unsupported filter")
	}
}

func flateDecode(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, maxDecoded+1))
	if n > maxDecoded {
		return nil, fmt.Errorf("decoded data exceeds %d bytes", maxDecoded)
	}
	// Truncated streams are common; keep what inflated cleanly.
	if err != nil && buf.Len() == 0 {
		return nil, err
	}
	return buf.Bytes(), nil
}

// unpredict reverses a /Predictor >= 10 (PNG) row encoding.
func unpredict(data []byte, params Dict) ([]byte, error) {
	predictor, _ := params.Int("Predictor")
	if predictor < 10 {
		return data, nil
	}
	columns := int64(1)
	if c, ok := params.Int("Columns"); ok {
		columns = c
	}
	colors := int64(1)
	if c, ok := params.Int("Colors"); ok {
		colors = c
	}
	bpc := int64(8)
	if b, ok := params.Int("BitsPerComponent"); ok {
		bpc = b
	}
	if columns < 1 || colors < 1 || bpc < 1 {
		return nil, fmt.Errorf("invalid predictor parameters")
	}

	bpp := int(max(1, (colors*bpc+7)/8))
	rowLen := int((columns*colors*bpc + 7) / 8)
	stride := rowLen + 1
	if len(data)%stride != 0 {
		data = data[:len(data)-len(data)%stride]
	}

	out := make([]byte, 0, len(data)/stride*rowLen)
	prev := make([]byte, rowLen)
	for off := 0; off < len(data); off += stride {
		typ, row := data[off], data[off+1:off+stride]
		cur := make([]byte, rowLen)
		for i := range row {
			var left, upLeft byte
			if i >= bpp {
				left, upLeft = cur[i-bpp], prev[i-bpp]
			}
			up := prev[i]
			switch typ {
			case 0:
				cur[i] = row[i]
			case 1:
				cur[i] = row[i] + left
			case 2:
				cur[i] = row[i] + up
			case 3:
				cur[i] = row[i] + byte((int(left)+int(up))/2)
			case 4:
				cur[i] = row[i] + paeth(left, up, upLeft)
			default:
				return nil, fmt.Errorf("unknown PNG filter type %d", typ)
			}
		}
		out = append(out, cur...)
		prev = cur
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	}
	return c
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// asciiHexDecode decodes hex digits up to the '>' terminator.
func asciiHexDecode(data []byte) ([]byte, error) {
	src := make([]byte, 0, len(data))
	for _, b := range data {
		if b == '>' {
			break
		}
		if !isSpace(b) {
			src = append(src, b)
		}
	}
	if len(src)%2 != 0 {
		src = append(src, '0')
	}
	dst := make([]byte, hex.DecodedLen(len(src)))
	if _, err := hex.Decode(dst, src); err != nil {
		return nil, err
	}
	return dst, nil
}

// ascii85Decode decodes data up to the "~>" terminator.
func ascii85Decode(data []byte) ([]byte, error) {
	if end := bytes.Index(data, []byte("~>")); end >= 0 {
		data = data[:end]
	}
	data = bytes.TrimPrefix(bytes.TrimSpace(data), []byte("<~"))
	return io.ReadAll(ascii85.NewDecoder(bytes.NewReader(data)))
}
