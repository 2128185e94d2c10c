// Package pdfmerge merges PDF documents.
//
// Documents are staged as SourceDocuments in an ordered DocumentSet and
// concatenated page by page with Merge. A merge never changes its input: on
// failure no artifact is produced and the set is left as it was.
package pdfmerge

import (
	"bytes"
	"fmt"
	"math"
	"mime"
	"path"
	"strings"

	"github.com/minio/highwayhash"
)

const (
	// DefaultOutputName is the suggested file name of a merged document.
	DefaultOutputName = "merged-document.pdf"

	// DefaultMaxDocumentSize is the per-file limit applied at selection time.
	DefaultMaxDocumentSize int64 = 10 << 20

	// ContentType is the media type of PDF files.
	ContentType = "application/pdf"
)

var digestKey = []byte("0123456789ABCDEF0123456789ABCDEF")

// SourceDocument is a named PDF held in memory. It is immutable.
type SourceDocument struct {
	name   string
	data   []byte
	digest string
}

// NewSourceDocument copies data into a new document. The bytes are not
// parsed until a merge needs them.
func NewSourceDocument(name string, data []byte) (*SourceDocument, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: document name is empty", ErrInvalidSelection)
	}
	h, err := highwayhash.New64(digestKey)
	if err != nil {
		return nil, err
	}
	h.Write(data)
	return &SourceDocument{
		name:   name,
		data:   bytes.Clone(data),
		digest: fmt.Sprintf("%016x", h.Sum64()),
	}, nil
}

// Name returns the display name.
func (d *SourceDocument) Name() string { return d.name }

// Size returns the size in bytes.
func (d *SourceDocument) Size() int64 { return int64(len(d.data)) }

// SizeMB returns the size in MiB rounded to two decimals.
func (d *SourceDocument) SizeMB() float64 {
	return math.Round(float64(len(d.data))/(1<<20)*100) / 100
}

// Digest returns the 64-bit HighwayHash of the content as 16 hex digits.
func (d *SourceDocument) Digest() string { return d.digest }

// Bytes returns a copy of the content.
func (d *SourceDocument) Bytes() []byte { return bytes.Clone(d.data) }

// NewReader returns a reader over the content without copying it.
func (d *SourceDocument) NewReader() *bytes.Reader { return bytes.NewReader(d.data) }

func (d *SourceDocument) String() string {
	return fmt.Sprintf("%s (%.2f MB)", d.name, d.SizeMB())
}

// IsPDF reports whether a file offered for selection is a PDF, judged by
// its media type or, failing that, its extension.
func IsPDF(name, contentType string) bool {
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil && mt == ContentType {
			return true
		}
	}
	return strings.EqualFold(path.Ext(name), ".pdf")
}

// CheckSelection returns an ErrInvalidSelection error if a file may not be
// added: it is not a PDF, or it is larger than maxSize when maxSize > 0.
func CheckSelection(name, contentType string, size, maxSize int64) error {
	if !IsPDF(name, contentType) {
		return fmt.Errorf("%w: %s is not a PDF file", ErrInvalidSelection, name)
	}
	if maxSize > 0 && size > maxSize {
		return fmt.Errorf("%w: %s is %.2f MB, the limit is %.2f MB", ErrInvalidSelection,
			name, float64(size)/(1<<20), float64(maxSize)/(1<<20))
	}
	return nil
}
