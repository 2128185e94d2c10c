package builder

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/boombuler/barcode/qr"
	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/barcode"

	"github.com/lvillar/pdfmerge/internal/layout"
)

// ManifestEntry describes one merged document on the manifest page.
type ManifestEntry struct {
	Name   string
	Pages  int
	Size   int64 // bytes
	Digest string
}

// maxQRDigests bounds the QR payload; larger sets are listed only in the table.
const maxQRDigests = 100

const (
	manifestMargin = 36.0
	qrSize         = 96.0
)

// RenderManifest renders a summary of entries as a standalone PDF: a table
// of the documents, a QR code carrying their digests and a PDF417 code with
// the totals.
func RenderManifest(entries []ManifestEntry) ([]byte, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("builder: manifest has no entries")
	}

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(manifestMargin, manifestMargin, manifestMargin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(FixedDate)
	pdf.SetModificationDate(FixedDate)
	pdf.SetTitle("Merge manifest", false)
	pdf.AddPage()
	pageW, _ := pdf.GetPageSize()

	total := 0
	rows := make([][]string, len(entries))
	digests := make([]string, 0, min(len(entries), maxQRDigests))
	for i, e := range entries {
		total += e.Pages
		rows[i] = []string{
			fmt.Sprintf("%d", i+1),
			e.Name,
			fmt.Sprintf("%d", e.Pages),
			fmt.Sprintf("%.2f", float64(e.Size)/(1<<20)),
			e.Digest,
		}
		if i < maxQRDigests {
			digests = append(digests, e.Digest)
		}
	}

	qrText := fmt.Sprintf("pdfmerge docs=%d pages=%d\n%s", len(entries), total, strings.Join(digests, "\n"))
	qrKey := barcode.RegisterQR(pdf, qrText, qr.M, qr.Auto)
	barcode.Barcode(pdf, qrKey, pageW-manifestMargin-qrSize, manifestMargin, qrSize, qrSize, false)

	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(manifestMargin, manifestMargin)
	pdf.CellFormat(pageW-3*manifestMargin-qrSize, 20, "Merge manifest", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetX(manifestMargin)
	pdf.CellFormat(pageW-3*manifestMargin-qrSize, 14,
		fmt.Sprintf("%d documents, %d pages", len(entries), total), "", 1, "L", false, 0, "")

	pdfKey := barcode.RegisterPdf417(pdf, fmt.Sprintf("DOCS:%d PAGES:%d", len(entries), total), 4, 2)
	barcode.Barcode(pdf, pdfKey, manifestMargin, manifestMargin+40, 180, 40, false)

	pdf.SetXY(manifestMargin, manifestMargin+qrSize+16)
	tbl := layout.Table{
		Columns: []layout.Column{
			{Header: "#", Width: 28, Align: "R"},
			{Header: "Document"},
			{Header: "Pages", Width: 44, Align: "R"},
			{Header: "MB", Width: 48, Align: "R"},
			{Header: "Digest", Width: 112},
		},
		Style: layout.DefaultStyle,
	}
	if err := tbl.Render(pdf, rows); err != nil {
		return nil, fmt.Errorf("builder: manifest: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("builder: manifest: %w", err)
	}
	return buf.Bytes(), nil
}
