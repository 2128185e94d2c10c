package pdfmerge_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/lvillar/pdfmerge"
	"github.com/lvillar/pdfmerge/builder"
)

func TestMergePageCountAndOrder(t *testing.T) {
	docs := []*pdfmerge.SourceDocument{
		newDoc(t, "a.pdf", a4, a4),
		newDoc(t, "b.pdf", letter),
		newDoc(t, "c.pdf", a5),
	}
	for _, engine := range []builder.Engine{builder.ImportEngine{}, builder.PassthroughEngine{}} {
		t.Run(engine.Name(), func(t *testing.T) {
			art, err := pdfmerge.Merge(context.Background(), docs, pdfmerge.WithEngine(engine))
			if err != nil {
				t.Fatalf("merging: %v", err)
			}
			assertPages(t, art, a4, a4, letter, a5)

			src := art.Sources()
			if len(src) != 3 || src[1].Name != "b.pdf" || src[1].FirstPage != 3 || src[2].Pages != 1 {
				t.Errorf("sources = %+v", src)
			}
		})
	}
}

func TestMergeTwoSinglePages(t *testing.T) {
	a, b := newDoc(t, "a.pdf", letter), newDoc(t, "b.pdf", a5)

	art, err := pdfmerge.Merge(context.Background(), []*pdfmerge.SourceDocument{a, b})
	if err != nil {
		t.Fatal(err)
	}
	assertPages(t, art, letter, a5)

	art, err = pdfmerge.Merge(context.Background(), []*pdfmerge.SourceDocument{b, a})
	if err != nil {
		t.Fatal(err)
	}
	assertPages(t, art, a5, letter)
}

func TestMergePageContent(t *testing.T) {
	alpha, beta := newDoc(t, "alpha.pdf", a4, letter), newDoc(t, "beta.pdf", a5)
	tests := []struct {
		docs []*pdfmerge.SourceDocument
		want []string
	}{
		{[]*pdfmerge.SourceDocument{alpha, beta}, []string{"alpha.pdf page 1", "alpha.pdf page 2", "beta.pdf page 1"}},
		{[]*pdfmerge.SourceDocument{beta, alpha}, []string{"beta.pdf page 1", "alpha.pdf page 1", "alpha.pdf page 2"}},
	}
	for _, engine := range []builder.Engine{builder.ImportEngine{}, builder.PassthroughEngine{}} {
		t.Run(engine.Name(), func(t *testing.T) {
			for _, tt := range tests {
				art, err := pdfmerge.Merge(context.Background(), tt.docs, pdfmerge.WithEngine(engine))
				if err != nil {
					t.Fatalf("merging: %v", err)
				}
				texts := pageTexts(t, art)
				if len(texts) != len(tt.want) {
					t.Fatalf("got %d pages, want %d", len(texts), len(tt.want))
				}
				for i, want := range tt.want {
					if !strings.Contains(texts[i], want) {
						t.Errorf("page %d: text %q does not contain %q", i+1, texts[i], want)
					}
				}
				// A page never shows another document's label.
				if strings.Contains(texts[0], tt.docs[1].Name()) {
					t.Errorf("page 1 shows %s: %q", tt.docs[1].Name(), texts[0])
				}
			}
		})
	}
}

func TestMergeDefaultKeepsEveryDocument(t *testing.T) {
	docs := []*pdfmerge.SourceDocument{newDoc(t, "first.pdf", a4), newDoc(t, "second.pdf", a4)}
	art, err := pdfmerge.Merge(context.Background(), docs)
	if err != nil {
		t.Fatal(err)
	}
	texts := pageTexts(t, art)
	if len(texts) != 2 || !strings.Contains(texts[0], "first.pdf") || !strings.Contains(texts[1], "second.pdf") {
		t.Errorf("page texts = %q", texts)
	}
}

// stuckEngine blocks in Render until released, ignoring ctx.
type stuckEngine struct{ release chan struct{} }

func (stuckEngine) Name() string { return "stuck" }

func (e stuckEngine) Render(context.Context, []builder.Source, []builder.PageRef, io.Writer) error {
	<-e.release
	return errors.New("released")
}

func TestMergeTimeoutAbandonsStuckEngine(t *testing.T) {
	engine := stuckEngine{release: make(chan struct{})}
	defer close(engine.release)
	docs := []*pdfmerge.SourceDocument{newDoc(t, "a.pdf", a4), newDoc(t, "b.pdf", a4)}

	done := make(chan error, 1)
	go func() {
		_, err := pdfmerge.Merge(context.Background(), docs,
			pdfmerge.WithEngine(engine), pdfmerge.WithTimeout(50*time.Millisecond))
		done <- err
	}()
	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("got %v, want context.DeadlineExceeded", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Merge did not return after the timeout")
	}
}

func TestMergeReportsSignatures(t *testing.T) {
	data := signedPDF()
	signed, err := pdfmerge.NewSourceDocument("signed.pdf", data)
	if err != nil {
		t.Fatal(err)
	}
	docs := []*pdfmerge.SourceDocument{signed, newDoc(t, "plain.pdf", a4)}
	art, err := pdfmerge.Merge(context.Background(), docs, pdfmerge.WithEngine(builder.ImportEngine{}))
	if err != nil {
		t.Fatalf("merging: %v", err)
	}

	src := art.Sources()
	if len(src) != 2 || len(src[0].Signatures) != 1 || src[1].Signatures != nil {
		t.Fatalf("sources = %+v", src)
	}
	sig := src[0].Signatures[0]
	if sig.Field != "Approval" || sig.Signer != "Jane Doe" || sig.Reason != "Approved" || sig.Location != "Madrid" {
		t.Errorf("signature = %+v", sig)
	}
	if want := time.Date(2024, time.January, 31, 12, 0, 0, 0, time.UTC); !sig.SignedAt.Equal(want) {
		t.Errorf("SignedAt = %v, want %v", sig.SignedAt, want)
	}
	if sig.CoversDocument != (len(data) == 1150) {
		t.Errorf("CoversDocument = %v for a %d byte file", sig.CoversDocument, len(data))
	}
	if texts := pageTexts(t, art); !strings.Contains(texts[0], "Signed page") {
		t.Errorf("page 1 text = %q", texts[0])
	}
}

func TestMergeRequiresTwoDocuments(t *testing.T) {
	junk, _ := pdfmerge.NewSourceDocument("junk.pdf", []byte("not a pdf"))
	for _, docs := range [][]*pdfmerge.SourceDocument{nil, {junk}} {
		art, err := pdfmerge.Merge(context.Background(), docs)
		if !errors.Is(err, pdfmerge.ErrInvalidSelection) {
			t.Errorf("%d docs: err = %v, want ErrInvalidSelection", len(docs), err)
		}
		// Rejected before parsing, so the junk is never reported as malformed.
		if errors.Is(err, pdfmerge.ErrMalformedDocument) || art != nil {
			t.Errorf("%d docs: got artifact %v, err %v", len(docs), art, err)
		}
	}
}

func TestMergeMalformedDocument(t *testing.T) {
	junk, _ := pdfmerge.NewSourceDocument("broken.pdf", []byte("%PDF-1.4\ngarbage"))
	set, err := pdfmerge.NewDocumentSet(newDoc(t, "a.pdf", a4), junk, newDoc(t, "c.pdf", a4))
	if err != nil {
		t.Fatal(err)
	}
	before := set.Documents()

	art, err := set.Merge(context.Background(), nil)
	if art != nil {
		t.Error("malformed merge produced an artifact")
	}
	if !errors.Is(err, pdfmerge.ErrMalformedDocument) {
		t.Fatalf("err = %v, want ErrMalformedDocument", err)
	}
	var de *pdfmerge.DocumentError
	if !errors.As(err, &de) || de.Index != 1 || de.Name != "broken.pdf" {
		t.Errorf("DocumentError = %+v", de)
	}

	after := set.Documents()
	if len(after) != len(before) {
		t.Fatalf("set changed size: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("entry %d changed", i)
		}
	}
}

func TestMergeEncryptedDocument(t *testing.T) {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetProtection(gofpdf.CnProtectPrint, "user", "owner")
	pdf.AddPage()
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatal(err)
	}
	locked, _ := pdfmerge.NewSourceDocument("locked.pdf", buf.Bytes())

	_, err := pdfmerge.Merge(context.Background(), []*pdfmerge.SourceDocument{newDoc(t, "a.pdf", a4), locked})
	if !errors.Is(err, pdfmerge.ErrMalformedDocument) || !errors.Is(err, pdfmerge.ErrEncrypted) {
		t.Errorf("err = %v, want ErrMalformedDocument wrapping ErrEncrypted", err)
	}
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	a, b := newDoc(t, "a.pdf", a4, letter), newDoc(t, "b.pdf", a5)
	origA, origB := a.Bytes(), b.Bytes()

	first, err := pdfmerge.Merge(context.Background(), []*pdfmerge.SourceDocument{a, b})
	if err != nil {
		t.Fatal(err)
	}
	second, err := pdfmerge.Merge(context.Background(), []*pdfmerge.SourceDocument{a, b})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Bytes(), origA) || !bytes.Equal(b.Bytes(), origB) {
		t.Error("merge modified its input")
	}
	if first.PageCount() != second.PageCount() {
		t.Errorf("page counts differ: %d vs %d", first.PageCount(), second.PageCount())
	}
	assertPages(t, second, a4, letter, a5)
}

func TestMergeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	art, err := pdfmerge.Merge(ctx, []*pdfmerge.SourceDocument{newDoc(t, "a.pdf", a4), newDoc(t, "b.pdf", a4)})
	if !errors.Is(err, context.Canceled) || art != nil {
		t.Errorf("got %v, %v; want nil, context.Canceled", art, err)
	}
}

func TestMergeProgress(t *testing.T) {
	var calls [][2]int
	docs := []*pdfmerge.SourceDocument{newDoc(t, "a.pdf", a4), newDoc(t, "b.pdf", a4), newDoc(t, "c.pdf", a4)}
	_, err := pdfmerge.Merge(context.Background(), docs, pdfmerge.WithProgress(func(done, total int) {
		calls = append(calls, [2]int{done, total})
	}))
	if err != nil {
		t.Fatal(err)
	}
	want := [][2]int{{1, 3}, {2, 3}, {3, 3}}
	if len(calls) != len(want) {
		t.Fatalf("progress calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %v, want %v", i, calls[i], want[i])
		}
	}
}

func TestMergeManifest(t *testing.T) {
	docs := []*pdfmerge.SourceDocument{newDoc(t, "a.pdf", letter), newDoc(t, "b.pdf", a5)}
	art, err := pdfmerge.Merge(context.Background(), docs, pdfmerge.WithManifest(true))
	if err != nil {
		t.Fatal(err)
	}
	assertPages(t, art, letter, a5, a4)
	if len(art.Sources()) != 2 {
		t.Errorf("manifest counted as a source: %+v", art.Sources())
	}
}

func TestMergeOptions(t *testing.T) {
	docs := []*pdfmerge.SourceDocument{newDoc(t, "a.pdf", a4), newDoc(t, "b.pdf", a4)}

	art, err := pdfmerge.Merge(context.Background(), docs,
		pdfmerge.WithOutputName("out.pdf"), pdfmerge.WithStrictValidation(true))
	if err != nil {
		t.Fatal(err)
	}
	if art.Name() != "out.pdf" {
		t.Errorf("Name = %q", art.Name())
	}

	art, err = pdfmerge.Merge(context.Background(), docs)
	if err != nil {
		t.Fatal(err)
	}
	if art.Name() != pdfmerge.DefaultOutputName {
		t.Errorf("default Name = %q", art.Name())
	}

	var buf bytes.Buffer
	n, err := art.WriteTo(&buf)
	if err != nil || n != int64(art.Len()) || !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Errorf("WriteTo wrote %d bytes, err %v", n, err)
	}

	_, err = pdfmerge.Merge(context.Background(), docs, pdfmerge.WithMaxDocumentSize(10))
	if !errors.Is(err, pdfmerge.ErrInvalidSelection) {
		t.Errorf("size limit: err = %v, want ErrInvalidSelection", err)
	}
}

func TestMergerReuse(t *testing.T) {
	m := pdfmerge.NewMerger(pdfmerge.WithEngine(builder.PassthroughEngine{}))
	docs := []*pdfmerge.SourceDocument{newDoc(t, "a.pdf", a4), newDoc(t, "b.pdf", letter)}
	for i := 0; i < 2; i++ {
		art, err := m.Merge(context.Background(), docs)
		if err != nil {
			t.Fatalf("merge %d: %v", i, err)
		}
		assertPages(t, art, a4, letter)
	}
}
