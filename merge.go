package pdfmerge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/sirupsen/logrus"

	"github.com/lvillar/pdfmerge/builder"
	"github.com/lvillar/pdfmerge/reader"
	"github.com/lvillar/pdfmerge/sign"
)

// SourceSummary records where one input landed in the merged document.
type SourceSummary struct {
	Name      string `json:"name"`
	Digest    string `json:"digest"`
	Pages     int    `json:"pages"`
	FirstPage int    `json:"firstPage"` // 1-based page number in the output
	// Signatures lists the input's digital signatures. They are not
	// carried into the merged document.
	Signatures []SignatureSummary `json:"signatures,omitempty"`
}

// SignatureSummary describes one signature of an input document.
type SignatureSummary struct {
	Field    string    `json:"field"`
	Signer   string    `json:"signer,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	Location string    `json:"location,omitempty"`
	SignedAt time.Time `json:"signedAt,omitzero"`
	// CoversDocument is false when the input was changed after signing.
	CoversDocument bool `json:"coversDocument"`
}

func summarizeSignatures(sigs []sign.Signature, size int64) []SignatureSummary {
	out := make([]SignatureSummary, len(sigs))
	for i, sig := range sigs {
		out[i] = SignatureSummary{
			Field:          sig.Field,
			Signer:         sig.Signer,
			Reason:         sig.Reason,
			Location:       sig.Location,
			SignedAt:       sig.SignedAt,
			CoversDocument: sig.CoversDocument(size),
		}
	}
	return out
}

// Artifact is the result of a merge.
type Artifact struct {
	name      string
	data      []byte
	pageCount int
	sources   []SourceSummary
}

// Name returns the suggested file name.
func (a *Artifact) Name() string { return a.name }

// Bytes returns a copy of the merged PDF.
func (a *Artifact) Bytes() []byte { return bytes.Clone(a.data) }

// Len returns the size of the merged PDF in bytes.
func (a *Artifact) Len() int { return len(a.data) }

// PageCount returns the number of pages in the merged PDF.
func (a *Artifact) PageCount() int { return a.pageCount }

// Sources returns a summary per input document, in merge order.
func (a *Artifact) Sources() []SourceSummary { return slices.Clone(a.sources) }

// NewReader returns a reader over the merged PDF.
func (a *Artifact) NewReader() *bytes.Reader { return bytes.NewReader(a.data) }

// WriteTo writes the merged PDF to w.
func (a *Artifact) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(a.data)
	return int64(n), err
}

// Merger merges documents with a fixed configuration. It is safe for
// concurrent use.
type Merger struct {
	cfg mergeConfig
}

// NewMerger returns a Merger configured by opts.
func NewMerger(opts ...Option) *Merger {
	cfg := defaultMergeConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Merger{cfg: cfg}
}

// Merge concatenates docs with the default configuration adjusted by opts.
func Merge(ctx context.Context, docs []*SourceDocument, opts ...Option) (*Artifact, error) {
	return NewMerger(opts...).Merge(ctx, docs)
}

// Merge concatenates the pages of docs in order. At least two documents are
// required. If any document fails to parse the whole merge fails with a
// *DocumentError and no artifact is returned. Cancelling ctx aborts the merge
// and returns ctx.Err(), even while the engine is still rendering.
func (m *Merger) Merge(ctx context.Context, docs []*SourceDocument) (*Artifact, error) {
	log := m.cfg.log.WithField("engine", m.cfg.engine.Name())
	if m.cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.timeout)
		defer cancel()
	}

	if len(docs) < 2 {
		return nil, newOpError("Merge", fmt.Errorf("%w: at least 2 documents are required, got %d",
			ErrInvalidSelection, len(docs)))
	}
	for i, d := range docs {
		if d == nil {
			return nil, newOpError("Merge", fmt.Errorf("%w: document %d is nil", ErrInvalidSelection, i))
		}
		if m.cfg.maxSize > 0 && d.Size() > m.cfg.maxSize {
			return nil, newOpError("Merge", fmt.Errorf("%w: %s exceeds %d bytes",
				ErrInvalidSelection, d.Name(), m.cfg.maxSize))
		}
	}

	b := builder.New(m.cfg.engine)
	sources := make([]SourceSummary, 0, len(docs))
	for i, d := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := m.parse(d)
		if err != nil {
			log.WithFields(logrus.Fields{
				"document": d.Name(),
				"index":    i,
			}).WithError(err).Warn("document rejected")
			return nil, &DocumentError{Index: i, Name: d.Name(), Err: err}
		}
		first := b.NumPages() + 1
		n, err := b.AddDocument(d.Name(), d.data, doc)
		if err != nil {
			return nil, newOpError("Merge", err)
		}
		summary := SourceSummary{Name: d.Name(), Digest: d.Digest(), Pages: n, FirstPage: first}
		if sigs, err := sign.Find(doc); err == nil && len(sigs) > 0 {
			summary.Signatures = summarizeSignatures(sigs, d.Size())
			log.WithFields(logrus.Fields{
				"document":   d.Name(),
				"signatures": len(sigs),
			}).Warn("digital signatures are dropped by merging")
		}
		sources = append(sources, summary)
		log.WithFields(logrus.Fields{
			"document": d.Name(),
			"index":    i,
			"pages":    n,
		}).Debug("document added")
		m.cfg.progress(i+1, len(docs))
	}

	if m.cfg.manifest {
		if err := addManifest(b, docs, sources); err != nil {
			return nil, serializationError(err)
		}
	}

	data, err := b.Build(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.WithError(ctxErr).Warn("merge abandoned")
			return nil, ctxErr
		}
		log.WithError(err).Error("serialization failed")
		return nil, serializationError(err)
	}

	log.WithFields(logrus.Fields{
		"documents": len(docs),
		"pages":     b.NumPages(),
		"bytes":     len(data),
	}).Info("documents merged")
	return &Artifact{
		name:      m.cfg.outputName,
		data:      data,
		pageCount: b.NumPages(),
		sources:   sources,
	}, nil
}

func (m *Merger) parse(d *SourceDocument) (*reader.Document, error) {
	doc, err := reader.Parse(d.data)
	if err != nil {
		return nil, err
	}
	if m.cfg.strict {
		if err := validate(d); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// validate runs pdfcpu's validator over d.
func validate(d *SourceDocument) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdfcpu validation: %v", r)
		}
	}()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.Validate(d.NewReader(), conf); err != nil {
		return fmt.Errorf("pdfcpu validation: %w", err)
	}
	return nil
}

func addManifest(b *builder.Builder, docs []*SourceDocument, sources []SourceSummary) error {
	entries := make([]builder.ManifestEntry, len(docs))
	for i, d := range docs {
		entries[i] = builder.ManifestEntry{
			Name:   d.Name(),
			Pages:  sources[i].Pages,
			Size:   d.Size(),
			Digest: d.Digest(),
		}
	}
	data, err := builder.RenderManifest(entries)
	if err != nil {
		return err
	}
	_, err = b.AddPDF("manifest", data)
	return err
}
