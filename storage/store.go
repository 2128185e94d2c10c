// Package storage loads source documents from and saves merged documents to
// any location viant/afs understands: local paths, file://, mem:// and the
// cloud schemes registered with afs.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"golang.org/x/sync/errgroup"

	"github.com/lvillar/pdfmerge"
)

// DefaultConcurrency bounds parallel downloads in LoadAll.
const DefaultConcurrency = 4

// Store moves documents through an afs.Service.
type Store struct {
	fs          afs.Service
	maxSize     int64
	concurrency int
	log         *logrus.Entry
}

// Option configures a Store.
type Option func(*Store)

// WithService replaces the default afs service.
func WithService(fs afs.Service) Option {
	return func(s *Store) {
		if fs != nil {
			s.fs = fs
		}
	}
}

// WithMaxDocumentSize sets the per-file limit. Zero disables it.
func WithMaxDocumentSize(n int64) Option {
	return func(s *Store) { s.maxSize = n }
}

// WithConcurrency sets how many downloads LoadAll runs at once.
func WithConcurrency(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *logrus.Entry) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// New returns a Store. By default it enforces
// pdfmerge.DefaultMaxDocumentSize and logs nothing.
func New(opts ...Option) *Store {
	l := logrus.New()
	l.SetOutput(io.Discard)
	s := &Store{
		fs:          afs.New(),
		maxSize:     pdfmerge.DefaultMaxDocumentSize,
		concurrency: DefaultConcurrency,
		log:         logrus.NewEntry(l),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rejected is an input LoadAll did not accept.
type Rejected struct {
	URL string
	Err error
}

// Load downloads the PDF at URL. Names without a .pdf extension are
// rejected before anything is downloaded; content that is not PDF or that
// exceeds the size limit is rejected after. Rejections match
// pdfmerge.ErrInvalidSelection.
func (s *Store) Load(ctx context.Context, URL string) (*pdfmerge.SourceDocument, error) {
	name := path.Base(url.Path(URL))
	if err := pdfmerge.CheckSelection(name, "", 0, 0); err != nil {
		return nil, err
	}
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("storage: download %s: %w", URL, err)
	}
	if err := pdfmerge.CheckSelection(name, pdfmerge.ContentType, int64(len(data)), s.maxSize); err != nil {
		return nil, err
	}
	if !bytes.Contains(data[:min(len(data), 1024)], []byte("%PDF-")) {
		return nil, fmt.Errorf("%w: %s has no PDF header", pdfmerge.ErrInvalidSelection, name)
	}
	return pdfmerge.NewSourceDocument(name, data)
}

// LoadAll loads URLs concurrently. Accepted documents keep the input order.
// A failed input is reported in rejected and does not stop the others; the
// returned error is only set when ctx ends the load.
func (s *Store) LoadAll(ctx context.Context, URLs []string) (docs []*pdfmerge.SourceDocument, rejected []Rejected, err error) {
	loaded := make([]*pdfmerge.SourceDocument, len(URLs))
	errs := make([]error, len(URLs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, u := range URLs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			loaded[i], errs[i] = s.Load(gctx, u)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	for i, u := range URLs {
		if errs[i] != nil {
			s.log.WithField("url", u).WithError(errs[i]).Info("input ignored")
			rejected = append(rejected, Rejected{URL: u, Err: errs[i]})
			continue
		}
		docs = append(docs, loaded[i])
	}
	return docs, rejected, nil
}

// Save uploads the artifact to URL and returns the location written. A URL
// ending in "/" names a directory, and the artifact's name is appended.
func (s *Store) Save(ctx context.Context, URL string, art *pdfmerge.Artifact) (string, error) {
	if art == nil {
		return "", errors.New("storage: nothing to save")
	}
	dest := URL
	if strings.HasSuffix(URL, "/") {
		dest = url.Join(URL, art.Name())
	}
	if err := s.fs.Upload(ctx, dest, file.DefaultFileOsMode, art.NewReader()); err != nil {
		return "", fmt.Errorf("storage: upload %s: %w", dest, err)
	}
	s.log.WithFields(logrus.Fields{
		"url":   dest,
		"bytes": art.Len(),
	}).Info("merged document saved")
	return dest, nil
}
