// Package session holds the state behind an interactive merge: the staged
// documents, the current view, pending notifications and the last merged
// artifact.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/lvillar/pdfmerge"
	"github.com/lvillar/pdfmerge/storage"
	"github.com/lvillar/pdfmerge/thumbnail"
)

var (
	// ErrMergeInProgress is returned when the session is busy merging.
	ErrMergeInProgress = errors.New("session: merge in progress")

	// ErrNoArtifact is returned by Download before a successful merge.
	ErrNoArtifact = errors.New("session: no merged document")
)

// View is the screen the session is on.
type View int

const (
	ViewHome   View = iota // file selection
	ViewEditor             // ordering and merging
)

func (v View) String() string {
	switch v {
	case ViewHome:
		return "home"
	case ViewEditor:
		return "editor"
	}
	return fmt.Sprintf("View(%d)", int(v))
}

// Level classifies a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a transient message for the user.
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Upload is a file handed to AddFiles.
type Upload struct {
	Name        string
	ContentType string // optional; the extension is used when empty
	Data        []byte
}

// Session is safe for concurrent use.
type Session struct {
	mu       sync.Mutex
	set      *pdfmerge.DocumentSet
	view     View
	notes    []Notification
	artifact *pdfmerge.Artifact
	merging  bool
	done     int
	total    int

	mergeOpts []pdfmerge.Option
	store     *storage.Store
	thumbs    thumbnail.Options
	maxSize   int64
	log       *logrus.Entry
}

// Option configures a Session.
type Option func(*Session)

// WithMergeOptions sets the options every merge runs with.
func WithMergeOptions(opts ...pdfmerge.Option) Option {
	return func(s *Session) { s.mergeOpts = opts }
}

// WithStore sets the store used by AddURLs and Download.
func WithStore(store *storage.Store) Option {
	return func(s *Session) {
		if store != nil {
			s.store = store
		}
	}
}

// WithThumbnailOptions sets how Thumbnails renders previews.
func WithThumbnailOptions(opts thumbnail.Options) Option {
	return func(s *Session) { s.thumbs = opts }
}

// WithMaxDocumentSize sets the per-file limit of AddFiles. Zero disables it.
func WithMaxDocumentSize(n int64) Option {
	return func(s *Session) { s.maxSize = n }
}

// WithLogger sets the logger.
func WithLogger(log *logrus.Entry) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// New returns an empty session on the home view.
func New(opts ...Option) *Session {
	l := logrus.New()
	l.SetOutput(io.Discard)
	s := &Session{
		set:     &pdfmerge.DocumentSet{},
		maxSize: pdfmerge.DefaultMaxDocumentSize,
		log:     logrus.NewEntry(l),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = storage.New(storage.WithMaxDocumentSize(s.maxSize), storage.WithLogger(s.log))
	}
	return s
}

// View returns the current view.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Documents returns the staged documents in merge order.
func (s *Session) Documents() []*pdfmerge.SourceDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set.Documents()
}

// AddFiles stages the PDF files among uploads and reports how many were
// accepted. Other files are skipped with a notification. If none is
// accepted the session is unchanged and the error matches
// pdfmerge.ErrInvalidSelection.
func (s *Session) AddFiles(ctx context.Context, uploads []Upload) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var docs []*pdfmerge.SourceDocument
	ignored := 0
	for _, u := range uploads {
		err := pdfmerge.CheckSelection(u.Name, u.ContentType, int64(len(u.Data)), s.maxSize)
		if err != nil {
			s.log.WithField("document", u.Name).WithError(err).Info("file ignored")
			ignored++
			continue
		}
		d, err := pdfmerge.NewSourceDocument(u.Name, u.Data)
		if err != nil {
			ignored++
			continue
		}
		docs = append(docs, d)
	}
	return s.stage(docs, ignored)
}

// AddURLs loads and stages the documents at urls through the store.
func (s *Session) AddURLs(ctx context.Context, urls []string) (int, error) {
	docs, rejected, err := s.store.LoadAll(ctx, urls)
	if err != nil {
		return 0, err
	}
	return s.stage(docs, len(rejected))
}

func (s *Session) stage(docs []*pdfmerge.SourceDocument, ignored int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.merging {
		return 0, ErrMergeInProgress
	}
	if len(docs) == 0 {
		s.notify(LevelError, "Please select PDF files only")
		return 0, fmt.Errorf("%w: no PDF files among %d inputs", pdfmerge.ErrInvalidSelection, ignored)
	}
	if err := s.set.Add(docs...); err != nil {
		return 0, err
	}
	if ignored > 0 {
		s.notify(LevelError, "Some files were ignored. Only PDF files are supported.")
	}
	s.notify(LevelSuccess, fmt.Sprintf("%d PDF file(s) selected successfully", len(docs)))
	s.view = ViewEditor
	s.artifact = nil
	return len(docs), nil
}

// Remove unstages the document at index i.
func (s *Session) Remove(i int) error {
	return s.mutate(func(set *pdfmerge.DocumentSet) error { return set.Remove(i) })
}

// Move moves the document at from to position to.
func (s *Session) Move(from, to int) error {
	return s.mutate(func(set *pdfmerge.DocumentSet) error { return set.Move(from, to) })
}

func (s *Session) mutate(fn func(*pdfmerge.DocumentSet) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.merging {
		return ErrMergeInProgress
	}
	if err := fn(s.set); err != nil {
		return err
	}
	s.artifact = nil
	return nil
}

// Merge merges the staged documents in order. Only one merge runs at a
// time. On failure the staged documents are left as they were.
func (s *Session) Merge(ctx context.Context) (*pdfmerge.Artifact, error) {
	s.mu.Lock()
	if s.merging {
		s.mu.Unlock()
		return nil, ErrMergeInProgress
	}
	if s.set.Len() < 2 {
		s.notify(LevelError, "Please select at least 2 PDF files to merge")
		n := s.set.Len()
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: at least 2 documents are required, got %d", pdfmerge.ErrInvalidSelection, n)
	}
	docs := s.set.Documents()
	s.merging = true
	s.done, s.total = 0, len(docs)
	s.mu.Unlock()

	opts := append(append([]pdfmerge.Option(nil), s.mergeOpts...), pdfmerge.WithProgress(s.progress))
	art, err := pdfmerge.NewMerger(opts...).Merge(ctx, docs)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.merging = false
	if err != nil {
		s.log.WithError(err).Warn("merge failed")
		s.notify(LevelError, "Failed to merge PDFs. Please try again.")
		return nil, err
	}
	s.artifact = art
	s.notify(LevelSuccess, "PDFs merged successfully!")
	return art, nil
}

func (s *Session) progress(done, total int) {
	s.mu.Lock()
	s.done, s.total = done, total
	s.mu.Unlock()
}

// Progress reports how many documents the running or last merge consumed.
func (s *Session) Progress() (done, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done, s.total
}

// Merging reports whether a merge is running.
func (s *Session) Merging() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.merging
}

// Artifact returns the result of the last merge, or nil if there is none or
// the staged documents changed since.
func (s *Session) Artifact() *pdfmerge.Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.artifact
}

// Download saves the last merged document to url and returns the location
// written.
func (s *Session) Download(ctx context.Context, url string) (string, error) {
	art := s.Artifact()
	if art == nil {
		return "", ErrNoArtifact
	}
	return s.store.Save(ctx, url, art)
}

// Thumbnails renders previews of the staged documents.
func (s *Session) Thumbnails(ctx context.Context) []thumbnail.Result {
	return thumbnail.RenderAll(ctx, s.Documents(), s.thumbs)
}

// Preview renders the preview of the document at index i.
func (s *Session) Preview(ctx context.Context, i int) (*thumbnail.Thumbnail, error) {
	s.mu.Lock()
	d := s.set.At(i)
	n := s.set.Len()
	s.mu.Unlock()
	if d == nil {
		return nil, fmt.Errorf("%w: preview %d of %d", pdfmerge.ErrIndexOutOfRange, i, n)
	}
	opts := s.thumbs
	opts.Position = i + 1
	return thumbnail.Preview(ctx, d, opts)
}

// Back returns to the home view. Staged documents are kept.
func (s *Session) Back() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = ViewHome
}

// Reset unstages everything and returns to the home view.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.merging {
		return ErrMergeInProgress
	}
	s.set.Reset()
	s.artifact = nil
	s.view = ViewHome
	s.done, s.total = 0, 0
	return nil
}

// Notifications returns and clears the pending notifications.
func (s *Session) Notifications() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	notes := s.notes
	s.notes = nil
	return notes
}

func (s *Session) notify(level Level, msg string) {
	s.notes = append(s.notes, Notification{Level: level, Message: msg})
}
