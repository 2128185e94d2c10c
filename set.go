package pdfmerge

import (
	"context"
	"fmt"
	"slices"
)

// DocumentSet is an ordered list of documents staged for merging. The order
// is the merge order. A DocumentSet is not safe for concurrent use.
type DocumentSet struct {
	docs []*SourceDocument
}

// NewDocumentSet returns a set holding docs in order.
func NewDocumentSet(docs ...*SourceDocument) (*DocumentSet, error) {
	s := &DocumentSet{}
	if err := s.Add(docs...); err != nil {
		return nil, err
	}
	return s, nil
}

// Add appends docs. Either all of them are added or, if any is nil, none.
func (s *DocumentSet) Add(docs ...*SourceDocument) error {
	for i, d := range docs {
		if d == nil {
			return fmt.Errorf("%w: document %d is nil", ErrInvalidSelection, i)
		}
	}
	s.docs = append(s.docs, docs...)
	return nil
}

// Remove deletes the document at index i.
func (s *DocumentSet) Remove(i int) error {
	if i < 0 || i >= len(s.docs) {
		return fmt.Errorf("%w: remove %d of %d", ErrIndexOutOfRange, i, len(s.docs))
	}
	s.docs = slices.Delete(s.docs, i, i+1)
	return nil
}

// Move takes the document at index from out of the list and inserts it at
// index to, shifting the documents in between.
func (s *DocumentSet) Move(from, to int) error {
	n := len(s.docs)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("%w: move %d to %d of %d", ErrIndexOutOfRange, from, to, n)
	}
	d := s.docs[from]
	s.docs = slices.Insert(slices.Delete(s.docs, from, from+1), to, d)
	return nil
}

// Len returns the number of documents.
func (s *DocumentSet) Len() int { return len(s.docs) }

// At returns the document at index i, or nil if i is out of range.
func (s *DocumentSet) At(i int) *SourceDocument {
	if i < 0 || i >= len(s.docs) {
		return nil
	}
	return s.docs[i]
}

// Documents returns the documents in order. The slice is a copy.
func (s *DocumentSet) Documents() []*SourceDocument {
	return slices.Clone(s.docs)
}

// Clone returns an independent set with the same documents.
func (s *DocumentSet) Clone() *DocumentSet {
	return &DocumentSet{docs: slices.Clone(s.docs)}
}

// TotalSize returns the combined size of all documents in bytes.
func (s *DocumentSet) TotalSize() int64 {
	var n int64
	for _, d := range s.docs {
		n += d.Size()
	}
	return n
}

// Reset removes all documents.
func (s *DocumentSet) Reset() { s.docs = nil }

// Merge merges a snapshot of the set with m. A nil m uses the defaults.
func (s *DocumentSet) Merge(ctx context.Context, m *Merger) (*Artifact, error) {
	if m == nil {
		m = NewMerger()
	}
	return m.Merge(ctx, s.Documents())
}
