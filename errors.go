package pdfmerge

import (
	"errors"
	"fmt"

	"github.com/lvillar/pdfmerge/reader"
)

// Sentinel errors. Callers test for them with errors.Is.
var (
	// ErrInvalidSelection is returned when the input cannot be merged as
	// chosen: fewer than two documents, a non-PDF file, or an oversized one.
	ErrInvalidSelection = errors.New("pdfmerge: invalid selection")

	// ErrMalformedDocument is returned when a document's bytes do not parse
	// as PDF.
	ErrMalformedDocument = errors.New("pdfmerge: malformed document")

	// ErrSerialization is returned when the merged document cannot be
	// written out.
	ErrSerialization = errors.New("pdfmerge: serialization failed")

	// ErrEncrypted is matched by failures caused by encrypted input.
	ErrEncrypted = reader.ErrEncrypted

	// ErrIndexOutOfRange is returned by DocumentSet mutations given a bad
	// index. It also matches ErrInvalidSelection.
	ErrIndexOutOfRange = fmt.Errorf("%w: index out of range", ErrInvalidSelection)
)

// DocumentError names the input document a failure belongs to. It matches
// ErrMalformedDocument.
type DocumentError struct {
	Index int    // position in the merged sequence, 0-based
	Name  string // display name of the document
	Err   error  // underlying parse error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("pdfmerge: document #%d %q is malformed: %v", e.Index+1, e.Name, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }

// Is reports DocumentError as an ErrMalformedDocument.
func (e *DocumentError) Is(target error) bool { return target == ErrMalformedDocument }

// OpError records the operation during which an error occurred.
type OpError struct {
	Op  string // operation name, e.g. "Merge", "Build"
	Err error
}

func (e *OpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pdfmerge.%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("pdfmerge.%s: unknown error", e.Op)
}

func (e *OpError) Unwrap() error { return e.Err }

func newOpError(op string, err error) *OpError {
	return &OpError{Op: op, Err: err}
}

// serializationError wraps err so that it matches ErrSerialization.
func serializationError(err error) error {
	return newOpError("Merge", fmt.Errorf("%w: %w", ErrSerialization, err))
}
