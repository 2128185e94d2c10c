package mcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lvillar/pdfmerge"
	"github.com/lvillar/pdfmerge/session"
)

// DocumentInfo describes a staged document. Positions are 1-based.
type DocumentInfo struct {
	Position int     `json:"position"`
	Name     string  `json:"name"`
	SizeMB   float64 `json:"sizeMB"`
	Digest   string  `json:"digest"`
}

// DocumentList is the staged document list.
type DocumentList struct {
	Documents []DocumentInfo `json:"documents"`
	TotalMB   float64        `json:"totalMB"`
}

// Tool inputs and outputs. Their JSON shape is the tool's schema.

type AddDocumentsInput struct {
	Paths []string `json:"paths" jsonschema:"file paths or URLs of the PDF files to stage, in order"`
}

type AddDocumentsOutput struct {
	Added     int            `json:"added"`
	Notices   []string       `json:"notices,omitempty"`
	Documents []DocumentInfo `json:"documents"`
}

type ListDocumentsInput struct{}

type MoveDocumentInput struct {
	From int `json:"from" jsonschema:"current 1-based position of the document"`
	To   int `json:"to" jsonschema:"1-based position to move the document to"`
}

type RemoveDocumentInput struct {
	Position int `json:"position" jsonschema:"1-based position of the document to remove"`
}

type MergeDocumentsInput struct {
	Output string `json:"output,omitempty" jsonschema:"optional file path or URL to save the merged PDF; a trailing slash names a directory"`
}

type MergeDocumentsOutput struct {
	Name    string                   `json:"name"`
	Pages   int                      `json:"pages"`
	Bytes   int                      `json:"bytes"`
	SavedTo string                   `json:"savedTo,omitempty"`
	Sources []pdfmerge.SourceSummary `json:"sources"`
}

type PreviewDocumentInput struct {
	Position int `json:"position" jsonschema:"1-based position of the document to preview"`
}

type PreviewDocumentOutput struct {
	Name    string  `json:"name"`
	Pages   int     `json:"pages"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Title   string  `json:"title,omitempty"`
	Snippet string  `json:"snippet,omitempty"`
	PNG     string  `json:"png" jsonschema:"base64 encoded PNG card of the first page"`
}

type ResetDocumentsInput struct{}

type ResetDocumentsOutput struct {
	Reset bool `json:"reset"`
}

func registerTools(server *sdk.Server, svc *service) {
	sdk.AddTool(server, &sdk.Tool{
		Name:        "add_documents",
		Description: "Stage PDF files for merging. Inputs that are not PDF files, or are too large, are skipped and reported in notices.",
	}, svc.addDocuments)

	sdk.AddTool(server, &sdk.Tool{
		Name:        "list_documents",
		Description: "List the staged documents in merge order with their sizes in MB.",
	}, svc.listDocuments)

	sdk.AddTool(server, &sdk.Tool{
		Name:        "move_document",
		Description: "Move a staged document to another position. The documents in between shift by one.",
	}, svc.moveDocument)

	sdk.AddTool(server, &sdk.Tool{
		Name:        "remove_document",
		Description: "Remove a staged document.",
	}, svc.removeDocument)

	sdk.AddTool(server, &sdk.Tool{
		Name:        "merge_documents",
		Description: "Merge the staged documents, in order, into one PDF. At least 2 documents are required. Optionally saves the result.",
	}, svc.mergeDocuments)

	sdk.AddTool(server, &sdk.Tool{
		Name:        "preview_document",
		Description: "Preview a staged document: page count, first page size, title, leading text and a PNG card.",
	}, svc.previewDocument)

	sdk.AddTool(server, &sdk.Tool{
		Name:        "reset_documents",
		Description: "Remove all staged documents and discard the merged result.",
	}, svc.resetDocuments)
}

type service struct {
	sess *session.Session
}

func (s *service) list() DocumentList {
	out := DocumentList{Documents: []DocumentInfo{}}
	var total int64
	for i, d := range s.sess.Documents() {
		out.Documents = append(out.Documents, DocumentInfo{
			Position: i + 1,
			Name:     d.Name(),
			SizeMB:   d.SizeMB(),
			Digest:   d.Digest(),
		})
		total += d.Size()
	}
	out.TotalMB = math.Round(float64(total)/(1<<20)*100) / 100
	return out
}

func (s *service) addDocuments(ctx context.Context, _ *sdk.CallToolRequest, in AddDocumentsInput) (*sdk.CallToolResult, AddDocumentsOutput, error) {
	if len(in.Paths) == 0 {
		return nil, AddDocumentsOutput{}, fmt.Errorf("paths is required")
	}
	n, err := s.sess.AddURLs(ctx, in.Paths)
	var notices []string
	for _, note := range s.sess.Notifications() {
		notices = append(notices, note.Message)
	}
	if err != nil {
		return nil, AddDocumentsOutput{}, err
	}
	return nil, AddDocumentsOutput{Added: n, Notices: notices, Documents: s.list().Documents}, nil
}

func (s *service) listDocuments(_ context.Context, _ *sdk.CallToolRequest, _ ListDocumentsInput) (*sdk.CallToolResult, DocumentList, error) {
	return nil, s.list(), nil
}

func (s *service) moveDocument(_ context.Context, _ *sdk.CallToolRequest, in MoveDocumentInput) (*sdk.CallToolResult, DocumentList, error) {
	if err := s.sess.Move(in.From-1, in.To-1); err != nil {
		return nil, DocumentList{}, err
	}
	return nil, s.list(), nil
}

func (s *service) removeDocument(_ context.Context, _ *sdk.CallToolRequest, in RemoveDocumentInput) (*sdk.CallToolResult, DocumentList, error) {
	if err := s.sess.Remove(in.Position - 1); err != nil {
		return nil, DocumentList{}, err
	}
	return nil, s.list(), nil
}

func (s *service) mergeDocuments(ctx context.Context, _ *sdk.CallToolRequest, in MergeDocumentsInput) (*sdk.CallToolResult, MergeDocumentsOutput, error) {
	art, err := s.sess.Merge(ctx)
	s.sess.Notifications()
	if err != nil {
		return nil, MergeDocumentsOutput{}, err
	}
	out := MergeDocumentsOutput{
		Name:    art.Name(),
		Pages:   art.PageCount(),
		Bytes:   art.Len(),
		Sources: art.Sources(),
	}
	if in.Output != "" {
		if out.SavedTo, err = s.sess.Download(ctx, in.Output); err != nil {
			return nil, MergeDocumentsOutput{}, err
		}
	}
	return nil, out, nil
}

func (s *service) previewDocument(ctx context.Context, _ *sdk.CallToolRequest, in PreviewDocumentInput) (*sdk.CallToolResult, PreviewDocumentOutput, error) {
	th, err := s.sess.Preview(ctx, in.Position-1)
	if err != nil {
		return nil, PreviewDocumentOutput{}, err
	}
	return nil, PreviewDocumentOutput{
		Name:    th.Name,
		Pages:   th.Pages,
		Width:   th.Width,
		Height:  th.Height,
		Title:   th.Title,
		Snippet: th.Snippet,
		PNG:     base64.StdEncoding.EncodeToString(th.PNG),
	}, nil
}

func (s *service) resetDocuments(_ context.Context, _ *sdk.CallToolRequest, _ ResetDocumentsInput) (*sdk.CallToolResult, ResetDocumentsOutput, error) {
	if err := s.sess.Reset(); err != nil {
		return nil, ResetDocumentsOutput{}, err
	}
	return nil, ResetDocumentsOutput{Reset: true}, nil
}
