package mcp

import (
	"context"
	"encoding/json"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lvillar/pdfmerge/session"
)

// DocumentsURI is the resource listing the staged documents as JSON.
const DocumentsURI = "pdfmerge://documents"

func registerResources(server *sdk.Server, sess *session.Session) {
	svc := &service{sess: sess}
	server.AddResource(&sdk.Resource{
		URI:         DocumentsURI,
		Name:        "Staged documents",
		Description: "The documents staged for merging, in merge order.",
		MIMEType:    "application/json",
	}, func(_ context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
		data, err := json.MarshalIndent(svc.list(), "", "  ")
		if err != nil {
			return nil, err
		}
		return &sdk.ReadResourceResult{
			Contents: []*sdk.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(data),
			}},
		}, nil
	})
}
