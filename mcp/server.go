// Package mcp exposes a merge session as Model Context Protocol tools and
// resources, so an assistant can stage, order, preview and merge PDFs.
//
// # Usage with an MCP client
//
// Register the pdfmerge-mcp command as a stdio server:
//
//	{
//	  "mcpServers": {
//	    "pdfmerge": {
//	      "command": "pdfmerge-mcp"
//	    }
//	  }
//	}
package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lvillar/pdfmerge/session"
)

// Version is reported to clients. It is set by the linker at build time.
var Version = "dev"

// NewServer returns an MCP server whose tools operate on sess.
func NewServer(sess *session.Session) *sdk.Server {
	server := sdk.NewServer(&sdk.Implementation{
		Name:    "pdfmerge",
		Version: Version,
	}, nil)
	registerTools(server, &service{sess: sess})
	registerResources(server, sess)
	return server
}

// Run serves sess over transport until the client disconnects or ctx is
// done.
func Run(ctx context.Context, sess *session.Session, transport sdk.Transport) error {
	return NewServer(sess).Run(ctx, transport)
}
