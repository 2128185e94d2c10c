// Command pdfmerge-mcp serves the pdfmerge tools over MCP on stdio.
//
// # Available Tools
//
//   - add_documents: stage PDF files by path or URL
//   - list_documents: list staged documents
//   - move_document: reorder a staged document
//   - remove_document: unstage a document
//   - merge_documents: merge and optionally save
//   - preview_document: page count, size, text and a PNG card
//   - reset_documents: clear the session
//
// # Available Resources
//
//   - pdfmerge://documents : the staged documents as JSON
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/lvillar/pdfmerge/config"
	"github.com/lvillar/pdfmerge/mcp"
	"github.com/lvillar/pdfmerge/session"
	"github.com/lvillar/pdfmerge/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "pdfmerge-mcp: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("pdfmerge-mcp", flag.ContinueOnError)
	configDir := fs.String("config", ".", "directory holding pdfmerge.yml")
	verbose := fs.Bool("v", false, "log tool activity to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configDir)
	if err != nil {
		return err
	}
	// stdout carries the protocol; logs go to stderr only.
	log := cfg.Logger(os.Stderr)
	if *verbose {
		log.Logger.SetLevel(logrus.DebugLevel)
	}
	mergeOpts, err := cfg.MergerOptions(log)
	if err != nil {
		return err
	}

	sess := session.New(
		session.WithMergeOptions(mergeOpts...),
		session.WithStore(storage.New(cfg.StoreOptions(log)...)),
		session.WithThumbnailOptions(cfg.ThumbnailOptions(log)),
		session.WithMaxDocumentSize(cfg.MaxDocumentSize),
		session.WithLogger(log),
	)
	log.Info("serving MCP on stdio")
	return mcp.Run(ctx, sess, &sdk.StdioTransport{})
}
