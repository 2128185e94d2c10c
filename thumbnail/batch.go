package thumbnail

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/lvillar/pdfmerge"
)

// Result holds the outcome for one document of RenderAll.
type Result struct {
	Thumbnail *Thumbnail
	Err       error
}

// RenderAll previews docs concurrently. Results are in input order and a
// failure only affects its own entry. opts.Position is ignored; each
// document is numbered by its position in docs.
func RenderAll(ctx context.Context, docs []*pdfmerge.SourceDocument, opts Options) []Result {
	opts = opts.withDefaults()
	results := make([]Result, len(docs))

	var g errgroup.Group
	g.SetLimit(opts.Concurrency)
	for i, doc := range docs {
		g.Go(func() error {
			o := opts
			o.Position = i + 1
			t, err := Preview(ctx, doc, o)
			if err != nil {
				opts.Log.WithFields(logrus.Fields{
					"document": doc.Name(),
					"index":    i,
				}).WithError(err).Debug("preview failed")
			}
			results[i] = Result{Thumbnail: t, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
