package pdfmerge

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lvillar/pdfmerge/builder"
)

// ProgressFunc is called after each input document has been consumed.
// It is informational only.
type ProgressFunc func(done, total int)

// Option configures a Merger.
type Option func(*mergeConfig)

type mergeConfig struct {
	engine     builder.Engine
	outputName string
	strict     bool
	manifest   bool
	progress   ProgressFunc
	log        *logrus.Entry
	maxSize    int64
	timeout    time.Duration
}

func defaultMergeConfig() mergeConfig {
	return mergeConfig{
		engine:     builder.PassthroughEngine{},
		outputName: DefaultOutputName,
		progress:   func(int, int) {},
		log:        discardLogger(),
	}
}

func discardLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// WithEngine selects how the merged document is serialized. The default is
// builder.PassthroughEngine.
func WithEngine(e builder.Engine) Option {
	return func(c *mergeConfig) {
		if e != nil {
			c.engine = e
		}
	}
}

// WithOutputName sets the artifact's file name. The default is
// DefaultOutputName.
func WithOutputName(name string) Option {
	return func(c *mergeConfig) {
		if name != "" {
			c.outputName = name
		}
	}
}

// WithStrictValidation additionally validates every input with pdfcpu
// before it is accepted.
func WithStrictValidation(strict bool) Option {
	return func(c *mergeConfig) {
		c.strict = strict
	}
}

// WithManifest appends a summary page listing the merged documents.
func WithManifest(manifest bool) Option {
	return func(c *mergeConfig) {
		c.manifest = manifest
	}
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(c *mergeConfig) {
		if fn != nil {
			c.progress = fn
		}
	}
}

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(log *logrus.Entry) Option {
	return func(c *mergeConfig) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMaxDocumentSize rejects inputs larger than n bytes. Zero, the
// default, means no limit.
func WithMaxDocumentSize(n int64) Option {
	return func(c *mergeConfig) {
		c.maxSize = n
	}
}

// WithTimeout bounds how long a merge may run. A merge that exceeds it fails
// with context.DeadlineExceeded. Zero, the default, relies on the caller's
// context alone.
func WithTimeout(d time.Duration) Option {
	return func(c *mergeConfig) {
		c.timeout = d
	}
}
