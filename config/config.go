// Package config loads pdfmerge settings from pdfmerge.yml.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/lvillar/pdfmerge"
	"github.com/lvillar/pdfmerge/builder"
	"github.com/lvillar/pdfmerge/storage"
	"github.com/lvillar/pdfmerge/thumbnail"
)

// Config holds settings loaded from pdfmerge.yml.
type Config struct {
	Engine           string        `yaml:"engine,omitempty"`
	OutputName       string        `yaml:"outputName,omitempty"`
	MaxDocumentSize  int64         `yaml:"maxDocumentSize,omitempty"` // bytes, 0 disables the limit
	StrictValidation bool          `yaml:"strictValidation,omitempty"`
	Manifest         bool          `yaml:"manifest,omitempty"`
	MergeTimeout     time.Duration `yaml:"mergeTimeout,omitempty"`   // e.g. "90s", 0 disables the limit
	ThumbnailWidth   float64       `yaml:"thumbnailWidth,omitempty"` // points
	Concurrency      int           `yaml:"concurrency,omitempty"`
	LogLevel         string        `yaml:"logLevel,omitempty"`
}

// DefaultMergeTimeout bounds a merge when no mergeTimeout is configured.
const DefaultMergeTimeout = 2 * time.Minute

// Default returns the settings used when no file is present.
func Default() *Config {
	return &Config{
		Engine:          builder.EnginePassthrough,
		OutputName:      pdfmerge.DefaultOutputName,
		MaxDocumentSize: pdfmerge.DefaultMaxDocumentSize,
		MergeTimeout:    DefaultMergeTimeout,
		ThumbnailWidth:  thumbnail.DefaultWidth,
		Concurrency:     4,
		LogLevel:        "warning",
	}
}

// Load reads pdfmerge.yml or pdfmerge.yaml from dir over the defaults. A
// missing file is not an error.
func Load(dir string) (*Config, error) {
	cfg := Default()
	for _, name := range []string{"pdfmerge.yml", "pdfmerge.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
		return cfg, nil
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if _, err := builder.EngineByName(c.Engine); err != nil {
		return err
	}
	if c.MaxDocumentSize < 0 {
		return fmt.Errorf("maxDocumentSize must not be negative")
	}
	if c.MergeTimeout < 0 {
		return fmt.Errorf("mergeTimeout must not be negative")
	}
	if c.ThumbnailWidth < 0 {
		return fmt.Errorf("thumbnailWidth must not be negative")
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative")
	}
	if c.LogLevel != "" {
		if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
			return err
		}
	}
	return nil
}

// Logger returns a text logger writing to w at the configured level.
func (c *Config) Logger(w io.Writer) *logrus.Entry {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if lvl, err := logrus.ParseLevel(c.LogLevel); err == nil {
		l.SetLevel(lvl)
	}
	return logrus.NewEntry(l)
}

// MergerOptions converts the merge settings into options for
// pdfmerge.NewMerger.
func (c *Config) MergerOptions(log *logrus.Entry) ([]pdfmerge.Option, error) {
	engine, err := builder.EngineByName(c.Engine)
	if err != nil {
		return nil, err
	}
	return []pdfmerge.Option{
		pdfmerge.WithEngine(engine),
		pdfmerge.WithOutputName(c.OutputName),
		pdfmerge.WithStrictValidation(c.StrictValidation),
		pdfmerge.WithManifest(c.Manifest),
		pdfmerge.WithMaxDocumentSize(c.MaxDocumentSize),
		pdfmerge.WithTimeout(c.MergeTimeout),
		pdfmerge.WithLogger(log),
	}, nil
}

// StoreOptions converts the settings into options for storage.New.
func (c *Config) StoreOptions(log *logrus.Entry) []storage.Option {
	return []storage.Option{
		storage.WithMaxDocumentSize(c.MaxDocumentSize),
		storage.WithConcurrency(c.Concurrency),
		storage.WithLogger(log),
	}
}

// ThumbnailOptions converts the settings into thumbnail rendering options.
func (c *Config) ThumbnailOptions(log *logrus.Entry) thumbnail.Options {
	return thumbnail.Options{
		Width:       c.ThumbnailWidth,
		Concurrency: c.Concurrency,
		Log:         log,
	}
}
