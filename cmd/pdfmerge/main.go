// Command pdfmerge merges PDF files in the order given.
//
//	pdfmerge [-o out.pdf] [-engine import|passthrough] [-config dir] [-manifest] [-strict] [-v] a.pdf b.pdf ...
//
// Inputs and the output may be local paths or any URL viant/afs supports.
// Settings are read from pdfmerge.yml in the config directory; flags
// override them.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"

	"github.com/lvillar/pdfmerge"
	"github.com/lvillar/pdfmerge/config"
	"github.com/lvillar/pdfmerge/storage"
)

// version is set by the linker at build time.
var version = "dev"

type cliFlags struct {
	Output    string
	Engine    string
	ConfigDir string
	Manifest  bool
	Strict    bool
	Verbose   bool
	Version   bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "pdfmerge: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var flags cliFlags
	fs := flag.NewFlagSet("pdfmerge", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&flags.Output, "o", "", "output file or directory (default: outputName from config)")
	fs.StringVar(&flags.Engine, "engine", "", "serialization engine: import or passthrough")
	fs.StringVar(&flags.ConfigDir, "config", ".", "directory holding pdfmerge.yml")
	fs.BoolVar(&flags.Manifest, "manifest", false, "append a manifest page listing the inputs")
	fs.BoolVar(&flags.Strict, "strict", false, "validate every input with pdfcpu")
	fs.BoolVar(&flags.Verbose, "v", false, "log progress to stderr")
	fs.BoolVar(&flags.Version, "version", false, "print version and exit")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: pdfmerge [flags] a.pdf b.pdf ...")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if flags.Version {
		fmt.Fprintln(stdout, version)
		return nil
	}
	if fs.NArg() < 2 {
		fs.Usage()
		return fmt.Errorf("%w: at least 2 input files are required", pdfmerge.ErrInvalidSelection)
	}

	cfg, err := config.Load(flags.ConfigDir)
	if err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "engine":
			cfg.Engine = flags.Engine
		case "manifest":
			cfg.Manifest = flags.Manifest
		case "strict":
			cfg.StrictValidation = flags.Strict
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := cfg.Logger(stderr)
	if flags.Verbose {
		log.Logger.SetLevel(logrus.DebugLevel)
	}

	store := storage.New(cfg.StoreOptions(log)...)
	docs, rejected, err := store.LoadAll(ctx, fs.Args())
	if err != nil {
		return err
	}
	for _, r := range rejected {
		fmt.Fprintf(stderr, "pdfmerge: skipping %s: %v\n", r.URL, r.Err)
	}

	opts, err := cfg.MergerOptions(log)
	if err != nil {
		return err
	}
	opts = append(opts, pdfmerge.WithProgress(func(done, total int) {
		log.WithFields(logrus.Fields{"done": done, "total": total}).Debug("progress")
	}))
	art, err := pdfmerge.Merge(ctx, docs, opts...)
	if err != nil {
		return err
	}

	out := flags.Output
	if out == "" {
		out = art.Name()
	}
	dest, err := store.Save(ctx, out, art)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s: %d pages from %d files\n", dest, art.PageCount(), len(docs))
	return nil
}
