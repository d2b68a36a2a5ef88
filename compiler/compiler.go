// Package compiler turns a CLAML classification document into the published
// JSON dataset.
//
// A run is parse, select language, optionally clean, flatten and write. Any
// failure aborts the run before the first file becomes visible in the output
// directory. Every failure is an *Error whose Kind maps to an exit status:
//
//	err := c.Run(ctx, "icf.xml", "data")
//	if errors.Is(err, compiler.ErrMissingLanguage) { ... }
//	os.Exit(compiler.ExitCode(err))
package compiler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/politpatrick/icf-api/export"
	"github.com/politpatrick/icf-api/source/claml"
	"github.com/politpatrick/icf-api/source/richtext"
)

// Options configures a compilation run.
type Options struct {
	// Lang is the language tag every text is selected in.
	Lang string

	// DefaultLang applies to untagged labels when the document does not
	// declare its language.
	DefaultLang string

	// Policy decides what happens when Lang is missing for a text.
	Policy LanguagePolicy

	// Clean normalises whitespace and strips markup from every text.
	Clean bool

	// Flatten lists all descendants in chapter files and writes icf_flat.json.
	Flatten bool

	// Markdown adds description_markdown to detail records.
	Markdown bool

	// Stats prints a summary to Stdout after writing.
	Stats bool

	// Prune removes JSON files of earlier runs that the new dataset lacks.
	Prune bool

	// Stdout receives the stats summary. Defaults to os.Stdout.
	Stdout io.Writer
}

// Result describes a successful run.
type Result struct {
	RunID    string
	Input    string
	OutDir   string
	Stats    export.Stats
	Duration time.Duration
}

// Compiler holds the state of one run. Create a new one per run.
type Compiler struct {
	opts     Options
	runID    string
	logger   *slog.Logger
	markdown *richtext.Converter

	sourceLanguages []string
}

// New creates a compiler for one run.
func New(opts Options, logger *slog.Logger) (*Compiler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Lang == "" {
		return nil, fmt.Errorf("create compiler: language is required")
	}
	lang, err := claml.CanonicalTag(opts.Lang)
	if err != nil {
		return nil, fmt.Errorf("create compiler: %w", err)
	}
	opts.Lang = lang

	policy, err := ParsePolicy(string(opts.Policy))
	if err != nil {
		return nil, fmt.Errorf("create compiler: %w", err)
	}
	opts.Policy = policy

	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	runID := uuid.NewString()
	c := &Compiler{
		opts:   opts,
		runID:  runID,
		logger: logger.With("run_id", runID),
	}
	if opts.Markdown {
		c.markdown = richtext.NewConverter()
	}
	return c, nil
}

// RunID returns the id of this run.
func (c *Compiler) RunID() string { return c.runID }

// Preflight checks that the input exists before any work starts.
func (c *Compiler) Preflight(input string) error {
	info, err := os.Stat(input)
	if err != nil {
		return NewError(KindInputNotFound, "open input", input, err)
	}
	if info.IsDir() {
		return NewError(KindInputNotFound, "open input", input, fmt.Errorf("is a directory"))
	}
	return nil
}

// Parse reads the CLAML document at path.
func (c *Compiler) Parse(path string) (*claml.Tree, error) {
	tree, err := claml.ParseFile(path, claml.Options{DefaultLang: c.opts.DefaultLang})
	if err != nil {
		return nil, classifyParse(path, err)
	}
	c.sourceLanguages = tree.Languages()

	stats := tree.Stats()
	c.logger.Info("Parsed classification",
		"path", path,
		"default_lang", tree.DefaultLanguage(),
		"languages", tree.Languages(),
		"chapters", stats.Chapters,
		"categories", stats.Categories,
		"qualifiers", stats.Qualifiers)
	return tree, nil
}

// Write publishes the dataset to outDir.
func (c *Compiler) Write(outDir string, ds *export.Dataset) (export.Stats, error) {
	opts := export.WriterOptions{
		RunID:  c.runID,
		Prune:  c.opts.Prune,
		Logger: c.logger,
	}
	if c.opts.Stats {
		opts.Stats = c.opts.Stdout
	}
	stats, err := export.NewWriter(opts).Write(outDir, ds)
	if err != nil {
		return export.Stats{}, classifyWrite(outDir, err)
	}
	return stats, nil
}

// Run compiles input into outDir.
func (c *Compiler) Run(ctx context.Context, input, outDir string) (*Result, error) {
	start := time.Now()
	if err := c.Preflight(input); err != nil {
		return nil, err
	}

	tree, err := c.Parse(input)
	if err != nil {
		return nil, err
	}

	tree, err = c.SelectLanguage(tree, c.opts.Lang)
	if err != nil {
		return nil, err
	}

	if c.opts.Clean {
		if tree, err = c.Clean(tree); err != nil {
			return nil, err
		}
	}

	ds, err := c.Flatten(tree)
	if err != nil {
		return nil, err
	}

	// Nothing has touched outDir yet; stop here if the caller gave up.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("compile %s: %w", input, err)
	}

	stats, err := c.Write(outDir, ds)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:    c.runID,
		Input:    input,
		OutDir:   outDir,
		Stats:    stats,
		Duration: time.Since(start),
	}
	c.logger.Info("Compilation complete",
		"input", input,
		"out_dir", outDir,
		"files", stats.Files,
		"duration", result.Duration)
	return result, nil
}
