package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/politpatrick/icf-api/compiler"
	"github.com/politpatrick/icf-api/config"
	"github.com/politpatrick/icf-api/watch"
)

func compileCmd(a *app) *cobra.Command {
	var (
		cc        config.CompileConfig
		watchMode bool
	)

	cmd := &cobra.Command{
		Use:   "compile [input.xml] [outDir]",
		Short: "Compile a CLAML document into the JSON dataset",
		Long: `Compile reads the ICF CLAML XML document, selects the texts of one
language and writes the dataset to outDir (default icf_json).

Arguments override the compile section of the configuration; flags
override both.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			resolved := resolveCompile(cmd, cfg.Compile, cc, args)
			if resolved.Input == "" {
				return fmt.Errorf("compile: input document is required")
			}

			opts := compileOptions(resolved, a)
			if !watchMode {
				_, err := runCompile(cmd.Context(), a, opts, resolved)
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return watchCompile(ctx, a, opts, resolved, cfg.Watch.Debounce)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cc.Lang, "lang", "", "Language tag to select texts in (default en)")
	flags.StringVar(&cc.DefaultLang, "default-lang", "", "Language of untagged labels when the document declares none")
	flags.StringVar(&cc.LanguagePolicy, "language-policy", "", "strict or fallback when a text lacks the language")
	flags.BoolVar(&cc.Clean, "clean", false, "Normalise whitespace and strip markup")
	flags.BoolVar(&cc.Flatten, "flatten", false, "List all descendants per chapter and write icf_flat.json")
	flags.BoolVar(&cc.Stats, "stats", false, "Print a summary after writing")
	flags.BoolVar(&cc.Markdown, "markdown", false, "Add description_markdown to detail records")
	flags.BoolVar(&cc.Prune, "prune", false, "Remove JSON files of earlier runs")
	flags.BoolVar(&watchMode, "watch", false, "Recompile whenever the input changes")

	return cmd
}

// resolveCompile layers arguments and changed flags over the configured
// compile section.
func resolveCompile(cmd *cobra.Command, base, flagValues config.CompileConfig, args []string) config.CompileConfig {
	out := base
	if len(args) > 0 {
		out.Input = args[0]
	}
	if len(args) > 1 {
		out.OutDir = args[1]
	}

	flags := cmd.Flags()
	if flags.Changed("lang") {
		out.Lang = flagValues.Lang
	}
	if flags.Changed("default-lang") {
		out.DefaultLang = flagValues.DefaultLang
	}
	if flags.Changed("language-policy") {
		out.LanguagePolicy = flagValues.LanguagePolicy
	}
	if flags.Changed("clean") {
		out.Clean = flagValues.Clean
	}
	if flags.Changed("flatten") {
		out.Flatten = flagValues.Flatten
	}
	if flags.Changed("stats") {
		out.Stats = flagValues.Stats
	}
	if flags.Changed("markdown") {
		out.Markdown = flagValues.Markdown
	}
	if flags.Changed("prune") {
		out.Prune = flagValues.Prune
	}
	return out
}

func compileOptions(cc config.CompileConfig, a *app) compiler.Options {
	return compiler.Options{
		Lang:        cc.Lang,
		DefaultLang: cc.DefaultLang,
		Policy:      compiler.LanguagePolicy(cc.LanguagePolicy),
		Clean:       cc.Clean,
		Flatten:     cc.Flatten,
		Markdown:    cc.Markdown,
		Stats:       cc.Stats,
		Prune:       cc.Prune,
		Stdout:      a.stdout,
	}
}

// runCompile performs one compilation with a fresh compiler.
func runCompile(ctx context.Context, a *app, opts compiler.Options, cc config.CompileConfig) (*compiler.Result, error) {
	c, err := compiler.New(opts, a.logger)
	if err != nil {
		return nil, compiler.NewError(compiler.KindEnvironment, "configure compiler", "", err)
	}
	return c.Run(ctx, cc.Input, cc.OutDir)
}

// watchCompile compiles once and again after every settled change of the
// input. Failed runs are logged; the previous dataset stays in place.
func watchCompile(ctx context.Context, a *app, opts compiler.Options, cc config.CompileConfig, debounce time.Duration) error {
	w, err := watch.New(cc.Input, debounce, a.logger)
	if err != nil {
		return compiler.NewError(compiler.KindEnvironment, "watch input", cc.Input, err)
	}
	defer w.Stop()

	if err := w.Start(ctx); err != nil {
		return compiler.NewError(compiler.KindEnvironment, "watch input", cc.Input, err)
	}

	compileLogged(ctx, a, opts, cc)

	for event := range w.Events() {
		if event.Operation == watch.OpRemove {
			a.logger.Warn("Input removed, waiting for it to come back", "path", event.Path)
			continue
		}
		compileLogged(ctx, a, opts, cc)
	}

	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.logger.Info("Watch stopped", "path", w.Path())
	return nil
}

func compileLogged(ctx context.Context, a *app, opts compiler.Options, cc config.CompileConfig) {
	if _, err := runCompile(ctx, a, opts, cc); err != nil {
		if ctx.Err() != nil {
			return
		}
		kind, _ := compiler.KindOf(err)
		a.logger.Error("Compilation failed",
			"input", cc.Input,
			"kind", string(kind),
			"error", err)
	}
}
