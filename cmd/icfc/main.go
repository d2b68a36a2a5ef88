// Package main provides the icfc binary entry point.
// icfc compiles the ICF classification from its CLAML XML release into the
// static JSON dataset served by the ICF API, and inspects such datasets.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/politpatrick/icf-api/compiler"
	"github.com/politpatrick/icf-api/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "icfc"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(compiler.ExitPanic)
		}
	}()

	os.Exit(execute(&app{stdout: os.Stdout, stderr: os.Stderr}, os.Args[1:]))
}

// execute runs the command line and returns the exit status.
func execute(a *app, args []string) int {
	cmd := rootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	if err := cmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return compiler.ExitCode(err)
	}
	return compiler.ExitOK
}

// app holds the state shared by all subcommands.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string
	logger     *slog.Logger

	// workDir and homeDir override where config layers are searched.
	workDir string
	homeDir string
}

func rootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   appName,
		Short: "ICF classification compiler",
		Long: `icfc compiles the WHO International Classification of Functioning,
Disability and Health (ICF) from its CLAML XML release into a static
JSON dataset:

  chapters.json         list of chapters
  <chapter>.json        categories of one chapter
  <code>.json           detail record of one category
  index.json            code to file name

The dataset is written all or nothing. Existing datasets can be checked
with "icfc verify" and inspected with "icfc query".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.logger = newLogger(a.stderr, a.logLevel)
			slog.SetDefault(a.logger)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		compileCmd(a),
		verifyCmd(a),
		queryCmd(a),
		configCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

// loadConfig applies the config layers. A configuration that cannot be
// loaded is an environment error, reported before any input is read.
func (a *app) loadConfig() (*config.Config, error) {
	loader := config.NewLoader(a.logger)
	if a.workDir != "" || a.homeDir != "" {
		loader = loader.WithDirs(a.workDir, a.homeDir)
	}
	cfg, err := loader.Load(a.configPath)
	if err != nil {
		return nil, compiler.NewError(compiler.KindEnvironment, "load config", a.configPath, err)
	}

	// The flag wins over the configured level
	if a.logLevel == "" && cfg.Log.Level != "" {
		a.logger = newLogger(a.stderr, cfg.Log.Level)
		slog.SetDefault(a.logger)
	}
	return cfg, nil
}

func newLogger(w io.Writer, logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
