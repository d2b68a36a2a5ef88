package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/politpatrick/icf-api/compiler"
	"github.com/politpatrick/icf-api/export"
)

func verifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify [dir]",
		Short: "Check a written dataset for consistency",
		Long: `Verify re-reads a dataset directory (default: compile.out_dir) and
checks that chapters are sorted and unique, every chapter file exists,
every category code extends its chapter code, every index entry exists
and no JSON file is left unreferenced.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			dir := cfg.Compile.OutDir
			if len(args) > 0 {
				dir = args[0]
			}

			report, err := export.Verify(dir)
			if err != nil {
				return compiler.NewError(compiler.KindInputNotFound, "verify", dir, err)
			}

			out := cmd.OutOrStdout()
			for _, p := range report.Problems {
				_, _ = fmt.Fprintln(out, p)
			}
			if !report.OK() {
				return fmt.Errorf("verify %s: %d problems", dir, len(report.Problems))
			}

			a.logger.Info("Dataset verified",
				"dir", dir,
				"chapters", report.Chapters,
				"categories", report.Categories,
				"files", report.Files)
			_, _ = fmt.Fprintf(out, "ok: %d chapters, %d categories, %d files\n",
				report.Chapters, report.Categories, report.Files)
			return nil
		},
	}
}
