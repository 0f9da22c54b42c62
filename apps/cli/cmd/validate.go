package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tianxiaolong/pytest-auto-api2/packages/output"
)

var validateCmd = &cobra.Command{
	Use:   "validate [module...]",
	Short: "Validate case files against the schema without executing them",
	Long: `Load and materialize every case file of the named modules (or all
modules), reporting schema violations: missing required fields, unknown
methods or operators, dependence flags without declarations, and duplicate
case identifiers.

Examples:
  autoapi validate
  autoapi validate login orders`,
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	cfg, d, err := loadEnvironment()
	if err != nil {
		return err
	}
	formatter := output.NewConsoleFormatter(
		output.WithWriter(cmd.OutOrStdout()),
		output.WithNoColor(noColor),
	)
	formatter.FormatHeader(cfg.ProjectName, cfg.DataDriverType)
	fmt.Fprintf(cmd.OutOrStdout(), "\n")

	modules := args
	if len(modules) == 0 {
		if modules, err = d.ListModules(); err != nil {
			return err
		}
		if len(modules) == 0 {
			return fmt.Errorf("no modules found for project %q, check the data directory", cfg.ProjectName)
		}
	}

	start := time.Now()
	summary := output.Summary{}
	for _, module := range modules {
		files, err := d.ListModuleFiles(module)
		if err != nil {
			return err
		}
		for _, file := range files {
			summary.Files++
			report := output.FileReport{Module: module, File: file}

			cases, err := d.GetTestData(module, file)
			if err != nil {
				report.Err = err
				summary.Errors++
			} else {
				report.Cases = len(cases)
				summary.Cases += len(cases)
				for _, tc := range cases {
					if !tc.ShouldRun() {
						report.Disabled++
					}
				}
			}
			formatter.FormatFileReport(report)
		}
	}
	summary.Duration = time.Since(start)
	formatter.FormatSummary(summary)

	if summary.Errors > 0 {
		// Exit without cobra's usage text; the report already explains.
		os.Exit(ExitValidationError)
	}
	return nil
}
