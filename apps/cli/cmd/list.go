package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tianxiaolong/pytest-auto-api2/packages/output"
)

var listVerbose bool

var listCmd = &cobra.Command{
	Use:   "list [module]",
	Short: "List modules and case files of the active data source",
	Long: `List the modules of the configured data directory, or the case files
of one module.

Examples:
  autoapi list
  autoapi list login
  autoapi list login --cases`,
	Args: cobra.MaximumNArgs(1),
	RunE: listCommand,
}

func init() {
	listCmd.Flags().BoolVar(&listVerbose, "cases", false, "also list the cases of each file")
}

func listCommand(cmd *cobra.Command, args []string) error {
	cfg, d, err := loadEnvironment()
	if err != nil {
		return err
	}
	formatter := output.NewConsoleFormatter(
		output.WithWriter(cmd.OutOrStdout()),
		output.WithNoColor(noColor),
		output.WithVerbose(listVerbose),
	)
	formatter.FormatHeader(cfg.ProjectName, cfg.DataDriverType)

	modules := args
	if len(modules) == 0 {
		if modules, err = d.ListModules(); err != nil {
			return err
		}
		if len(modules) == 0 {
			return fmt.Errorf("no modules found for project %q, check the data directory", cfg.ProjectName)
		}
	}

	for _, module := range modules {
		files, err := d.ListModuleFiles(module)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n%s:\n", module)
		for _, file := range files {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", file)
			if !listVerbose {
				continue
			}
			cases, err := d.GetTestData(module, file)
			if err != nil {
				formatter.FormatError(err)
				continue
			}
			formatter.FormatCases(cases)
		}
	}
	return nil
}
