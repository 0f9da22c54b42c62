package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tianxiaolong/pytest-auto-api2/packages/cache"
	"github.com/tianxiaolong/pytest-auto-api2/packages/core/config"
	"github.com/tianxiaolong/pytest-auto-api2/packages/driver"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configPath string
	driverType string
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:   "autoapi",
	Short: "Data-driven API test tooling",
	Long: `autoapi works with data-driven API test suites: case files authored
as nested YAML documents or Excel workbooks, validated against one canonical
schema and executed against the configured environment.`,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitUsageError)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the project config file")
	rootCmd.PersistentFlags().StringVar(&driverType, "driver", "", "data driver to use (yaml or excel), overrides the config")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadEnvironment builds the configuration and a data driver facade the
// subcommands share.
func loadEnvironment() (*config.Config, *driver.Driver, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if driverType != "" {
		cfg.DataDriverType = driverType
	}

	d, err := driver.New(cfg, cache.New())
	if err != nil {
		return nil, nil, fmt.Errorf("configure data driver: %w", err)
	}
	return cfg, d, nil
}
