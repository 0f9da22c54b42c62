package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tianxiaolong/pytest-auto-api2/packages/cache"
	"github.com/tianxiaolong/pytest-auto-api2/packages/core/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the file-backed cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every value from the file-backed cache",
	Long: `Remove every value the file-backed cache holds. Run between sessions
when stale cached values (tokens, ids from earlier runs) would leak into the
next one.`,
	RunE: cacheClearCommand,
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
}

func cacheClearCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store, err := cache.NewFileStore(cfg.CachePath)
	if err != nil {
		return fmt.Errorf("open cache directory %s: %w", cfg.CachePath, err)
	}
	if err := store.ClearAll(); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared: %s\n", cfg.CachePath)
	return nil
}
