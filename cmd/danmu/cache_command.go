package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

type cacheStats struct {
	Backend string `json:"backend"`
	Path    string `json:"path,omitempty"`
	Records int    `json:"records"`
}

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the persisted search and comment cache",
	}
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache backend and record count",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.commandLogger(cfg)
			if err != nil {
				return err
			}
			store, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			count, err := store.Count(cmd.Context())
			if err != nil {
				return fmt.Errorf("count cache records: %w", err)
			}
			stats := cacheStats{Backend: cfg.Cache.Backend, Records: count}
			if cfg.Cache.Backend != "memory" {
				stats.Path = cfg.Cache.Path
			}
			if ctx.jsonMode() {
				return writeJSON(cmd, stats)
			}
			out := cmd.OutOrStdout()
			path := stats.Path
			if path == "" {
				path = "-"
			}
			fmt.Fprintln(out, renderRows(out,
				[]string{"Backend", "Path", "Records"},
				[][]string{{stats.Backend, path, strconv.Itoa(stats.Records)}},
				[]columnAlignment{alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every persisted cache record",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.commandLogger(cfg)
			if err != nil {
				return err
			}
			store, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			count, err := store.Count(cmd.Context())
			if err != nil {
				return fmt.Errorf("count cache records: %w", err)
			}
			if err := store.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cache records\n", count)
			return nil
		},
	}
}
