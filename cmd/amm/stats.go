package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"liquidityEngine/internal/ledger/postgres"
	"liquidityEngine/internal/storage"
)

func newStatsCmd() *cobra.Command {
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Exchange-wide totals",
		RunE:  run(runStats),
	}

	leaderboardCmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Traders ranked by volume",
		RunE:  run(runLeaderboard),
	}
	leaderboardCmd.Flags().Int("limit", 10, "maximum traders")

	statsCmd.AddCommand(leaderboardCmd)
	return statsCmd
}

func runStats(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
	stats, err := a.engine.GetDexStats(ctx)
	if err != nil {
		return err
	}
	return printJSON(cmd, stats)
}

func runLeaderboard(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	leaders, err := a.engine.GetLeaderboard(ctx, limit)
	if err != nil {
		return err
	}
	return printJSON(cmd, leaders)
}

func newJournalCmd() *cobra.Command {
	journalCmd := &cobra.Command{
		Use:   "journal [path]",
		Short: "Print the audit journal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("journal")
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("journal path is required")
			}
			entries, err := storage.ReadJournal(path)
			if err != nil {
				return err
			}
			return printJSON(cmd, entries)
		},
	}
	return journalCmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the Postgres ledger schema",
		RunE: run(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			store, ok := a.store.(*postgres.Store)
			if !ok {
				return fmt.Errorf("migrate needs --pg-dsn")
			}
			if err := store.Migrate(ctx); err != nil {
				return err
			}
			a.logger.Info("ledger schema applied")
			return nil
		}),
	}
}
