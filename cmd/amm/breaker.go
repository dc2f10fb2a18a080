package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newBreakerCmd() *cobra.Command {
	breakerCmd := &cobra.Command{
		Use:   "breaker",
		Short: "Trigger and inspect circuit breakers",
	}

	triggerCmd := &cobra.Command{
		Use:   "trigger <pool-id>",
		Short: "Halt a pool for its cooldown",
		Args:  cobra.ExactArgs(1),
		RunE:  run(runBreakerTrigger),
	}
	triggerCmd.Flags().String("reason", "manual", "reason recorded on the breaker")

	statusCmd := &cobra.Command{
		Use:   "status <pool-id>",
		Short: "Show a pool's breaker record",
		Args:  cobra.ExactArgs(1),
		RunE:  run(runBreakerStatus),
	}

	breakerCmd.AddCommand(triggerCmd, statusCmd)
	return breakerCmd
}

func runBreakerTrigger(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
	reason, _ := cmd.Flags().GetString("reason")
	record, err := a.engine.TriggerCircuitBreaker(ctx, args[0], reason)
	if err != nil {
		return err
	}
	return printJSON(cmd, record)
}

func runBreakerStatus(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
	record, err := a.engine.GetCircuitBreaker(ctx, args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd, record)
}
