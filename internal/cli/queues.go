package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newSizeCommand constructs the `size` subcommand.
func newSizeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "size <queue>",
		Short: "Print the number of ready and delayed jobs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			size, err := a.client.QueueSize(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), size)
			return nil
		},
	}
}

// newPeekCommand constructs the `peek` subcommand.
func newPeekCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "peek <queue>",
		Short: "Show the next job without reserving it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := a.client.PeekQueue(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJob(cmd.OutOrStdout(), job)
		},
	}
}

// newDeadLetterCommand constructs the `deadletter` command group.
func newDeadLetterCommand(a *app) *cobra.Command {
	dlCmd := &cobra.Command{Use: "deadletter", Short: "Dead letter operations"}

	peekCmd := &cobra.Command{
		Use:   "peek <queue>",
		Short: "Show the oldest dead-lettered job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := a.client.PeekDeadLetter(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJob(cmd.OutOrStdout(), job)
		},
	}

	var limit, ttl int
	respawnCmd := &cobra.Command{
		Use:   "respawn <queue>",
		Short: "Move dead-lettered jobs back to the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := a.client.RespawnDeadLetter(cmd.Context(), args[0], limit, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "respawned:", count)
			return nil
		},
	}
	respawnCmd.Flags().IntVar(&limit, "limit", 1, "Maximum number of jobs to respawn")
	respawnCmd.Flags().IntVar(&ttl, "ttl", 0, "Fresh time to live in seconds (0 = never expires)")

	dlCmd.AddCommand(peekCmd, respawnCmd)
	return dlCmd
}
