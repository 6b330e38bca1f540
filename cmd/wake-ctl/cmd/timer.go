package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// newTimerCommand groups the countdown timer subcommands.
func newTimerCommand() *cobra.Command {
	timerCmd := &cobra.Command{
		Use:   "timer",
		Short: "Manage countdown timers.",
	}

	timerCmd.AddCommand(
		newTimerStartCommand(),
		newTimerCancelCommand(),
		newTimerListCommand(),
	)

	return timerCmd
}

func newTimerStartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "start <minutes>",
		Short: "Start a countdown timer.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			minutes, err := strconv.Atoi(args[0])
			if err != nil || minutes <= 0 {
				return fmt.Errorf("invalid minutes %q", args[0])
			}

			ctx, stop := commandContext()
			defer stop()

			c, err := dialDaemon(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			info, err := c.StartTimer(ctx, minutes)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "#%d\t%d min\tfires %s\n", info.ID, info.Minutes, info.TriggerAt)

			return nil
		},
	}
}

func newTimerCancelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a running countdown.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			ctx, stop := commandContext()
			defer stop()

			c, err := dialDaemon(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.CancelTimer(ctx, id); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "timer %d cancelled\n", id)

			return nil
		},
	}
}

func newTimerListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List running countdowns.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := commandContext()
			defer stop()

			c, err := dialDaemon(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			result, err := c.ListTimers(ctx)
			if err != nil {
				return err
			}

			if len(result.Timers) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no timers")

				return nil
			}

			for _, info := range result.Timers {
				fmt.Fprintf(cmd.OutOrStdout(), "#%d\t%d min\tfires %s\n", info.ID, info.Minutes, info.TriggerAt)
			}

			return nil
		},
	}
}
