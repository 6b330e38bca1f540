package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newSessionCommand groups the ringing session subcommands.
func newSessionCommand() *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect and drive ringing sessions.",
	}

	sessionCmd.AddCommand(
		newSessionListCommand(),
		newSessionStopCommand(),
		newSessionAckCommand(),
	)

	return sessionCmd
}

func newSessionListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List currently ringing sessions.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := commandContext()
			defer stop()

			c, err := dialDaemon(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			result, err := c.ListSessions(ctx)
			if err != nil {
				return err
			}

			if len(result.IDs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no ringing sessions")

				return nil
			}

			for _, id := range result.IDs {
				fmt.Fprintf(cmd.OutOrStdout(), "#%d\n", id)
			}

			return nil
		},
	}
}

func newSessionStopCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <id>",
		Short: "Complete the dismissal of a ringing session.",
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

			if err := c.StopSession(ctx, id); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "session %d stopped\n", id)

			return nil
		},
	}
}

func newSessionAckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ack <id>",
		Short: "Acknowledge a ringing session without dismissing it.",
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

			if err := c.AckSession(ctx, id); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "session %d acknowledged\n", id)

			return nil
		},
	}
}
