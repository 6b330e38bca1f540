package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newHistoryCommand shows recent completed dismissals.
func newHistoryCommand() *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show the wake history.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := commandContext()
			defer stop()

			c, err := dialDaemon(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			result, err := c.ListHistory(ctx, limit)
			if err != nil {
				return err
			}

			if len(result.Records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no history")

				return nil
			}

			for _, record := range result.Records {
				line := fmt.Sprintf("%s\t#%d\t%s", record.CompletedAt, record.EventID, record.Label)
				if record.TaskID != "" {
					line += "\ttask " + record.TaskID
				}

				fmt.Fprintln(cmd.OutOrStdout(), line)
			}

			return nil
		},
	}

	historyCmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of records (0 for the server default)")

	return historyCmd
}
