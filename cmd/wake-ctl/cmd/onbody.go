package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newOnBodyCommand asks a paired device whether it is being worn.
func newOnBodyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "onbody",
		Short: "Ask a paired device whether it is being worn.",
		Long: `Queries the first connected companion device for its worn state.

The answer is "worn", "not-worn" or "unknown". Unknown covers missing
devices, malformed replies and the query timeout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := commandContext()
			defer stop()

			c, err := dialDaemon(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			result, err := c.QueryOnBody(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), result.Answer)

			return nil
		},
	}
}
