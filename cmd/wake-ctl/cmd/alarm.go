package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oshokin/wake-engine/internal/api/rpc"
)

// newAlarmCommand groups the alarm management subcommands.
func newAlarmCommand() *cobra.Command {
	alarmCmd := &cobra.Command{
		Use:   "alarm",
		Short: "Manage alarms.",
	}

	alarmCmd.AddCommand(
		newAlarmCreateCommand(),
		newAlarmListCommand(),
		newAlarmGetCommand(),
		newAlarmDeleteCommand(),
		newAlarmSetActiveCommand("enable", true),
		newAlarmSetActiveCommand("disable", false),
	)

	return alarmCmd
}

func newAlarmCreateCommand() *cobra.Command {
	var (
		kind      string
		triggerAt string
		timeOfDay string
		weekdays  []string
		label     string
		soundRef  string
		taskID    string
		inactive  bool
	)

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an alarm and arm its timer.",
		Long: `Creates a one-shot or weekly alarm.

One-shot alarms need --at with an RFC 3339 instant. Weekly alarms need
--time with an HH:MM value and optionally --days with weekday names; a
weekly alarm without days rings at the next occurrence of the time and
then deactivates.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := commandContext()
			defer stop()

			c, err := dialDaemon(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			params := &rpc.CreateAlarmParams{
				ScheduleKind: kind,
				TriggerAt:    triggerAt,
				TimeOfDay:    timeOfDay,
				Weekdays:     weekdays,
				Label:        label,
				SoundRef:     soundRef,
			}

			if taskID != "" {
				params.Task = &rpc.TaskPayload{ID: taskID}
			}

			if inactive {
				active := false
				params.Active = &active
			}

			info, err := c.CreateAlarm(ctx, params)
			if err != nil {
				return err
			}

			printAlarm(cmd, info)

			return nil
		},
	}

	createCmd.Flags().StringVarP(&kind, "kind", "k", "one-shot", `schedule kind: "one-shot" or "weekly"`)
	createCmd.Flags().StringVar(&triggerAt, "at", "", "fire instant for one-shot alarms (RFC 3339)")
	createCmd.Flags().StringVar(&timeOfDay, "time", "", "fire time for weekly alarms (HH:MM)")
	createCmd.Flags().StringSliceVar(&weekdays, "days", nil, "weekday names for weekly alarms")
	createCmd.Flags().StringVarP(&label, "label", "l", "", "user-visible alarm name")
	createCmd.Flags().StringVar(&soundRef, "sound", "", "ringing sound reference")
	createCmd.Flags().StringVar(&taskID, "task", "", "dismissal challenge identifier")
	createCmd.Flags().BoolVar(&inactive, "inactive", false, "create the alarm without arming it")

	return createCmd
}

func newAlarmListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every stored alarm.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := commandContext()
			defer stop()

			c, err := dialDaemon(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			result, err := c.ListAlarms(ctx)
			if err != nil {
				return err
			}

			if len(result.Alarms) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no alarms")

				return nil
			}

			for _, info := range result.Alarms {
				printAlarm(cmd, info)
			}

			return nil
		},
	}
}

func newAlarmGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one alarm.",
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

			info, err := c.GetAlarm(ctx, id)
			if err != nil {
				return err
			}

			printAlarm(cmd, info)

			return nil
		},
	}
}

func newAlarmDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Disarm and remove an alarm.",
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

			if err := c.DeleteAlarm(ctx, id); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "alarm %d deleted\n", id)

			return nil
		},
	}
}

func newAlarmSetActiveCommand(use string, active bool) *cobra.Command {
	short := "Disarm an alarm without removing it."
	if active {
		short = "Re-arm a disabled alarm."
	}

	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
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

			info, err := c.SetAlarmActive(ctx, id, active)
			if err != nil {
				return err
			}

			printAlarm(cmd, info)

			return nil
		},
	}
}

// printAlarm renders one alarm as a single line.
func printAlarm(cmd *cobra.Command, info *rpc.AlarmInfo) {
	var schedule string

	switch info.ScheduleKind {
	case "one-shot":
		schedule = "at " + info.TriggerAt
	default:
		schedule = "at " + info.TimeOfDay

		if len(info.Weekdays) > 0 {
			schedule += " on " + strings.Join(info.Weekdays, ",")
		}
	}

	state := "inactive"
	if info.Active {
		state = "active"
	}

	line := fmt.Sprintf("#%d\t%s\t%s\t%s", info.ID, state, schedule, info.Label)
	if info.NextTrigger != "" {
		line += "\tnext " + info.NextTrigger
	}

	fmt.Fprintln(cmd.OutOrStdout(), line)
}

// parseID converts a command argument to an identifier.
func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid identifier %q", arg)
	}

	return id, nil
}
