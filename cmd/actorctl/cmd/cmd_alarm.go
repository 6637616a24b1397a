package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var alarmCmd = &cobra.Command{
	Use:   "alarm",
	Short: "Inspect or arm the coordinator's alarm.",
}

var alarmGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the pending-or-committed alarm time.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		at := a.coord.GetAlarm()
		if jsonOut {
			if at == nil {
				printJSON(map[string]any{"alarm": nil})
			} else {
				printJSON(map[string]any{"alarm": at.Format(time.RFC3339Nano)})
			}
			return nil
		}
		if at == nil {
			fmt.Println("alarm: none")
			return nil
		}
		fmt.Printf("alarm: %s\n", at.Format(time.RFC3339Nano))
		return nil
	},
}

var alarmSetCmd = &cobra.Command{
	Use:   "set <RFC3339-time>",
	Short: "Stage a new alarm time and wait for it to commit.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		at, err := time.Parse(time.RFC3339, args[0])
		if err != nil {
			return fmt.Errorf("parse time: %w", err)
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := context.Background()
		if err := a.coord.SetAlarm(ctx, &at); err != nil {
			return err
		}
		if err := a.coord.Flush(ctx); err != nil {
			return fmt.Errorf("commit: %w", err)
		}

		if jsonOut {
			printJSON(map[string]any{"alarm": at.Format(time.RFC3339Nano), "committed": true})
		} else {
			fmt.Printf("alarm set to %s (committed)\n", at.Format(time.RFC3339Nano))
		}
		return nil
	},
}

var alarmClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Stage clearing the alarm and wait for it to commit.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := context.Background()
		if err := a.coord.SetAlarm(ctx, nil); err != nil {
			return err
		}
		if err := a.coord.Flush(ctx); err != nil {
			return fmt.Errorf("commit: %w", err)
		}

		if jsonOut {
			printJSON(map[string]any{"alarm": nil, "committed": true})
		} else {
			fmt.Println("alarm cleared (committed)")
		}
		return nil
	},
}

func init() {
	alarmCmd.AddCommand(alarmGetCmd, alarmSetCmd, alarmClearCmd)
	rootCmd.AddCommand(alarmCmd)
}
