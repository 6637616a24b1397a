package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show gate health, pending alarm, and commit-in-flight state.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		brokenErr := a.coord.BrokenErr()
		alarm := a.coord.GetAlarm()
		scheduled := a.coord.IsCommitScheduled()

		if jsonOut {
			result := map[string]any{
				"gate_broken":      brokenErr != nil,
				"commit_scheduled": scheduled,
			}
			if brokenErr != nil {
				result["gate_broken_reason"] = brokenErr.Error()
			}
			if alarm != nil {
				result["alarm"] = alarm.Format(time.RFC3339Nano)
			} else {
				result["alarm"] = nil
			}
			printJSON(result)
			return nil
		}

		color := isatty.IsTerminal(os.Stdout.Fd())

		if brokenErr != nil {
			fmt.Println(paint(color, red, fmt.Sprintf("gate:    BROKEN (%v)", brokenErr)))
		} else {
			fmt.Println(paint(color, green, "gate:    healthy"))
		}
		if alarm != nil {
			fmt.Printf("alarm:   %s (%s)\n", alarm.Format(time.RFC3339Nano), humanize.Time(*alarm))
		} else {
			fmt.Println("alarm:   none")
		}
		fmt.Printf("commit:  %s\n", commitLabel(scheduled))
		return nil
	},
}

const (
	red   = "\x1b[31m"
	green = "\x1b[32m"
	reset = "\x1b[0m"
)

// paint wraps s in an ANSI color code, but only when stdout is a terminal —
// piping actorctl status into another tool should see plain text.
func paint(enabled bool, code, s string) string {
	if !enabled {
		return s
	}
	return code + s + reset
}

func commitLabel(scheduled bool) string {
	if scheduled {
		return "in flight"
	}
	return "settled"
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
