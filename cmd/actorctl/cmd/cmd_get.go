package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <key> [key...]",
	Short: "Read one or more keys, observing any of this process's own uncommitted writes.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := context.Background()

		if len(args) == 1 {
			key := args[0]
			value, ok, err := a.coord.Get(ctx, key)
			if err != nil {
				return err
			}
			if jsonOut {
				printJSON(map[string]any{"key": key, "found": ok, "value": string(value)})
				return nil
			}
			if !ok {
				fmt.Printf("%s: not found\n", key)
				return nil
			}
			fmt.Printf("%s=%s\n", key, value)
			return nil
		}

		values, err := a.coord.GetBatch(ctx, args)
		if err != nil {
			return err
		}
		if jsonOut {
			out := make(map[string]any, len(args))
			for _, key := range args {
				if v, ok := values[key]; ok {
					out[key] = string(v)
				} else {
					out[key] = nil
				}
			}
			printJSON(out)
			return nil
		}
		for _, key := range args {
			if v, ok := values[key]; ok {
				fmt.Printf("%s=%s\n", key, v)
			} else {
				fmt.Printf("%s: not found\n", key)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
