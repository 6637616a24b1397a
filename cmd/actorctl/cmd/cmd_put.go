package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var putCmd = &cobra.Command{
	Use:   "put <key> <value>",
	Short: "Stage a key/value write and wait for it to commit.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := context.Background()
		key, value := args[0], args[1]
		if err := a.coord.Put(ctx, key, []byte(value)); err != nil {
			return err
		}
		if err := a.coord.Flush(ctx); err != nil {
			return fmt.Errorf("commit: %w", err)
		}

		if jsonOut {
			printJSON(map[string]any{"key": key, "value": value, "committed": true})
		} else {
			fmt.Printf("put %s=%s (committed)\n", key, value)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(putCmd)
}
