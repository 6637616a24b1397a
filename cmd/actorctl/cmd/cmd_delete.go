package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Stage a key removal and wait for it to commit.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := context.Background()
		key := args[0]
		if err := a.coord.Delete(ctx, key); err != nil {
			return err
		}
		if err := a.coord.Flush(ctx); err != nil {
			return fmt.Errorf("commit: %w", err)
		}

		if jsonOut {
			printJSON(map[string]any{"key": key, "deleted": true})
		} else {
			fmt.Printf("deleted %s (committed)\n", key)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
