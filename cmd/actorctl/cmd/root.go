package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	jsonOut    bool

	rootCmd = &cobra.Command{
		Use:   "actorctl",
		Short: "Drive one durable actor-state coordinator.",
		Long: `actorctl opens a coordinator over a local SQLite file and lets you
exercise its key-value space, alarm, and streaming-trace surfaces from the
command line.

Environment:
  ACTORCTL_DB      SQLite database path (overrides config db_path)
  ACTORCTL_CONFIG  path to the YAML config file (default: actorctl.yaml)`,
	}
)

// Execute runs the actorctl CLI and exits with non-zero status on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "actorctl: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "JSON output")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
