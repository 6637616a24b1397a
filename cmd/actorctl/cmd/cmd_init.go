package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/daviddao/actorkv/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file and initialize the database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := envOr("ACTORCTL_CONFIG", configPath)
		if path == "" {
			path = config.DefaultConfigFilename
		}

		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
		} else {
			fmt.Printf("%s already exists, leaving it in place\n", path)
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Printf("initialized database %s\n", cfg.DBPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
