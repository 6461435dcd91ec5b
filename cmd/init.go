package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/brightfame/towerctl/assets"
	"github.com/brightfame/towerctl/internal/constants"
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Write a default towerctl.toml",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}

		absDir, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("failed to resolve directory: %w", err)
		}
		if err := os.MkdirAll(absDir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", absDir, err)
		}

		configFile := filepath.Join(absDir, constants.ConfigFile)
		if _, err := os.Stat(configFile); err == nil {
			return fmt.Errorf("%s already exists in %s", constants.ConfigFile, absDir)
		}

		if err := os.WriteFile(configFile, []byte(assets.DefaultConfig), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", constants.ConfigFile, err)
		}
		fmt.Printf("  Created %s\n", constants.ConfigFile)

		fmt.Println("\nNext steps:")
		fmt.Printf("  1. Review and customize %s\n", constants.ConfigFile)
		fmt.Printf("  2. Put DOCKER_HOST and friends in %s next to it if needed\n", constants.EnvFile)
		fmt.Println("  3. Start watchtower: towerctl start --dry-run, then towerctl start")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
