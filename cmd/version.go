package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of towerctl",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(versionString())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func versionString() string {
	if commit != "" && date != "" {
		return fmt.Sprintf("towerctl version %s (commit %s, built %s)", version, commit, date)
	}
	return fmt.Sprintf("towerctl version %s", version)
}
