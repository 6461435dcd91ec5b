package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse <command>",
	Short: "Recover the configuration from a watchtower command string",
	Long: `Parse a watchtower command string, as shown in the COMMAND column of
'docker ps --no-trunc', and print the configuration it encodes.

  towerctl parse "/watchtower --interval 300 nginx redis"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		rc, err := cfg.DaemonIdentity().Parse(strings.Join(args, " "))
		if err != nil {
			return err
		}

		fmt.Printf("Shape:     %s\n", rc.Shape)
		fmt.Printf("Interval:  %s seconds (%s)\n", rc.Interval, formatInterval(rc.Interval.Seconds()))
		fmt.Printf("Watching:  %s\n", formatTargets(rc.Targets))
		fmt.Printf("Relaunch:  %s\n", equivalentStart(rc.StartConfiguration()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
}
