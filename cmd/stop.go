package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop watchtower",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctrl, err := newController(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer ctrl.Close()

		snap := ctrl.Snapshot()
		if !snap.Present() {
			fmt.Println("Watchtower is not running.")
			return nil
		}

		if err := ctrl.Stop(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("Stop requested for %s (%s).\n", snap.Daemon.Name(), snap.Daemon.ShortID())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
