package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/brightfame/towerctl/internal/panel"
	"github.com/brightfame/towerctl/internal/reconciler"
	"github.com/brightfame/towerctl/internal/watchconfig"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether watchtower is running and how it is configured",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		switch output {
		case "text", "json", "yaml":
		default:
			return fmt.Errorf("unknown output format %q (want text, json or yaml)", output)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctrl, err := newController(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer ctrl.Close()

		st := ctrl.Status()
		switch output {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		case "yaml":
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			if err := enc.Encode(st); err != nil {
				return err
			}
			return enc.Close()
		}

		printStatus(ctrl.Snapshot())
		return nil
	},
}

func init() {
	statusCmd.Flags().StringP("output", "o", "text", "Output format: text, json or yaml")
	rootCmd.AddCommand(statusCmd)
}

func printStatus(snap reconciler.Snapshot) {
	if !snap.Present() {
		fmt.Println("Watchtower is not running.")
		fmt.Println("Use 'towerctl start' to start it.")
		return
	}

	d := snap.Daemon
	fmt.Printf("Watchtower is running.\n\n")
	fmt.Printf("Container: %s (%s)\n", d.Name(), d.ShortID())
	fmt.Printf("Image:     %s\n", d.Image)
	if !d.Created.IsZero() {
		fmt.Printf("Started:   %s\n", formatRelativeTime(d.Created))
	}

	rc := snap.Running
	if rc == nil {
		fmt.Printf("Config:    %s\n", panel.ConfigUnknown)
		if snap.ConfigErr != nil {
			fmt.Printf("           %v\n", snap.ConfigErr)
		}
		return
	}
	fmt.Printf("Interval:  %s seconds (%s)\n", rc.Interval, formatInterval(rc.Interval.Seconds()))
	fmt.Printf("Watching:  %s\n", formatTargets(rc.Targets))
	fmt.Printf("\nRelaunch with: %s\n", equivalentStart(rc.StartConfiguration()))
}

// equivalentStart renders the towerctl invocation that reproduces cfg.
func equivalentStart(cfg watchconfig.StartConfiguration) string {
	parts := []string{"towerctl", "start", "--every", fmt.Sprint(cfg.Magnitude), "--unit", string(cfg.Unit)}
	if cfg.MonitorAll {
		parts = append(parts, "--all")
	} else {
		parts = append(parts, cfg.Targets...)
	}
	return strings.Join(parts, " ")
}
