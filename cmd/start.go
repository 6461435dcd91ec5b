package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/brightfame/towerctl/internal/config"
	"github.com/brightfame/towerctl/internal/watchconfig"
)

var startCmd = &cobra.Command{
	Use:   "start [containers...]",
	Short: "Start watchtower",
	Long: `Start the watchtower daemon. With no containers (or with --all) every
running container is watched; otherwise only the named ones are.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		startCfg, err := startConfigFromFlags(cmd, cfg, args)
		if err != nil {
			return err
		}

		dryRun, _ := cmd.Flags().GetBool("dry-run")
		if dryRun {
			launch, err := cfg.DaemonIdentity().BuildLaunchArguments(startCfg)
			if err != nil {
				return err
			}
			interval, _ := startCfg.Interval()
			fmt.Printf("Interval: %s seconds (%s)\n", interval, formatInterval(interval.Seconds()))
			fmt.Printf("Watching: %s\n", formatTargets(targetsOf(startCfg)))
			fmt.Printf("Command:  docker run %s\n", strings.Join(launch, " "))
			fmt.Println("\n(dry run, daemon not started)")
			return nil
		}

		ctx := cmd.Context()
		ctrl, err := newController(ctx, cfg)
		if err != nil {
			return err
		}
		defer ctrl.Close()

		spin := spinner.New(spinner.CharSets[14], 120*time.Millisecond, spinner.WithWriter(os.Stderr))
		spin.Suffix = " starting watchtower"
		spin.Start()
		_, err = ctrl.Start(ctx, startCfg)
		spin.Stop()
		if err != nil {
			return err
		}

		interval, _ := startCfg.Interval()
		fmt.Printf("Watchtower started: checking %s every %s.\n", formatTargets(targetsOf(startCfg)), formatInterval(interval.Seconds()))
		fmt.Println("Use 'towerctl status' to check on it, 'towerctl stop' to stop it.")
		return nil
	},
}

func init() {
	startCmd.Flags().Int64P("every", "e", 0, "Poll interval magnitude (default from config)")
	startCmd.Flags().StringP("unit", "u", "", "Poll interval unit: seconds, minutes or hours (default from config)")
	startCmd.Flags().Bool("all", false, "Watch every running container")
	startCmd.Flags().String("notify", "", "Notification URL handed to watchtower (e.g. slack://token-a/token-b/token-c)")
	startCmd.Flags().Bool("dry-run", false, "Print the launch command without starting anything")
	rootCmd.AddCommand(startCmd)
}

// startConfigFromFlags builds a fresh StartConfiguration from the config
// defaults, overridden by any flags and positional targets.
func startConfigFromFlags(cmd *cobra.Command, cfg *config.Config, args []string) (watchconfig.StartConfiguration, error) {
	startCfg := cfg.DefaultStart()

	if cmd.Flags().Changed("every") {
		every, _ := cmd.Flags().GetInt64("every")
		startCfg.Magnitude = every
	}
	if cmd.Flags().Changed("unit") {
		raw, _ := cmd.Flags().GetString("unit")
		unit, err := watchconfig.ParseUnit(raw)
		if err != nil {
			return startCfg, err
		}
		startCfg.Unit = unit
	}
	if cmd.Flags().Changed("notify") {
		startCfg.NotificationURL, _ = cmd.Flags().GetString("notify")
	}

	all, _ := cmd.Flags().GetBool("all")
	if len(args) > 0 && !all {
		startCfg.MonitorAll = false
		startCfg.Targets = args
	}

	if _, err := startCfg.Interval(); err != nil {
		return startCfg, err
	}
	return startCfg, nil
}

func targetsOf(cfg watchconfig.StartConfiguration) []string {
	if cfg.MonitorAll {
		return nil
	}
	return cfg.Targets
}
