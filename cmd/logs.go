package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/brightfame/towerctl/internal/docker"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View watchtower's logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		follow, _ := cmd.Flags().GetBool("follow")
		tail, _ := cmd.Flags().GetInt("tail")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		engine, err := newEngine(ctx)
		if err != nil {
			return err
		}
		ctrl, err := observe(ctx, cfg, engine)
		if err != nil {
			return err
		}
		defer ctrl.Close()

		snap := ctrl.Snapshot()
		if !snap.Present() {
			return fmt.Errorf("watchtower is not running")
		}

		// The daemon writes its log to stderr; stdout is passed through as well.
		err = engine.StreamLogs(ctx, snap.Daemon.ID, docker.LogOptions{Follow: follow, Tail: tail}, docker.LogHandlers{
			OnStdout: func(line string) { fmt.Println(line) },
			OnStderr: func(line string) { fmt.Println(line) },
		})
		if err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func init() {
	logsCmd.Flags().BoolP("follow", "f", false, "Follow log output")
	logsCmd.Flags().Int("tail", 50, "Number of lines to show from the end (0 for all)")
	rootCmd.AddCommand(logsCmd)
}
