package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/brightfame/towerctl/internal/config"
	"github.com/brightfame/towerctl/internal/constants"
	"github.com/brightfame/towerctl/internal/docker"
	"github.com/brightfame/towerctl/internal/panel"
)

var (
	verbose    bool
	configPath string
)

// newEngine connects to the container engine. Tests replace it with a fake.
var newEngine = func(ctx context.Context) (docker.Engine, error) {
	return docker.NewClient(ctx)
}

var rootCmd = &cobra.Command{
	Use:           "towerctl",
	Short:         "towerctl - control panel for the watchtower update daemon",
	Long:          "towerctl starts, stops and inspects a watchtower container that keeps your running containers up to date.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(os.Stderr)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose (debug) logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", constants.ConfigFile, "Path to the towerctl.toml config file")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func setupLogging(w io.Writer) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// loadConfig loads the config file named by --config. A missing file yields defaults.
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// newController loads the config, connects to the engine and takes a first
// observation so the controller reflects the live state.
func newController(ctx context.Context, cfg *config.Config) (*panel.Controller, error) {
	engine, err := newEngine(ctx)
	if err != nil {
		return nil, err
	}
	return observe(ctx, cfg, engine)
}

// observe builds a controller over engine and refreshes it once.
func observe(ctx context.Context, cfg *config.Config, engine docker.Engine) (*panel.Controller, error) {
	ctrl := panel.New(engine, panel.Options{
		Daemon:   cfg.DaemonIdentity(),
		LogLines: cfg.Panel.LogLines,
	})
	if _, err := ctrl.Refresh(ctx); err != nil {
		ctrl.Close()
		return nil, err
	}
	return ctrl, nil
}

// formatTargets renders a target list, or "all containers" when it is empty.
func formatTargets(targets []string) string {
	if len(targets) == 0 {
		return "all containers"
	}
	return strings.Join(targets, ", ")
}

// formatInterval formats seconds into a human-readable string like "2h 15m 30s".
func formatInterval(secs uint64) string {
	h := secs / 3600
	m := secs / 60 % 60
	s := secs % 60

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// formatRelativeTime formats a time.Time as a relative string like "2m ago".
func formatRelativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
