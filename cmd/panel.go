package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/brightfame/towerctl/internal/panel"
	"github.com/brightfame/towerctl/internal/tui"
)

var panelCmd = &cobra.Command{
	Use:   "panel",
	Short: "Open the interactive control panel",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		// Logs would corrupt the alternate screen; send them to a file or nowhere.
		logOut := io.Discard
		if cfg.Panel.LogFile != "" {
			f, err := os.OpenFile(cfg.Panel.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				return fmt.Errorf("failed to open log file: %w", err)
			}
			defer func() { _ = f.Close() }()
			logOut = f
		}
		setupLogging(logOut)

		engine, err := newEngine(cmd.Context())
		if err != nil {
			return err
		}
		ctrl := panel.New(engine, panel.Options{
			Daemon:   cfg.DaemonIdentity(),
			LogLines: cfg.Panel.LogLines,
		})
		defer ctrl.Close()

		return tui.Run(ctrl, tui.Options{
			Poll:     cfg.Panel.Poll,
			Defaults: cfg.DefaultStart(),
		})
	},
}

func init() {
	rootCmd.AddCommand(panelCmd)
}
