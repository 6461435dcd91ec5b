package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/brightfame/towerctl/internal/docker"
	"github.com/brightfame/towerctl/internal/reconciler"
)

var containersCmd = &cobra.Command{
	Use:     "containers",
	Aliases: []string{"ps"},
	Short:   "List the containers watchtower can watch",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		engine, err := newEngine(cmd.Context())
		if err != nil {
			return err
		}

		all, _ := cmd.Flags().GetBool("all")
		list, err := engine.ListContainers(cmd.Context(), docker.ListOptions{RunningOnly: !all})
		if err != nil {
			return err
		}

		if len(list) == 0 {
			fmt.Println("No containers found.")
			return nil
		}

		daemon := reconciler.FindDaemon(cfg.DaemonIdentity(), list)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CONTAINER ID\tNAME\tIMAGE\tSTATE\tSTATUS")
		for i := range list {
			c := &list[i]
			name := c.Name()
			if daemon != nil && c.ID == daemon.ID {
				name += " (watchtower)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.ShortID(), name, c.Image, c.State, c.Status)
		}
		return w.Flush()
	},
}

func init() {
	containersCmd.Flags().BoolP("all", "a", false, "Include stopped containers")
	rootCmd.AddCommand(containersCmd)
}
