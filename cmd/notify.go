package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brightfame/towerctl/internal/notify"
)

var notifyCmd = &cobra.Command{
	Use:   "notify [url]",
	Short: "List notification channels or check a notification URL",
	Long: `Without arguments, list the notification channels and an example URL for
each. With a URL, check that it is well formed and print the environment
watchtower will be started with. Delivery itself is up to watchtower.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			for _, kind := range notify.Channels {
				fmt.Printf("%-8s %s\n", kind, notify.Placeholder(kind))
			}
			return nil
		}

		url := args[0]
		if err := notify.Validate(url); err != nil {
			return err
		}
		fmt.Printf("Channel: %s\n", notify.KindOf(url))
		for _, kv := range notify.Env(url) {
			fmt.Printf("  -e %s\n", kv)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(notifyCmd)
}
