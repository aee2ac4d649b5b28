package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"scentpanel/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "scentctl",
		Short: "scentctl - operate the scentpanel room controller",
		Long: `scentctl is an operator tool for the scentpanel room rig.
It talks to a running scentpanel service to inspect the controller
state, read the last recorded rig error, drive the raw
pressurize/select/open sequence for bench work, and force the rig
back to standby when a panelist workflow left it wedged.`,
	}

	rootCmd.PersistentFlags().String("server", "http://localhost:8080", "scentpanel API base URL")

	rootCmd.AddCommand(cli.StatusCmd())
	rootCmd.AddCommand(cli.ErrorCmd())
	rootCmd.AddCommand(cli.PressurizeCmd())
	rootCmd.AddCommand(cli.SelectCmd())
	rootCmd.AddCommand(cli.OpenCmd())
	rootCmd.AddCommand(cli.StandbyCmd())
	rootCmd.AddCommand(cli.WatchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
