package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lb",
		Short: "Loopboard agent fleet loop monitoring",
		Long:  "Loopboard tracks inter-agent messages through the loop protocol and raises alerts when a stage overruns its deadline.",
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newDBCmd())
	cmd.AddCommand(newSendCmd())
	cmd.AddCommand(newInboxCmd())
	cmd.AddCommand(newSeenCmd())
	cmd.AddCommand(newSeenAllCmd())
	cmd.AddCommand(newReplyCmd())
	cmd.AddCommand(newActedCmd())
	cmd.AddCommand(newReportCmd())
	cmd.AddCommand(newBreakLoopCmd())
	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newAlertsCmd())
	cmd.AddCommand(newDashboardCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lb %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
