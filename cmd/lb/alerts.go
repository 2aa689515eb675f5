package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/loopboard/loopboard/internal/breach"
	"github.com/spf13/cobra"
)

func newAlertsCmd() *cobra.Command {
	var (
		configPath string
		agent      string
		alertType  string
		status     string
	)

	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List breach alerts",
		Long:  "Lists non-resolved alerts by default; use --status to include resolved ones.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			alerts, err := breach.ListAlerts(gormDB, breach.ListFilters{
				AgentName: agent,
				AlertType: alertType,
				Status:    status,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(alerts) == 0 {
				fmt.Fprintln(out, "No alerts")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tMESSAGE\tAGENT\tTYPE\tSEVERITY\tSTATUS\tESCALATED")
			for _, a := range alerts {
				escalated := a.EscalatedTo
				if escalated == "" {
					escalated = "-"
				}
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\t%s\n",
					a.ID, a.MessageID, a.AgentName, a.AlertType, a.Severity, a.Status, escalated)
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "loopboard.yaml", "path to Loopboard config file")
	cmd.Flags().StringVar(&agent, "agent", "", "filter by accountable agent")
	cmd.Flags().StringVar(&alertType, "type", "", "filter by alert type")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (active, escalated, resolved)")
	return cmd
}
