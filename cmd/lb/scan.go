package main

import (
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/loopboard/loopboard/internal/breach"
	"github.com/loopboard/loopboard/internal/config"
	"github.com/loopboard/loopboard/internal/notify"
	"github.com/spf13/cobra"
)

func newScanCmd() *cobra.Command {
	var (
		configPath string
		once       bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run the breach scanner",
		Long:  "Sweeps open loops for missed deadlines and raises alerts. Runs continuously on the configured cadence unless --once is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			if once {
				result, err := breach.Scan(gormDB, time.Now())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Checked %d messages, raised %d alerts\n",
					result.Scanned, len(result.Created))
				for _, a := range result.Created {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s %s for message %d (agent %s)\n",
						a.Severity, a.AlertType, a.MessageID, a.AgentName)
				}
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return breach.RunDaemon(ctx, gormDB, breach.DaemonOpts{
				Interval:  cfg.Scanner.IntervalDuration(),
				Schedule:  cfg.Scanner.Schedule,
				Notifiers: buildNotifiers(cfg),
				Out:       cmd.OutOrStdout(),
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "loopboard.yaml", "path to Loopboard config file")
	cmd.Flags().BoolVar(&once, "once", false, "run a single sweep and exit")
	return cmd
}

// buildNotifiers creates a notifier per configured platform. Misconfigured
// platforms are logged and skipped rather than blocking the scanner.
func buildNotifiers(cfg *config.Config) []notify.Notifier {
	var notifiers []notify.Notifier

	if cfg.Notify.Slack.Token != "" {
		n, err := notify.NewSlack(notify.SlackOpts{
			Token:     cfg.Notify.Slack.Token,
			ChannelID: cfg.Notify.Slack.Channel,
		})
		if err != nil {
			log.Printf("slack notifier disabled: %v", err)
		} else {
			notifiers = append(notifiers, n)
		}
	}

	if cfg.Notify.Discord.Token != "" {
		n, err := notify.NewDiscord(notify.DiscordOpts{
			Token:     cfg.Notify.Discord.Token,
			ChannelID: cfg.Notify.Discord.Channel,
		})
		if err != nil {
			log.Printf("discord notifier disabled: %v", err)
		} else {
			notifiers = append(notifiers, n)
		}
	}

	return notifiers
}
