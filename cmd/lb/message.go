package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/loopboard/loopboard/internal/loop"
	"github.com/spf13/cobra"
)

func newSendCmd() *cobra.Command {
	var (
		configPath string
		from       string
		to         string
		msgType    string
		content    string
		taskID     string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a message to an agent",
		Long:  "Creates a new loop: a message from one agent to another, tracked through seen, replied, acted, and reported.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			msg, err := loop.Send(gormDB, from, to, msgType, content, loop.SendOpts{
				LinkedTaskID: taskID,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Sent message %d to %s\n", msg.ID, to)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "loopboard.yaml", "path to Loopboard config file")
	cmd.Flags().StringVar(&from, "from", "", "sender agent name (required)")
	cmd.Flags().StringVar(&to, "to", "", "recipient agent name (required)")
	cmd.Flags().StringVar(&msgType, "type", "update", "message type (handoff, update, request, fyi)")
	cmd.Flags().StringVar(&content, "content", "", "message content (required)")
	cmd.Flags().StringVar(&taskID, "task-id", "", "linked task ID")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	cmd.MarkFlagRequired("content")
	return cmd
}

func newInboxCmd() *cobra.Command {
	var (
		configPath string
		agent      string
	)

	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "View an agent's open loops",
		Long:  "Lists messages addressed to an agent that have not yet been reported, ordered by creation time.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			msgs, err := loop.Inbox(gormDB, agent)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(msgs) == 0 {
				fmt.Fprintf(out, "No open loops for %s\n", agent)
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tFROM\tTYPE\tSTATUS\tCREATED")
			for _, m := range msgs {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					m.ID, m.FromAgent, m.Type, m.StatusCode,
					m.CreatedAt.Format("2006-01-02 15:04"))
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "loopboard.yaml", "path to Loopboard config file")
	cmd.Flags().StringVar(&agent, "agent", "", "agent name to check (required)")
	cmd.MarkFlagRequired("agent")
	return cmd
}
