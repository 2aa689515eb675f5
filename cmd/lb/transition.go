package main

import (
	"fmt"
	"strconv"

	"github.com/loopboard/loopboard/internal/loop"
	"github.com/spf13/cobra"
)

// parseMessageID converts a positional message-ID argument.
func parseMessageID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid message ID %q", arg)
	}
	return uint(id), nil
}

func newSeenCmd() *cobra.Command {
	var (
		configPath string
		as         string
	)

	cmd := &cobra.Command{
		Use:   "seen <message-id>",
		Short: "Mark a message as seen",
		Long:  "Marks a message as seen by its recipient, starting the 15-minute reply clock. Only the recipient may call this.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMessageID(args[0])
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			already, err := loop.MarkSeen(gormDB, id, as)
			if err != nil {
				return err
			}
			if already {
				fmt.Fprintf(cmd.OutOrStdout(), "Message %d was already seen\n", id)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Marked message %d seen\n", id)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "loopboard.yaml", "path to Loopboard config file")
	cmd.Flags().StringVar(&as, "as", "", "caller agent name or ID (required)")
	cmd.MarkFlagRequired("as")
	return cmd
}

func newSeenAllCmd() *cobra.Command {
	var (
		configPath string
		as         string
	)

	cmd := &cobra.Command{
		Use:   "seen-all <message-id>...",
		Short: "Mark multiple messages as seen",
		Long:  "Marks each listed message as seen, continuing past per-item failures and reporting a partial-success summary.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]uint, 0, len(args))
			for _, arg := range args {
				id, err := parseMessageID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}

			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			result, err := loop.MarkMultipleSeen(gormDB, ids, as)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Marked %d messages seen\n", result.Marked)
			for _, f := range result.Failed {
				fmt.Fprintf(out, "  message %d failed: %s\n", f.MessageID, f.Reason)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "loopboard.yaml", "path to Loopboard config file")
	cmd.Flags().StringVar(&as, "as", "", "caller agent name or ID (required)")
	cmd.MarkFlagRequired("as")
	return cmd
}

func newReplyCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "reply <message-id>",
		Short: "Mark a message as replied",
		Long:  "Records that the message has been replied to, starting the 2-hour action clock.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMessageID(args[0])
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			already, err := loop.MarkReplied(gormDB, id)
			if err != nil {
				return err
			}
			if already {
				fmt.Fprintf(cmd.OutOrStdout(), "Message %d was already replied\n", id)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Marked message %d replied\n", id)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "loopboard.yaml", "path to Loopboard config file")
	return cmd
}

func newActedCmd() *cobra.Command {
	var (
		configPath string
		as         string
		taskID     string
	)

	cmd := &cobra.Command{
		Use:   "acted <message-id>",
		Short: "Mark a message as acted on",
		Long:  "Records that the recipient has acted, starting the 24-hour report clock and resolving any reply or action overdue alerts.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMessageID(args[0])
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			already, err := loop.MarkActed(gormDB, id, as, taskID)
			if err != nil {
				return err
			}
			if already {
				fmt.Fprintf(cmd.OutOrStdout(), "Message %d was already acted on\n", id)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Marked message %d acted\n", id)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "loopboard.yaml", "path to Loopboard config file")
	cmd.Flags().StringVar(&as, "as", "", "caller agent name or ID (required)")
	cmd.Flags().StringVar(&taskID, "task-id", "", "linked task ID")
	cmd.MarkFlagRequired("as")
	return cmd
}

func newReportCmd() *cobra.Command {
	var (
		configPath string
		as         string
		report     string
	)

	cmd := &cobra.Command{
		Use:   "report <message-id>",
		Short: "File the final report, closing the loop",
		Long:  "Records the final report, moving the message to its terminal stage and resolving all remaining alerts.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMessageID(args[0])
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			already, err := loop.MarkReported(gormDB, id, as, report)
			if err != nil {
				return err
			}
			if already {
				fmt.Fprintf(cmd.OutOrStdout(), "Message %d was already reported\n", id)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Closed loop on message %d\n", id)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "loopboard.yaml", "path to Loopboard config file")
	cmd.Flags().StringVar(&as, "as", "", "caller agent name or ID (required)")
	cmd.Flags().StringVar(&report, "report", "", "final report text (required)")
	cmd.MarkFlagRequired("as")
	cmd.MarkFlagRequired("report")
	return cmd
}

func newBreakLoopCmd() *cobra.Command {
	var (
		configPath string
		reason     string
	)

	cmd := &cobra.Command{
		Use:   "break-loop <message-id>",
		Short: "Declare a loop broken",
		Long:  "Declares that the loop will not complete for legitimate reasons, suppressing further breach detection and raising a loop_broken alert.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMessageID(args[0])
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			if err := loop.MarkLoopBroken(gormDB, id, reason); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loop broken on message %d: %s\n", id, reason)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "loopboard.yaml", "path to Loopboard config file")
	cmd.Flags().StringVar(&reason, "reason", "", "why the loop will not complete (required)")
	cmd.MarkFlagRequired("reason")
	return cmd
}
