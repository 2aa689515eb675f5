package notify

import (
	"context"
	"fmt"

	"github.com/loopboard/loopboard/internal/models"
	slackapi "github.com/slack-go/slack"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Slack posts alerts to a Slack channel as colored attachments.
type Slack struct {
	client    slackClient
	channelID string
}

// SlackOpts holds parameters for creating a Slack notifier.
type SlackOpts struct {
	Token     string // xoxb-... bot token
	ChannelID string
	// For testing: inject a mock client instead of the real Slack API.
	Client slackClient
}

// NewSlack creates a Slack notifier.
func NewSlack(opts SlackOpts) (*Slack, error) {
	if opts.Client == nil && opts.Token == "" {
		return nil, fmt.Errorf("slack: bot token is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("slack: channel ID is required")
	}

	s := &Slack{client: opts.Client, channelID: opts.ChannelID}
	if s.client == nil {
		s.client = slackapi.New(opts.Token)
	}
	return s, nil
}

func (s *Slack) Name() string { return "slack" }

// Notify posts the alert as a single attachment.
func (s *Slack) Notify(ctx context.Context, alert models.Alert) error {
	attachment := slackapi.Attachment{
		Title: Title(alert),
		Text:  Body(alert),
		Color: SeverityColor(alert.Severity),
		Fields: []slackapi.AttachmentField{
			{Title: "Agent", Value: alert.AgentName, Short: true},
			{Title: "Type", Value: alert.AlertType, Short: true},
		},
	}

	_, _, err := s.client.PostMessageContext(ctx, s.channelID,
		slackapi.MsgOptionAttachments(attachment))
	if err != nil {
		return fmt.Errorf("slack: post alert %d: %w", alert.ID, err)
	}
	return nil
}
