package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/loopboard/loopboard/internal/models"
)

// discordSession abstracts the discordgo.Session methods we use, enabling
// test mocks.
type discordSession interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts alerts to a Discord channel as embeds.
type Discord struct {
	sess      discordSession
	channelID string
}

// DiscordOpts holds parameters for creating a Discord notifier.
type DiscordOpts struct {
	Token     string // bot token without the "Bot " prefix
	ChannelID string
	// For testing: inject a mock session instead of the real gateway.
	Session discordSession
}

// NewDiscord creates a Discord notifier.
func NewDiscord(opts DiscordOpts) (*Discord, error) {
	if opts.Session == nil && opts.Token == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("discord: channel ID is required")
	}

	d := &Discord{sess: opts.Session, channelID: opts.ChannelID}
	if d.sess == nil {
		sess, err := discordgo.New("Bot " + opts.Token)
		if err != nil {
			return nil, fmt.Errorf("discord: create session: %w", err)
		}
		d.sess = sess
	}
	return d, nil
}

func (d *Discord) Name() string { return "discord" }

// Notify posts the alert as an embed with a severity-colored sidebar.
func (d *Discord) Notify(ctx context.Context, alert models.Alert) error {
	embed := &discordgo.MessageEmbed{
		Title:       Title(alert),
		Description: Body(alert),
		Color:       hexColor(SeverityColor(alert.Severity)),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Agent", Value: alert.AgentName, Inline: true},
			{Name: "Type", Value: alert.AlertType, Inline: true},
		},
	}

	if _, err := d.sess.ChannelMessageSendEmbed(d.channelID, embed,
		discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: post alert %d: %w", alert.ID, err)
	}
	return nil
}

// hexColor converts "#rrggbb" to the integer form Discord embeds use.
func hexColor(s string) int {
	n, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 16, 32)
	if err != nil {
		return 0
	}
	return int(n)
}
