package alerts

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// discordSession abstracts the discordgo.Session methods we use, enabling
// test mocks.
type discordSession interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	Close() error
}

// Discord posts escalations to a Discord channel. Delivery goes over the
// REST API; no gateway connection is opened.
type Discord struct {
	sess      discordSession
	channelID string
}

// DiscordOpts holds parameters for creating a Discord sink.
type DiscordOpts struct {
	Token     string // Discord bot token
	ChannelID string // channel to post to
	// For testing: inject a mock session instead of the real Discord API.
	Session discordSession
}

// NewDiscord creates a Discord sink.
func NewDiscord(opts DiscordOpts) (*Discord, error) {
	if opts.Session == nil && opts.Token == "" {
		return nil, fmt.Errorf("alerts: discord: bot token is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("alerts: discord: channel_id is required")
	}

	d := &Discord{sess: opts.Session, channelID: opts.ChannelID}
	if d.sess == nil {
		dg, err := discordgo.New("Bot " + opts.Token)
		if err != nil {
			return nil, fmt.Errorf("alerts: discord: create session: %w", err)
		}
		d.sess = dg
	}
	return d, nil
}

// Name implements Notifier.
func (d *Discord) Name() string { return "discord" }

// Post sends text to the configured channel.
func (d *Discord) Post(ctx context.Context, text string) error {
	_, err := d.sess.ChannelMessageSend(d.channelID, text, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("alerts: discord: send message: %w", err)
	}
	return nil
}

// Close shuts down the underlying session.
func (d *Discord) Close() error { return d.sess.Close() }
