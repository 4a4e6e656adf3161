package alerts

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"
)

// slackClient abstracts the Slack API method we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Slack posts escalations to a Slack channel via chat.postMessage.
type Slack struct {
	client  slackClient
	channel string
}

// SlackOpts holds parameters for creating a Slack sink.
type SlackOpts struct {
	Token   string // xoxb-... Slack bot token
	Channel string // channel ID to post to
	// For testing: inject a mock client instead of the real Slack API.
	Client slackClient
}

// NewSlack creates a Slack sink.
func NewSlack(opts SlackOpts) (*Slack, error) {
	if opts.Client == nil && opts.Token == "" {
		return nil, fmt.Errorf("alerts: slack: bot token is required")
	}
	if opts.Channel == "" {
		return nil, fmt.Errorf("alerts: slack: channel is required")
	}

	s := &Slack{client: opts.Client, channel: opts.Channel}
	if s.client == nil {
		s.client = slackapi.New(opts.Token)
	}
	return s, nil
}

// Name implements Notifier.
func (s *Slack) Name() string { return "slack" }

// Post sends text to the configured channel.
func (s *Slack) Post(ctx context.Context, text string) error {
	_, _, err := s.client.PostMessageContext(ctx, s.channel, slackapi.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("alerts: slack: post message: %w", err)
	}
	return nil
}

// Close implements Notifier. The Slack client holds no connection.
func (s *Slack) Close() error { return nil }
