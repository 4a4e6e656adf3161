// Package alerts mirrors agent escalations to external sinks: Slack,
// Discord, and GitHub issues. Sinks are optional, configured independently,
// and fail independently.
package alerts

import (
	"context"
	"log"

	"github.com/zulandar/switchyard/internal/config"
)

// Notifier is a single escalation sink.
type Notifier interface {
	// Name identifies the sink in logs.
	Name() string
	// Post delivers one escalation notice.
	Post(ctx context.Context, text string) error
	// Close releases any underlying connection.
	Close() error
}

// Multi fans an escalation out to every configured sink. Per-sink delivery
// errors are logged and swallowed: an unreachable sink must not take the
// agent daemon down with it.
type Multi struct {
	sinks []Notifier
	logf  func(format string, args ...interface{})
}

// NewMulti builds a fanout over the given sinks.
func NewMulti(sinks ...Notifier) *Multi {
	return &Multi{sinks: sinks, logf: log.Printf}
}

// FromConfig constructs the sinks whose credentials are present in cfg.
// Unconfigured sinks are skipped; a half-configured sink is an error.
func FromConfig(cfg config.AlertsConfig) (*Multi, error) {
	var sinks []Notifier

	if cfg.Slack.Token != "" || cfg.Slack.Channel != "" {
		s, err := NewSlack(SlackOpts{Token: cfg.Slack.Token, Channel: cfg.Slack.Channel})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if cfg.Discord.Token != "" || cfg.Discord.ChannelID != "" {
		d, err := NewDiscord(DiscordOpts{Token: cfg.Discord.Token, ChannelID: cfg.Discord.ChannelID})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, d)
	}
	if cfg.GitHub.Token != "" || cfg.GitHub.Owner != "" || cfg.GitHub.Repo != "" {
		g, err := NewGitHub(GitHubOpts{Token: cfg.GitHub.Token, Owner: cfg.GitHub.Owner, Repo: cfg.GitHub.Repo})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, g)
	}

	return NewMulti(sinks...), nil
}

// Post delivers text to every sink. It never fails the caller.
func (m *Multi) Post(ctx context.Context, text string) {
	for _, s := range m.sinks {
		if err := s.Post(ctx, text); err != nil {
			m.logf("alerts: %s: %v", s.Name(), err)
		}
	}
}

// Close closes every sink, logging close errors.
func (m *Multi) Close() {
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			m.logf("alerts: close %s: %v", s.Name(), err)
		}
	}
}

// Len reports how many sinks are configured.
func (m *Multi) Len() int { return len(m.sinks) }
