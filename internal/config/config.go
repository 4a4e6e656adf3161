// Package config provides YAML-based configuration loading for Switchyard.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Providers lists the external CLI tools an agent may wrap.
var Providers = []string{"claude", "codex", "gemini", "opencode"}

// Config is the top-level Switchyard configuration, loaded from switchyard.yaml.
type Config struct {
	ConfigPath string                 `yaml:"-"`
	ProjectDir string                 `yaml:"project_dir"`
	MailboxDB  string                 `yaml:"mailbox_db"`
	Agents     map[string]AgentConfig `yaml:"agents"`
	Dashboard  DashboardConfig        `yaml:"dashboard"`
	Digest     DigestConfig           `yaml:"digest"`
	Alerts     AlertsConfig           `yaml:"alerts"`
}

// AgentConfig defines one swarm agent: which CLI it wraps and how its
// daemon behaves.
type AgentConfig struct {
	Name               string `yaml:"-"`
	Role               string `yaml:"role"`
	Provider           string `yaml:"provider"`
	System             string `yaml:"system"`
	AllowedTools       string `yaml:"allowed_tools"`
	PermissionMode     string `yaml:"permission_mode"`
	Model              string `yaml:"model"`
	MaxHistoryTokens   int    `yaml:"max_history_tokens"`
	NoOutputTimeoutSec int    `yaml:"no_output_timeout_sec"`
	RetryBackoffSec    int    `yaml:"retry_backoff_sec"`
	RetryBackoffMaxSec int    `yaml:"retry_backoff_max_sec"`
	MaxPromptChars     int    `yaml:"max_prompt_chars"`
}

// DashboardConfig holds the optional status dashboard's listen address.
// Empty disables the dashboard.
type DashboardConfig struct {
	Listen string `yaml:"listen"`
}

// DigestConfig schedules the periodic swarm digest sent to the lead agent.
// Empty schedule disables it.
type DigestConfig struct {
	Schedule string `yaml:"schedule"`
}

// AlertsConfig configures the escalation sinks. Each sink is enabled by
// filling in its credentials.
type AlertsConfig struct {
	Slack   SlackAlertConfig   `yaml:"slack"`
	Discord DiscordAlertConfig `yaml:"discord"`
	GitHub  GitHubAlertConfig  `yaml:"github"`
}

// SlackAlertConfig posts escalations to a Slack channel.
type SlackAlertConfig struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// DiscordAlertConfig posts escalations to a Discord channel.
type DiscordAlertConfig struct {
	Token     string `yaml:"token"`
	ChannelID string `yaml:"channel_id"`
}

// GitHubAlertConfig opens a GitHub issue per escalation.
type GitHubAlertConfig struct {
	Token string `yaml:"token"`
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`
}

// Load reads a YAML config file from path and returns a validated Config
// with all paths resolved relative to the file's directory.
func Load(path string) (*Config, error) {
	abs, err := filepath.Abs(expandHome(path))
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.ConfigPath = abs
	cfg.resolvePaths(filepath.Dir(abs))
	return cfg, nil
}

// Parse unmarshals YAML bytes into a validated Config. Paths are left as
// written; Load resolves them.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// AgentNames returns the configured agent names in sorted order.
func (c *Config) AgentNames() []string {
	names := make([]string, 0, len(c.Agents))
	for name := range c.Agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RuntimeDir is the per-project directory holding logs, pidfiles and
// state snapshots.
func (c *Config) RuntimeDir() string { return filepath.Join(c.ProjectDir, ".switchyard") }

// LogsDir holds per-agent log files.
func (c *Config) LogsDir() string { return filepath.Join(c.RuntimeDir(), "logs") }

// PidsDir holds per-agent pidfiles.
func (c *Config) PidsDir() string { return filepath.Join(c.RuntimeDir(), "pids") }

// StateDir holds per-agent status snapshots.
func (c *Config) StateDir() string { return filepath.Join(c.RuntimeDir(), "state") }

// AgentLogPath is the agent's human-readable daemon log.
func (c *Config) AgentLogPath(name string) string {
	return filepath.Join(c.LogsDir(), name+".log")
}

// AgentRawLogPath is the agent's complete unfiltered stream log.
func (c *Config) AgentRawLogPath(name string) string {
	return filepath.Join(c.LogsDir(), name+".raw.jsonl")
}

// AgentErrorLogPath collects untruncated provider error dumps.
func (c *Config) AgentErrorLogPath(name string) string {
	return filepath.Join(c.LogsDir(), name+".errors.log")
}

// AgentStatePath is the agent's persisted runtime snapshot.
func (c *Config) AgentStatePath(name string) string {
	return filepath.Join(c.StateDir(), name+".json")
}

// AgentPidPath is the agent daemon's pidfile.
func (c *Config) AgentPidPath(name string) string {
	return filepath.Join(c.PidsDir(), name+".pid")
}

// EnsureRuntimeDirs creates the runtime directory tree.
func (c *Config) EnsureRuntimeDirs() error {
	for _, dir := range []string{c.LogsDir(), c.PidsDir(), c.StateDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	return nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.MailboxDB == "" {
		c.MailboxDB = filepath.Join(".switchyard", "mailbox.db")
	}
	for name, agent := range c.Agents {
		agent.Name = name
		if agent.Role == "" {
			agent.Role = "coder"
		}
		if agent.Provider == "" {
			agent.Provider = "claude"
		}
		agent.Provider = strings.ToLower(strings.TrimSpace(agent.Provider))
		if strings.TrimSpace(agent.System) == "" {
			agent.System = fmt.Sprintf(
				"You are %s (%s) running under switchyard. "+
					"Check your mailbox, execute tasks, and report back through the mailbox.",
				name, agent.Role)
		}
		if agent.MaxHistoryTokens == 0 {
			agent.MaxHistoryTokens = 100_000
		}
		if agent.NoOutputTimeoutSec == 0 {
			agent.NoOutputTimeoutSec = 600
		}
		if agent.RetryBackoffSec == 0 {
			agent.RetryBackoffSec = 30
		}
		if agent.RetryBackoffMaxSec == 0 {
			agent.RetryBackoffMaxSec = 300
		}
		if agent.MaxPromptChars == 0 {
			agent.MaxPromptChars = 200_000
		}
		c.Agents[name] = agent
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if len(c.Agents) == 0 {
		errs = append(errs, "at least one agent is required")
	}
	for _, name := range c.AgentNames() {
		agent := c.Agents[name]
		if !validProvider(agent.Provider) {
			errs = append(errs, fmt.Sprintf("agents.%s.provider %q is not one of: %s",
				name, agent.Provider, strings.Join(Providers, ", ")))
		}
		if agent.MaxHistoryTokens < 0 {
			errs = append(errs, fmt.Sprintf("agents.%s.max_history_tokens must not be negative", name))
		}
		if agent.NoOutputTimeoutSec < 0 {
			errs = append(errs, fmt.Sprintf("agents.%s.no_output_timeout_sec must not be negative", name))
		}
		if agent.RetryBackoffSec < 0 {
			errs = append(errs, fmt.Sprintf("agents.%s.retry_backoff_sec must not be negative", name))
		}
		if agent.RetryBackoffMaxSec < 0 {
			errs = append(errs, fmt.Sprintf("agents.%s.retry_backoff_max_sec must not be negative", name))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validProvider(p string) bool {
	for _, known := range Providers {
		if p == known {
			return true
		}
	}
	return false
}

// resolvePaths makes ProjectDir and MailboxDB absolute. ProjectDir defaults
// to the config file's directory; MailboxDB resolves against ProjectDir.
func (c *Config) resolvePaths(cfgDir string) {
	if c.ProjectDir == "" {
		c.ProjectDir = cfgDir
	} else {
		c.ProjectDir = resolveAgainst(c.ProjectDir, cfgDir)
	}
	c.MailboxDB = resolveAgainst(c.MailboxDB, c.ProjectDir)
}

func resolveAgainst(path, base string) string {
	path = expandHome(path)
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
