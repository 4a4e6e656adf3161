package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fullYAML = `
project_dir: /work/myapp
mailbox_db: .switchyard/mailbox.db

agents:
  swarm-lead:
    role: lead
    provider: claude
    system: |
      You coordinate the swarm.
    allowed_tools: "Bash,Edit,Write"
    permission_mode: acceptEdits
    model: claude-sonnet-4-5
    max_history_tokens: 50000
    no_output_timeout_sec: 300
    retry_backoff_sec: 10
    retry_backoff_max_sec: 60
    max_prompt_chars: 80000

  bench-runner:
    role: coder
    provider: codex

dashboard:
  listen: "127.0.0.1:8944"

digest:
  schedule: "0 9 * * *"

alerts:
  slack:
    token: xoxb-test
    channel: C123
  discord:
    token: bot-token
    channel_id: "99887766"
  github:
    token: ghp_test
    owner: org
    repo: swarm-ops
`

const minimalYAML = `
agents:
  solo:
    provider: gemini
`

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ProjectDir != "/work/myapp" {
		t.Errorf("ProjectDir = %q, want %q", cfg.ProjectDir, "/work/myapp")
	}
	if len(cfg.Agents) != 2 {
		t.Fatalf("len(Agents) = %d, want 2", len(cfg.Agents))
	}

	lead := cfg.Agents["swarm-lead"]
	if lead.Name != "swarm-lead" {
		t.Errorf("lead.Name = %q, want %q", lead.Name, "swarm-lead")
	}
	if lead.Role != "lead" {
		t.Errorf("lead.Role = %q, want %q", lead.Role, "lead")
	}
	if lead.Provider != "claude" {
		t.Errorf("lead.Provider = %q, want %q", lead.Provider, "claude")
	}
	if !strings.Contains(lead.System, "coordinate the swarm") {
		t.Errorf("lead.System = %q, want explicit prompt kept", lead.System)
	}
	if lead.AllowedTools != "Bash,Edit,Write" {
		t.Errorf("lead.AllowedTools = %q", lead.AllowedTools)
	}
	if lead.PermissionMode != "acceptEdits" {
		t.Errorf("lead.PermissionMode = %q", lead.PermissionMode)
	}
	if lead.Model != "claude-sonnet-4-5" {
		t.Errorf("lead.Model = %q", lead.Model)
	}
	if lead.MaxHistoryTokens != 50000 {
		t.Errorf("lead.MaxHistoryTokens = %d, want 50000", lead.MaxHistoryTokens)
	}
	if lead.NoOutputTimeoutSec != 300 {
		t.Errorf("lead.NoOutputTimeoutSec = %d, want 300", lead.NoOutputTimeoutSec)
	}
	if lead.RetryBackoffSec != 10 {
		t.Errorf("lead.RetryBackoffSec = %d, want 10", lead.RetryBackoffSec)
	}
	if lead.RetryBackoffMaxSec != 60 {
		t.Errorf("lead.RetryBackoffMaxSec = %d, want 60", lead.RetryBackoffMaxSec)
	}
	if lead.MaxPromptChars != 80000 {
		t.Errorf("lead.MaxPromptChars = %d, want 80000", lead.MaxPromptChars)
	}

	runner := cfg.Agents["bench-runner"]
	if runner.Provider != "codex" {
		t.Errorf("runner.Provider = %q, want %q", runner.Provider, "codex")
	}

	if cfg.Dashboard.Listen != "127.0.0.1:8944" {
		t.Errorf("Dashboard.Listen = %q, want %q", cfg.Dashboard.Listen, "127.0.0.1:8944")
	}
	if cfg.Digest.Schedule != "0 9 * * *" {
		t.Errorf("Digest.Schedule = %q, want %q", cfg.Digest.Schedule, "0 9 * * *")
	}
	if cfg.Alerts.Slack.Channel != "C123" {
		t.Errorf("Alerts.Slack.Channel = %q, want %q", cfg.Alerts.Slack.Channel, "C123")
	}
	if cfg.Alerts.Discord.ChannelID != "99887766" {
		t.Errorf("Alerts.Discord.ChannelID = %q, want %q", cfg.Alerts.Discord.ChannelID, "99887766")
	}
	if cfg.Alerts.GitHub.Owner != "org" || cfg.Alerts.GitHub.Repo != "swarm-ops" {
		t.Errorf("Alerts.GitHub = %q/%q, want org/swarm-ops", cfg.Alerts.GitHub.Owner, cfg.Alerts.GitHub.Repo)
	}
}

func TestParse_MinimalConfig_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	agent := cfg.Agents["solo"]
	if agent.Name != "solo" {
		t.Errorf("Name = %q, want %q", agent.Name, "solo")
	}
	if agent.Role != "coder" {
		t.Errorf("Role = %q, want %q (default)", agent.Role, "coder")
	}
	if agent.Provider != "gemini" {
		t.Errorf("Provider = %q, want %q", agent.Provider, "gemini")
	}
	if !strings.Contains(agent.System, "solo") || !strings.Contains(agent.System, "coder") {
		t.Errorf("System = %q, want generated prompt naming agent and role", agent.System)
	}
	if agent.MaxHistoryTokens != 100000 {
		t.Errorf("MaxHistoryTokens = %d, want 100000 (default)", agent.MaxHistoryTokens)
	}
	if agent.NoOutputTimeoutSec != 600 {
		t.Errorf("NoOutputTimeoutSec = %d, want 600 (default)", agent.NoOutputTimeoutSec)
	}
	if agent.RetryBackoffSec != 30 {
		t.Errorf("RetryBackoffSec = %d, want 30 (default)", agent.RetryBackoffSec)
	}
	if agent.RetryBackoffMaxSec != 300 {
		t.Errorf("RetryBackoffMaxSec = %d, want 300 (default)", agent.RetryBackoffMaxSec)
	}
	if agent.MaxPromptChars != 200000 {
		t.Errorf("MaxPromptChars = %d, want 200000 (default)", agent.MaxPromptChars)
	}
	if cfg.MailboxDB != filepath.Join(".switchyard", "mailbox.db") {
		t.Errorf("MailboxDB = %q, want default", cfg.MailboxDB)
	}
}

func TestParse_ExplicitSystem_NotOverridden(t *testing.T) {
	yaml := `
agents:
  a:
    system: "custom prompt"
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Agents["a"].System != "custom prompt" {
		t.Errorf("System = %q, want %q (should not be overridden)", cfg.Agents["a"].System, "custom prompt")
	}
}

func TestParse_ProviderNormalized(t *testing.T) {
	yaml := `
agents:
  a:
    provider: " Claude "
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Agents["a"].Provider != "claude" {
		t.Errorf("Provider = %q, want %q", cfg.Agents["a"].Provider, "claude")
	}
}

func TestParse_NoAgents(t *testing.T) {
	_, err := Parse([]byte(`project_dir: /tmp`))
	if err == nil {
		t.Fatal("expected error for no agents")
	}
	if !strings.Contains(err.Error(), "at least one agent is required") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "at least one agent is required")
	}
}

func TestParse_UnknownProvider(t *testing.T) {
	yaml := `
agents:
  bad:
    provider: cursor
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if !strings.Contains(err.Error(), `agents.bad.provider "cursor"`) {
		t.Errorf("error = %q, want to name the bad provider", err.Error())
	}
}

func TestParse_NegativeTimeout(t *testing.T) {
	yaml := `
agents:
  a:
    no_output_timeout_sec: -5
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected error for negative timeout")
	}
	if !strings.Contains(err.Error(), "agents.a.no_output_timeout_sec must not be negative") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestParse_MultipleValidationErrors(t *testing.T) {
	yaml := `
agents:
  bad:
    provider: cursor
    retry_backoff_sec: -1
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, `agents.bad.provider "cursor"`) {
		t.Errorf("error missing provider complaint: %s", msg)
	}
	if !strings.Contains(msg, "agents.bad.retry_backoff_sec must not be negative") {
		t.Errorf("error missing backoff complaint: %s", msg)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte(":::invalid"))
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "config: parse:") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "config: parse:")
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "switchyard.yaml")
	if err := os.WriteFile(path, []byte(minimalYAML), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ConfigPath != path {
		t.Errorf("ConfigPath = %q, want %q", cfg.ConfigPath, path)
	}
	if cfg.ProjectDir != dir {
		t.Errorf("ProjectDir = %q, want config dir %q", cfg.ProjectDir, dir)
	}
	want := filepath.Join(dir, ".switchyard", "mailbox.db")
	if cfg.MailboxDB != want {
		t.Errorf("MailboxDB = %q, want %q", cfg.MailboxDB, want)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/switchyard.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "config: read") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "config: read")
	}
}

// --- Fixture-based tests using testdata/ files ---

func TestLoad_FullFixture(t *testing.T) {
	cfg, err := Load("testdata/valid_full.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Agents) != 2 {
		t.Fatalf("len(Agents) = %d, want 2", len(cfg.Agents))
	}
	if cfg.Agents["lead"].Role != "lead" {
		t.Errorf("Agents[lead].Role = %q, want %q", cfg.Agents["lead"].Role, "lead")
	}
	if cfg.Dashboard.Listen != "127.0.0.1:8944" {
		t.Errorf("Dashboard.Listen = %q, want %q", cfg.Dashboard.Listen, "127.0.0.1:8944")
	}
}

func TestLoad_MinimalFixture(t *testing.T) {
	cfg, err := Load("testdata/valid_minimal.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Agents["solo"].Provider != "claude" {
		t.Errorf("Provider = %q, want default %q", cfg.Agents["solo"].Provider, "claude")
	}
	if cfg.Agents["solo"].NoOutputTimeoutSec != 600 {
		t.Errorf("NoOutputTimeoutSec = %d, want default 600", cfg.Agents["solo"].NoOutputTimeoutSec)
	}
}

func TestLoad_NoAgentsFixture(t *testing.T) {
	_, err := Load("testdata/no_agents.yaml")
	if err == nil {
		t.Fatal("expected error for no agents")
	}
	if !strings.Contains(err.Error(), "at least one agent is required") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "at least one agent is required")
	}
}

func TestLoad_InvalidYAMLFixture(t *testing.T) {
	_, err := Load("testdata/invalid.yaml")
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "config: parse:") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "config: parse:")
	}
}

func TestRuntimePaths(t *testing.T) {
	cfg := &Config{ProjectDir: "/work/app"}
	cases := []struct {
		got, want string
	}{
		{cfg.RuntimeDir(), "/work/app/.switchyard"},
		{cfg.LogsDir(), "/work/app/.switchyard/logs"},
		{cfg.PidsDir(), "/work/app/.switchyard/pids"},
		{cfg.StateDir(), "/work/app/.switchyard/state"},
		{cfg.AgentLogPath("alice"), "/work/app/.switchyard/logs/alice.log"},
		{cfg.AgentRawLogPath("alice"), "/work/app/.switchyard/logs/alice.raw.jsonl"},
		{cfg.AgentErrorLogPath("alice"), "/work/app/.switchyard/logs/alice.errors.log"},
		{cfg.AgentStatePath("alice"), "/work/app/.switchyard/state/alice.json"},
		{cfg.AgentPidPath("alice"), "/work/app/.switchyard/pids/alice.pid"},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("path = %q, want %q", c.got, c.want)
		}
	}
}

func TestEnsureRuntimeDirs(t *testing.T) {
	cfg := &Config{ProjectDir: t.TempDir()}
	if err := cfg.EnsureRuntimeDirs(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, dir := range []string{cfg.LogsDir(), cfg.PidsDir(), cfg.StateDir()} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("stat %s: %v", dir, err)
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
	}
}

func TestAgentNames_Sorted(t *testing.T) {
	cfg := &Config{Agents: map[string]AgentConfig{
		"zeta":  {},
		"alpha": {},
		"mid":   {},
	}}
	names := cfg.AgentNames()
	want := []string{"alpha", "mid", "zeta"}
	if len(names) != len(want) {
		t.Fatalf("len(AgentNames) = %d, want %d", len(names), len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("AgentNames = %v, want %v", names, want)
		}
	}
}
