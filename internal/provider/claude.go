package provider

type claude struct {
	opts Options
}

func newClaude(opts Options) Provider {
	return &claude{opts: opts}
}

func (c *claude) Name() string { return "claude" }

func (c *claude) BuildCommand(prompt string, useResume bool) []string {
	cmd := []string{
		"claude",
		"-p", prompt,
		"--output-format", "stream-json",
		"--verbose",
		"--continue",
	}
	if c.opts.AllowedTools != "" {
		cmd = append(cmd, "--allowed-tools", c.opts.AllowedTools)
	}
	if c.opts.PermissionMode != "" {
		cmd = append(cmd, "--permission-mode", c.opts.PermissionMode)
	}
	if c.opts.Model != "" {
		cmd = append(cmd, "--model", c.opts.Model)
	}
	return cmd
}

// SupportsResume is false: session continuation is baked into the fresh
// command via --continue, so there is no separate resume flavor.
func (c *claude) SupportsResume() bool { return false }

func (c *claude) ResumeLabel() string { return "" }

// PromptGuardrails is empty; claude follows the daemon rules without
// reinforcement.
func (c *claude) PromptGuardrails() string { return "" }

func (c *claude) FilterLogLine(line, errorLog string) string { return line }
