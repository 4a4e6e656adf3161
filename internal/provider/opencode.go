package provider

import (
	"fmt"
	"strings"
)

type opencode struct {
	opts Options
}

func newOpencode(opts Options) Provider {
	return &opencode{opts: opts}
}

func (o *opencode) Name() string { return "opencode" }

func (o *opencode) BuildCommand(prompt string, useResume bool) []string {
	cmd := []string{"opencode", "run", "--format", "json"}
	if useResume {
		cmd = append(cmd, "--continue")
	}
	if o.opts.Model != "" {
		cmd = append(cmd, "--model", o.opts.Model)
	}
	return append(cmd, prompt)
}

func (o *opencode) SupportsResume() bool { return true }

func (o *opencode) ResumeLabel() string { return "opencode --continue" }

func (o *opencode) PromptGuardrails() string {
	return strings.Join([]string{
		fmt.Sprintf("You are %s. Run only the commands listed, then stop.", o.opts.Agent),
		"Do not explore the codebase or take initiative beyond the task.",
	}, "\n")
}

func (o *opencode) FilterLogLine(line, errorLog string) string { return line }
