package provider

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var codexCapacityRe = regexp.MustCompile(`(?i)(capacity\s+exhausted|rate\s*limit|overloaded)`)

type codex struct {
	opts Options
}

func newCodex(opts Options) Provider {
	return &codex{opts: opts}
}

func (c *codex) Name() string { return "codex" }

func (c *codex) BuildCommand(prompt string, useResume bool) []string {
	cmd := []string{"codex", "exec"}
	if useResume {
		cmd = append(cmd, "resume", "--last")
	}
	cmd = append(cmd, "--json")
	if c.opts.PermissionMode == "bypassPermissions" {
		cmd = append(cmd, "-c", `sandbox_permissions=["disk-full-read-access"]`)
	}
	if c.opts.Model != "" {
		cmd = append(cmd, "--model", c.opts.Model)
	}
	return append(cmd, prompt)
}

func (c *codex) SupportsResume() bool { return true }

func (c *codex) ResumeLabel() string { return "codex resume --last" }

func (c *codex) PromptGuardrails() string {
	return strings.Join([]string{
		fmt.Sprintf("You are %s. Run only the commands listed, then stop.", c.opts.Agent),
		"Do not explore the codebase or take initiative beyond the task.",
	}, "\n")
}

// FilterLogLine condenses codex's oversized diagnostic dumps into a one-line
// summary, preserving the original in the error log.
func (c *codex) FilterLogLine(line, errorLog string) string {
	stripped := strings.TrimRight(line, "\n")
	if stripped == "" || len(stripped) <= maxPassthroughChars {
		return line
	}

	summary := c.classifyError(stripped)
	if summary == "" {
		return line
	}
	appendErrorLog(errorLog, stripped)
	return fmt.Sprintf("[%s] %s. Full error: %s\n", c.opts.Agent, summary, errorLog)
}

// classifyError extracts a short summary from codex's verbose output: a
// structured error message, a capacity/rate-limit phrase, or the generic
// oversized-line summary.
func (c *codex) classifyError(line string) string {
	var payload struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal([]byte(line), &payload); err == nil {
		msg := payload.Message
		if len(payload.Error) > 0 {
			var s string
			if err := json.Unmarshal(payload.Error, &s); err == nil {
				msg = s
			} else {
				var body struct {
					Message string `json:"message"`
				}
				if err := json.Unmarshal(payload.Error, &body); err == nil {
					msg = body.Message
				}
			}
		}
		if msg != "" {
			return fmt.Sprintf("CODEX_ERROR — %s", clip(msg, 120))
		}
	}

	if m := codexCapacityRe.FindStringSubmatch(line); m != nil {
		return fmt.Sprintf("CODEX_ERROR — %s", m[1])
	}
	return extractErrorSummary(line)
}
