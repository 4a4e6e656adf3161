package provider

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	geminiCodeRe    = regexp.MustCompile(`"code"\s*:\s*(\d{3})`)
	geminiStatusRe  = regexp.MustCompile(`"status"\s*:\s*"([^"]+)"`)
	geminiMessageRe = regexp.MustCompile(`"message"\s*:\s*"([^"]{1,120})`)
)

// geminiApprovalModes maps the shared permission-mode vocabulary onto
// gemini's --approval-mode values. Unknown modes pass through verbatim.
var geminiApprovalModes = map[string]string{
	"bypassPermissions": "yolo",
	"acceptEdits":       "auto_edit",
	"plan":              "plan",
}

type gemini struct {
	opts Options
}

func newGemini(opts Options) Provider {
	return &gemini{opts: opts}
}

func (g *gemini) Name() string { return "gemini" }

func (g *gemini) BuildCommand(prompt string, useResume bool) []string {
	cmd := []string{"gemini", "--prompt", prompt, "--output-format", "stream-json"}
	if useResume {
		cmd = append(cmd, "--resume", "latest")
	}
	if g.opts.PermissionMode != "" {
		mode, ok := geminiApprovalModes[g.opts.PermissionMode]
		if !ok {
			mode = g.opts.PermissionMode
		}
		cmd = append(cmd, "--approval-mode", mode)
	}
	if g.opts.AllowedTools != "" {
		for _, tool := range strings.Fields(strings.ReplaceAll(g.opts.AllowedTools, ",", " ")) {
			cmd = append(cmd, "--allowed-tools", tool)
		}
	}
	if g.opts.Model != "" {
		cmd = append(cmd, "--model", g.opts.Model)
	}
	return cmd
}

func (g *gemini) SupportsResume() bool { return true }

func (g *gemini) ResumeLabel() string { return "gemini --resume latest" }

// PromptGuardrails pins gemini to its agent identity and stops unsolicited
// exploration, which gemini is prone to in daemon use.
func (g *gemini) PromptGuardrails() string {
	name := g.opts.Agent
	return strings.Join([]string{
		fmt.Sprintf("CRITICAL IDENTITY: You are %s. Not gemini-benchmarker, not any other name. You are %s.", name, name),
		fmt.Sprintf("When running mailbox commands, always use --name %s or --agent %s. Never substitute another name.", name, name),
		"",
		"EXECUTION DISCIPLINE:",
		"- Run ONLY the commands listed. Do not explore, search, or investigate on your own.",
		"- After completing the listed commands, STOP. Do not look for tasks, read files, or take initiative.",
		"- Wait for messages to arrive via the daemon polling loop. You will be invoked again when there is work.",
		"- One response = one task. No chaining, no speculative exploration.",
	}, "\n")
}

// FilterLogLine condenses gemini's oversized error payloads into a one-line
// summary, preserving the original in the error log.
func (g *gemini) FilterLogLine(line, errorLog string) string {
	stripped := strings.TrimRight(line, "\n")
	if stripped == "" || len(stripped) <= maxPassthroughChars {
		return line
	}

	summary := g.classifyError(stripped)
	if summary == "" {
		return line
	}
	appendErrorLog(errorLog, stripped)
	return fmt.Sprintf("[%s] %s. Full error: %s\n", g.opts.Agent, summary, errorLog)
}

// classifyError extracts code/status/message from gemini's verbose error
// output: structured JSON first, then raw-text regex patterns, then the
// generic oversized-line summary.
func (g *gemini) classifyError(line string) string {
	var payload struct {
		Error struct {
			Code    json.RawMessage `json:"code"`
			Status  string          `json:"status"`
			Message string          `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(line), &payload); err == nil {
		code := rawScalar(payload.Error.Code)
		if code != "" || payload.Error.Status != "" {
			status := payload.Error.Status
			if status == "" {
				status = "ERROR"
			}
			return fmt.Sprintf("%s (%s) — %s", status, code, clip(payload.Error.Message, 120))
		}
	}

	if m := geminiCodeRe.FindStringSubmatch(line); m != nil {
		status := "ERROR"
		if sm := geminiStatusRe.FindStringSubmatch(line); sm != nil {
			status = sm[1]
		}
		msg := ""
		if mm := geminiMessageRe.FindStringSubmatch(line); mm != nil {
			msg = mm[1]
		}
		return fmt.Sprintf("%s (%s) — %s", status, m[1], msg)
	}

	return extractErrorSummary(line)
}
