package supervisor

import (
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/switchyard/internal/models"
)

// buildPrompt assembles the full prompt for one incoming message: provider
// guardrails, the agent's system text, the comms protocol, an optional
// one-shot history block after a compaction, the daemon rules, and the
// message itself. The result is hard-truncated at max_prompt_chars.
func (s *Supervisor) buildPrompt(msg *models.Message) string {
	sections := make([]string, 0, 6)
	if g := strings.TrimSpace(s.prov.PromptGuardrails()); g != "" {
		sections = append(sections, g)
	}
	sections = append(sections, strings.TrimSpace(s.agentCfg.System), protocolSection())

	if s.injectHistory && s.buffer.Len() > 0 {
		sections = append(sections, historyBlock(s.buffer.Snapshot()))
		s.injectHistory = false
	}

	sections = append(sections, rulesSection(s.agentCfg.Role), incomingSection(msg))

	prompt := joinSections(sections)
	if len(prompt) > s.agentCfg.MaxPromptChars {
		prompt = prompt[:s.agentCfg.MaxPromptChars]
		s.logf("hard-truncated prompt to max_prompt_chars")
	}
	return prompt
}

func joinSections(sections []string) string {
	kept := make([]string, 0, len(sections))
	for _, sec := range sections {
		if strings.TrimSpace(sec) != "" {
			kept = append(kept, sec)
		}
	}
	return strings.Join(kept, "\n\n")
}

func protocolSection() string {
	return strings.Join([]string{
		"Mandatory pre-task protocol (all agents):",
		"- Use sy send for all inter-agent communication.",
		"- The incoming message below is your task; work it to completion.",
		"- Send results via sy send when done.",
	}, "\n")
}

func rulesSection(role string) string {
	lines := []string{
		"Autonomous daemon rules:",
		"- Do not use AskUserQuestion.",
		"- Route questions to lead via sy send.",
		"- Execute exactly the incoming task.",
		"- Send one summary message when done.",
		"- Task governance: lead manages task queue and assignment ownership.",
	}

	if role == "lead" {
		lines = append(lines,
			"- As lead: create and maintain tasks.",
			"- As lead: define scope and acceptance criteria.",
			"- As lead: ask domain owners to update technical details based on direct work.",
			"- As lead: after a task completes, review and assign the next task.",
		)
	} else {
		lines = append(lines,
			"- Non-lead agents: execute assigned tasks, report results.",
			"- If you discover new ideas, send them to lead.",
		)
	}

	return strings.Join(lines, "\n")
}

func historyBlock(snapshot string) string {
	return strings.Join([]string{
		"════════════════════ RECENT HISTORY (rolling buffer) ════════════════════",
		"The following is your captured stream-json history from before compaction.",
		"Use it to restore recent context and avoid redoing completed work.",
		"══════════════════════════════════════════════════════════════════════════",
		snapshot,
		"═══════════════════════ END RECENT HISTORY ═════════════════════════════",
	}, "\n")
}

func incomingSection(msg *models.Message) string {
	return strings.Join([]string{
		"Incoming message:",
		fmt.Sprintf("- id: %d", msg.ID),
		fmt.Sprintf("- from: %s", msg.FromAgent),
		fmt.Sprintf("- timestamp: %s", msg.Timestamp.UTC().Format(time.RFC3339)),
		fmt.Sprintf("- broadcast: %v", msg.IsBroadcast()),
		"",
		msg.Content,
	}, "\n")
}
