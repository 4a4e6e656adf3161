// Package provider adapts the external AI CLI tools an agent can wrap. Each
// adapter knows how to build its tool's invocation, whether the tool can
// resume a prior session, and how to condense the tool's noisier output.
package provider

import (
	"fmt"
	"sort"
	"strings"
)

// Options configure an adapter for one agent.
type Options struct {
	Agent          string
	AllowedTools   string
	PermissionMode string
	Model          string
}

// Provider is the capability set the supervisor drives. All provider
// branching lives behind this interface; the supervisor never switches on
// provider names.
type Provider interface {
	// Name returns the registry name of the provider.
	Name() string

	// BuildCommand constructs the full argv for one invocation. With
	// useResume the command re-attaches to the provider's previous session
	// instead of starting fresh.
	BuildCommand(prompt string, useResume bool) []string

	// SupportsResume reports whether the tool has a distinct resume-flavored
	// invocation.
	SupportsResume() bool

	// ResumeLabel names the resume invocation for log lines. Empty when
	// resume is unsupported.
	ResumeLabel() string

	// PromptGuardrails returns reinforcement text appended to every prompt.
	// Empty is permitted.
	PromptGuardrails() string

	// FilterLogLine rewrites one raw output line for console display.
	// Providers that dump large diagnostics return a one-line summary and
	// append the untruncated original to errorLog; everything else passes
	// through unchanged.
	FilterLogLine(line, errorLog string) string
}

var registry = map[string]func(Options) Provider{
	"claude":   newClaude,
	"codex":    newCodex,
	"gemini":   newGemini,
	"opencode": newOpencode,
}

// New constructs the adapter registered under name.
func New(name string, opts Options) (Provider, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("provider: unknown provider %q (available: %s)",
			name, strings.Join(Names(), ", "))
	}
	return ctor(opts), nil
}

// Names returns the registered provider names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
