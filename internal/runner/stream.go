package runner

import (
	"encoding/json"
	"sort"
	"strings"
)

// compactionMarkers are the phrases that indicate the upstream tool
// summarized its own context. Matched case-insensitively against the raw
// line, the rendered text, and the re-encoded payload. Substring matching
// can false-positive on ordinary text mentioning these phrases; that is the
// accepted cost of catching every real compaction.
var compactionMarkers = []string{
	"compaction",
	"compacted",
	"context window",
	"summarized prior",
	"summarised prior",
	"auto-compact",
}

// textKeys are the field names whose string values count as human-readable
// output when rendering a structured stream record.
var textKeys = map[string]bool{
	"text":        true,
	"content":     true,
	"delta":       true,
	"output_text": true,
}

// lineEvent is the outcome of scanning one raw stream line.
type lineEvent struct {
	Rendered   string
	Compaction bool

	payload any // decoded JSON, nil for plain text
}

// scanLine renders one raw line for display and scans it for compaction
// markers. Plain text passes through; structured records render as their
// collected text fragments, or as "[type] message" for error/warning records
// with no text.
func scanLine(line string) lineEvent {
	raw := strings.TrimRight(line, "\n")
	if raw == "" {
		return lineEvent{}
	}

	ev := lineEvent{Compaction: containsCompactionMarker(raw)}

	var payload any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		ev.Rendered = raw + "\n"
		return ev
	}
	ev.payload = payload

	var fragments []string
	collectTextFragments(payload, &fragments)
	ev.Rendered = strings.Join(fragments, "")

	if ev.Rendered == "" {
		if m, ok := payload.(map[string]any); ok {
			if typ, _ := m["type"].(string); typ == "error" || typ == "warning" {
				msg, _ := m["message"].(string)
				ev.Rendered = "[" + typ + "] " + msg + "\n"
			}
		}
	}

	if containsCompactionMarker(ev.Rendered) {
		ev.Compaction = true
	}
	if m, ok := payload.(map[string]any); ok && !ev.Compaction {
		if encoded, err := json.Marshal(m); err == nil && containsCompactionMarker(string(encoded)) {
			ev.Compaction = true
		}
	}
	return ev
}

func containsCompactionMarker(text string) bool {
	if text == "" {
		return false
	}
	low := strings.ToLower(text)
	for _, marker := range compactionMarkers {
		if strings.Contains(low, marker) {
			return true
		}
	}
	return false
}

// collectTextFragments walks a decoded JSON value depth-first and gathers
// string values under the known text keys at any nesting depth. Map keys are
// visited in sorted order so rendering is deterministic.
func collectTextFragments(node any, out *[]string) {
	switch v := node.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if s, ok := v[k].(string); ok && textKeys[k] {
				*out = append(*out, s)
				continue
			}
			collectTextFragments(v[k], out)
		}
	case []any:
		for _, item := range v {
			collectTextFragments(item, out)
		}
	}
}

// Usage is the token accounting reported by one invocation. A zero Usage
// means the stream never reported usage.
type Usage struct {
	InputTokens   int64
	OutputTokens  int64
	ContextWindow int64
	Model         string
}

// Reported says whether the stream carried any usage numbers.
func (u Usage) Reported() bool {
	return u.InputTokens > 0 || u.OutputTokens > 0
}

// usageScan accumulates token usage across stream lines. The aggregate
// end-of-run result record wins over any per-event fallback.
type usageScan struct {
	usage     Usage
	aggregate bool
	fallback  bool
	model     string
}

func (u *usageScan) observe(payload any) {
	m, ok := payload.(map[string]any)
	if !ok {
		return
	}

	// Assistant records name the model; remember it for window lookup.
	if typ, _ := m["type"].(string); typ == "assistant" {
		if msg, ok := m["message"].(map[string]any); ok {
			if model, ok := msg["model"].(string); ok && model != "" {
				u.model = model
			}
		}
	}

	if usage, ok := resultUsage(m); ok {
		if usage.Model == "" {
			usage.Model = u.model
		}
		if usage.ContextWindow == 0 {
			usage.ContextWindow = lookupContextWindow(usage.Model)
		}
		u.usage = usage
		u.aggregate = true
		return
	}

	if !u.aggregate && !u.fallback {
		if usage, ok := nestedUsage(m); ok {
			usage.Model = u.model
			if usage.ContextWindow == 0 {
				usage.ContextWindow = lookupContextWindow(usage.Model)
			}
			u.usage = usage
			u.fallback = true
		}
	}
}

// resultUsage extracts the aggregate usage from an end-of-run result record:
// input counts direct, cache-creation, and cache-read tokens; the context
// window comes from the per-model usage block when present.
func resultUsage(m map[string]any) (Usage, bool) {
	if typ, _ := m["type"].(string); typ != "result" {
		return Usage{}, false
	}
	um, ok := m["usage"].(map[string]any)
	if !ok {
		return Usage{}, false
	}

	usage := Usage{
		InputTokens: numField(um, "input_tokens") +
			numField(um, "cache_creation_input_tokens") +
			numField(um, "cache_read_input_tokens"),
		OutputTokens: numField(um, "output_tokens"),
	}

	if mu, ok := m["modelUsage"].(map[string]any); ok {
		names := make([]string, 0, len(mu))
		for name := range mu {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if block, ok := mu[name].(map[string]any); ok {
				usage.Model = name
				usage.ContextWindow = numField(block, "contextWindow")
				break
			}
		}
	}
	return usage, true
}

// nestedUsage finds the first object at any depth carrying an input-token
// field and reads token counts from it. Maps are walked in sorted key order
// so "first" is deterministic.
func nestedUsage(node any) (Usage, bool) {
	switch v := node.(type) {
	case map[string]any:
		if _, ok := v["input_tokens"]; ok {
			return Usage{
				InputTokens: numField(v, "input_tokens") +
					numField(v, "cache_creation_input_tokens") +
					numField(v, "cache_read_input_tokens"),
				OutputTokens: numField(v, "output_tokens"),
			}, true
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if usage, ok := nestedUsage(v[k]); ok {
				return usage, true
			}
		}
	case []any:
		for _, item := range v {
			if usage, ok := nestedUsage(item); ok {
				return usage, true
			}
		}
	}
	return Usage{}, false
}

func numField(m map[string]any, key string) int64 {
	if f, ok := m[key].(float64); ok {
		return int64(f)
	}
	return 0
}

// contextLimits maps model-name substrings to context-window sizes, used
// when the stream reports usage without a window. Checked in order, first
// match wins.
var contextLimits = []struct {
	substr string
	window int64
}{
	{"[1m]", 1_000_000},
	{"claude", 200_000},
	{"gpt-5", 128_000},
	{"gpt-4-turbo", 128_000},
	{"gpt-4", 8_192},
	{"gemini", 1_048_576},
}

func lookupContextWindow(model string) int64 {
	if model == "" {
		return 0
	}
	low := strings.ToLower(model)
	for _, entry := range contextLimits {
		if strings.Contains(low, entry.substr) {
			return entry.window
		}
	}
	return 0
}
