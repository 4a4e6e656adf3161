package provider

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// maxPassthroughChars is the line length beyond which verbose-output
// providers try to classify the line instead of mirroring it.
const maxPassthroughChars = 500

var httpStatusRe = regexp.MustCompile(`\b([45]\d{2})\b`)

// jsonErrorEnvelope covers the common error shapes providers emit: either a
// nested {"error": {...}} object or top-level code/status/message fields.
type jsonErrorEnvelope struct {
	Error   json.RawMessage `json:"error"`
	Code    json.RawMessage `json:"code"`
	Status  string          `json:"status"`
	Message string          `json:"message"`
}

type jsonErrorBody struct {
	Code    json.RawMessage `json:"code"`
	Status  string          `json:"status"`
	Message string          `json:"message"`
}

// extractErrorSummary condenses an oversized line into a short description:
// a decoded JSON error if present, an HTTP status if one appears early in
// the line, or a generic size note. Returns "" for lines within the
// passthrough limit.
func extractErrorSummary(line string) string {
	if len(line) <= maxPassthroughChars {
		return ""
	}

	var env jsonErrorEnvelope
	if err := json.Unmarshal([]byte(line), &env); err == nil {
		code, msg := "", env.Message
		if len(env.Error) > 0 {
			var body jsonErrorBody
			if err := json.Unmarshal(env.Error, &body); err == nil {
				code = rawScalar(body.Code)
				if code == "" {
					code = body.Status
				}
				if body.Message != "" {
					msg = body.Message
				}
			}
		}
		if code == "" {
			code = rawScalar(env.Code)
		}
		if code == "" {
			code = env.Status
		}
		if code != "" || msg != "" {
			if code == "" {
				code = "ERROR"
			}
			return fmt.Sprintf("%s: %s", code, clip(msg, 120))
		}
	}

	head := line
	if len(head) > 200 {
		head = head[:200]
	}
	if m := httpStatusRe.FindStringSubmatch(head); m != nil {
		return fmt.Sprintf("HTTP %s (response truncated, %d chars)", m[1], len(line))
	}
	return fmt.Sprintf("Large output (%d chars)", len(line))
}

// rawScalar renders a JSON number or string token as plain text.
func rawScalar(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	return strings.Trim(string(raw), `"`)
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// appendErrorLog writes the untruncated line to the side error log under a
// timestamp separator. Best effort: a full disk must not break streaming.
func appendErrorLog(path, content string) {
	if path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "\n--- %s ---\n%s\n", time.Now().Format(time.RFC3339), content)
}
