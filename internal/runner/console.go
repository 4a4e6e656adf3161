package runner

import (
	"fmt"
	"io"
)

// MaxConsoleStreamChars caps how much of one invocation's stream output is
// mirrored to the console. Everything beyond the cap still reaches history
// and the raw log; only the console view is abbreviated.
const MaxConsoleStreamChars = 12_000

// consoleMirror writes stream text to the console up to a per-invocation
// character budget and counts what it hides.
type consoleMirror struct {
	out       io.Writer
	max       int
	displayed int
	hidden    int
}

func newConsoleMirror(out io.Writer, max int) *consoleMirror {
	if max <= 0 {
		max = MaxConsoleStreamChars
	}
	return &consoleMirror{out: out, max: max}
}

func (c *consoleMirror) Write(text string) {
	if text == "" {
		return
	}
	if c.displayed >= c.max {
		c.hidden += len(text)
		return
	}
	remaining := c.max - c.displayed
	if len(text) > remaining {
		c.hidden += len(text) - remaining
		text = text[:remaining]
	}
	c.displayed += len(text)
	if c.out != nil {
		fmt.Fprint(c.out, text)
	}
}

func (c *consoleMirror) StreamStart(agent, command, run string) {
	if c.out == nil {
		return
	}
	fmt.Fprintf(c.out, "\n=== model-stream start: agent=%s cmd=%s run=%s ===\n", agent, command, run)
}

func (c *consoleMirror) StreamEnd(agent, command string) {
	if c.out == nil {
		return
	}
	if c.hidden > 0 {
		fmt.Fprintf(c.out, "\n[model-stream abbreviated: %d chars hidden]\n", c.hidden)
	}
	fmt.Fprintf(c.out, "=== model-stream end: agent=%s cmd=%s shown=%d chars ===\n", agent, command, c.displayed)
}
