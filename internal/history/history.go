// Package history provides the per-agent rolling output buffer that is
// re-injected into the prompt after a provider compaction event.
package history

// CharsPerToken converts a token budget into a character budget. It is a
// rough sizing heuristic, not a tokenizer.
const CharsPerToken = 4

// Buffer accumulates raw output chunks up to a character budget derived from
// a token budget. When the budget is exceeded the oldest chunks are evicted,
// so the buffer always holds the most recent suffix of the stream. It lives
// for the daemon process's lifetime only and is not safe for concurrent use;
// each supervisor owns exactly one.
type Buffer struct {
	maxChars int
	chunks   []string
	total    int
}

// NewBuffer creates a Buffer holding at most maxTokens×CharsPerToken
// characters. A non-positive budget yields a buffer that retains nothing.
func NewBuffer(maxTokens int) *Buffer {
	maxChars := maxTokens * CharsPerToken
	if maxChars < 0 {
		maxChars = 0
	}
	return &Buffer{maxChars: maxChars}
}

// Append adds a chunk and evicts from the front until the buffer fits its
// budget. Empty input is a no-op.
func (b *Buffer) Append(text string) {
	if text == "" {
		return
	}
	b.chunks = append(b.chunks, text)
	b.total += len(text)
	for b.total > b.maxChars && len(b.chunks) > 0 {
		b.total -= len(b.chunks[0])
		b.chunks = b.chunks[1:]
	}
}

// Snapshot returns the retained chunks concatenated in append order. It does
// not consume the buffer.
func (b *Buffer) Snapshot() string {
	if len(b.chunks) == 0 {
		return ""
	}
	n := 0
	for _, c := range b.chunks {
		n += len(c)
	}
	out := make([]byte, 0, n)
	for _, c := range b.chunks {
		out = append(out, c...)
	}
	return string(out)
}

// Len returns the total number of retained characters.
func (b *Buffer) Len() int { return b.total }

// MaxChars returns the buffer's character budget.
func (b *Buffer) MaxChars() int { return b.maxChars }
