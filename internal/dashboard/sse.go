package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zulandar/switchyard/internal/models"
)

const (
	// ssePollInterval is how often the feed re-checks the store for new rows.
	ssePollInterval = 3 * time.Second
	// sseHeartbeatInterval keeps idle connections from being reaped by
	// proxies.
	sseHeartbeatInterval = 15 * time.Second
)

// messageEvent is the payload of a message_created SSE event.
type messageEvent struct {
	ID      uint   `json:"id"`
	From    string `json:"from"`
	To      string `json:"to"`
	Snippet string `json:"snippet"`
	Count   int    `json:"count"` // rows since the previous event
}

// handleEvents streams new mailbox messages as SSE. The store has no change
// feed, so the stream is poll-backed: a ticker re-queries for rows above the
// last seen id.
func handleEvents(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
		c.Writer.Flush()

		// Only report messages created after the client connected.
		var lastSeenID uint
		var latest models.Message
		if err := db.Order("id DESC").Limit(1).First(&latest).Error; err == nil {
			lastSeenID = latest.ID
		}

		ctx := c.Request.Context()
		ticker := time.NewTicker(ssePollInterval)
		heartbeat := time.NewTicker(sseHeartbeatInterval)
		defer ticker.Stop()
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case <-ticker.C:
				var newMsgs []models.Message
				err := db.Where("id > ?", lastSeenID).Order("id ASC").Find(&newMsgs).Error
				if err != nil || len(newMsgs) == 0 {
					continue
				}
				lastSeenID = newMsgs[len(newMsgs)-1].ID

				newest := newMsgs[len(newMsgs)-1]
				writeSSE(c.Writer, "message_created", messageEvent{
					ID:      newest.ID,
					From:    newest.FromAgent,
					To:      newest.ToAgent,
					Snippet: snippet(newest.Content, 120),
					Count:   len(newMsgs),
				})
				c.Writer.Flush()
			}
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData)
}

// snippet truncates s for inline display.
func snippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
