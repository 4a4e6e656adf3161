package dashboard

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/zulandar/switchyard/internal/mailbox"
	"github.com/zulandar/switchyard/internal/models"
)

// AgentRow is one registry entry with its pending-message count.
type AgentRow struct {
	Name     string    `json:"name"`
	Role     string    `json:"role"`
	Status   string    `json:"status"`
	LastSeen time.Time `json:"last_seen"`
	Unread   int64     `json:"unread"`
}

// AgentSummary returns every registered agent, sorted by name, with its
// unread count (pending direct plus unconsumed broadcasts).
func AgentSummary(db *gorm.DB) ([]AgentRow, error) {
	var agents []models.Agent
	if err := db.Order("name").Find(&agents).Error; err != nil {
		return nil, fmt.Errorf("dashboard: list agents: %w", err)
	}

	rows := make([]AgentRow, len(agents))
	for i, a := range agents {
		unread, err := mailbox.UnreadCountFor(db, a.Name)
		if err != nil {
			return nil, fmt.Errorf("dashboard: unread for %s: %w", a.Name, err)
		}
		rows[i] = AgentRow{
			Name:     a.Name,
			Role:     a.Role,
			Status:   a.Status,
			LastSeen: a.LastSeen,
			Unread:   unread,
		}
	}
	return rows, nil
}

// MessageRow is one mailbox message for display.
type MessageRow struct {
	ID        uint      `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
	CC        bool      `json:"cc,omitempty"`
}

// RecentMessages returns the newest messages, most recent first.
func RecentMessages(db *gorm.DB, limit int) ([]MessageRow, error) {
	if limit <= 0 {
		limit = defaultMessageLimit
	}

	var msgs []models.Message
	if err := db.Order("id DESC").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("dashboard: recent messages: %w", err)
	}

	rows := make([]MessageRow, len(msgs))
	for i, m := range msgs {
		rows[i] = MessageRow{
			ID:        m.ID,
			From:      m.FromAgent,
			To:        m.ToAgent,
			Content:   m.Content,
			Timestamp: m.Timestamp,
			Read:      m.ReadFlag,
			CC:        m.IsCC,
		}
	}
	return rows, nil
}

// TimeAgo renders how long ago t was, for the status page.
func TimeAgo(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	d := time.Since(t)
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours())/24)
	}
}
