// Package mailbox provides the persisted agent registry and message store
// with atomic dequeue.
package mailbox

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/switchyard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrBusy reports a transient SQLite lock. Callers retry on the next poll
// cycle instead of treating it as a failure.
var ErrBusy = errors.New("mailbox: database is locked")

// popSQL selects the lowest-id deliverable message for an agent: direct
// unread messages unioned with broadcasts the agent has not consumed.
// Broadcasts are not excluded by sender; an agent pops its own broadcast.
const popSQL = `
SELECT id, from_agent, to_agent, content, timestamp, read_flag, is_cc, cc_original_to
FROM (
    SELECT id, from_agent, to_agent, content, timestamp, read_flag, is_cc, cc_original_to
    FROM messages
    WHERE to_agent = ? AND read_flag = 0

    UNION ALL

    SELECT m.id, m.from_agent, m.to_agent, m.content, m.timestamp, m.read_flag, m.is_cc, m.cc_original_to
    FROM messages m
    LEFT JOIN broadcast_reads br
        ON br.agent_name = ? AND br.message_id = m.id
    WHERE m.to_agent = ? AND br.message_id IS NULL
)
ORDER BY id ASC
LIMIT 1`

// Store is an agent's view of the shared mailbox database.
type Store struct {
	db    *gorm.DB
	agent string
}

// New binds a mailbox view to one agent name.
func New(db *gorm.DB, agent string) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("mailbox: db is required")
	}
	if agent == "" {
		return nil, fmt.Errorf("mailbox: agent is required")
	}
	return &Store{db: db, agent: agent}, nil
}

// Agent returns the bound agent name.
func (s *Store) Agent() string { return s.agent }

// Register upserts the agent's registry row. last_seen and status are
// refreshed on every call; role and description keep their existing values
// when the new ones are empty, so a bare re-register never erases them.
func (s *Store) Register(role, description, status string) error {
	if status == "" {
		status = models.AgentStatusOnline
	}
	now := time.Now().UTC()
	agent := models.Agent{
		Name:           s.agent,
		Role:           role,
		Description:    description,
		Status:         status,
		RegisteredAt:   now,
		LastSeen:       now,
		LastInboxCheck: now,
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_seen":   now,
			"status":      status,
			"role":        gorm.Expr("COALESCE(NULLIF(excluded.role, ''), role)"),
			"description": gorm.Expr("COALESCE(NULLIF(excluded.description, ''), description)"),
		}),
	}).Create(&agent).Error
	if err != nil {
		return classify(fmt.Errorf("mailbox: register %s: %w", s.agent, err))
	}
	return nil
}

// SetStatus updates the agent's status and refreshes last_seen. Unregistered
// agents are a silent no-op, matching Register-then-crash recovery.
func (s *Store) SetStatus(status string) error {
	err := s.db.Model(&models.Agent{}).Where("name = ?", s.agent).
		Updates(map[string]interface{}{
			"status":    status,
			"last_seen": time.Now().UTC(),
		}).Error
	if err != nil {
		return classify(fmt.Errorf("mailbox: set status %s: %w", s.agent, err))
	}
	return nil
}

// Send creates a message from one agent to another (or to "all" for a
// broadcast). A non-empty cc inserts a second independent message addressed
// to the cc agent, tagged with the original recipient. Returns the primary
// message.
func (s *Store) Send(from, to, content, cc string) (*models.Message, error) {
	if from == "" {
		return nil, fmt.Errorf("mailbox: from is required")
	}
	if to == "" {
		return nil, fmt.Errorf("mailbox: to is required")
	}

	now := time.Now().UTC()
	msg := models.Message{
		FromAgent: from,
		ToAgent:   to,
		Content:   content,
		Timestamp: now,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return fmt.Errorf("mailbox: send: %w", err)
		}
		if cc != "" {
			carbon := models.Message{
				FromAgent:    from,
				ToAgent:      cc,
				Content:      fmt.Sprintf("%s\n\n[CC] originally to: %s", content, to),
				Timestamp:    now,
				IsCC:         true,
				CCOriginalTo: to,
			}
			if err := tx.Create(&carbon).Error; err != nil {
				return fmt.Errorf("mailbox: send cc to %s: %w", cc, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return &msg, nil
}

// PopNext atomically dequeues the agent's next message: the lowest-id direct
// unread or unconsumed broadcast. The message is marked consumed in the same
// transaction, so concurrent daemons never deliver a direct message twice and
// each agent consumes a broadcast exactly once. The agent's last_seen and
// last_inbox_check are refreshed whether or not a message was found.
//
// Returns (nil, nil) when the mailbox is empty.
func (s *Store) PopNext() (*models.Message, error) {
	now := time.Now().UTC()
	var msg models.Message
	found := false

	err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Raw(popSQL, s.agent, s.agent, models.BroadcastTo).Scan(&msg)
		if result.Error != nil {
			return fmt.Errorf("mailbox: pop next: %w", result.Error)
		}
		found = result.RowsAffected > 0

		if found {
			if msg.IsBroadcast() {
				mark := models.BroadcastRead{AgentName: s.agent, MessageID: msg.ID}
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&mark).Error; err != nil {
					return fmt.Errorf("mailbox: mark broadcast %d read: %w", msg.ID, err)
				}
			} else {
				if err := tx.Model(&models.Message{}).Where("id = ?", msg.ID).
					Update("read_flag", true).Error; err != nil {
					return fmt.Errorf("mailbox: mark message %d read: %w", msg.ID, err)
				}
			}
		}

		if err := tx.Model(&models.Agent{}).Where("name = ?", s.agent).
			Updates(map[string]interface{}{
				"last_seen":        now,
				"last_inbox_check": now,
			}).Error; err != nil {
			return fmt.Errorf("mailbox: touch %s: %w", s.agent, err)
		}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	if !found {
		return nil, nil
	}
	return &msg, nil
}

// UnreadCount returns the number of pending messages for the agent without
// consuming anything: unread direct plus unconsumed broadcasts.
func (s *Store) UnreadCount() (int64, error) {
	return UnreadCountFor(s.db, s.agent)
}

// UnreadCountFor reports any agent's pending count without binding a Store
// to it. Read-only consumers (dashboard, digest) use it to survey the whole
// swarm with one connection.
func UnreadCountFor(db *gorm.DB, agent string) (int64, error) {
	var direct int64
	if err := db.Model(&models.Message{}).
		Where("to_agent = ? AND read_flag = ?", agent, false).
		Count(&direct).Error; err != nil {
		return 0, classify(fmt.Errorf("mailbox: count direct: %w", err))
	}

	var broadcast int64
	if err := db.Model(&models.Message{}).
		Joins("LEFT JOIN broadcast_reads br ON br.agent_name = ? AND br.message_id = messages.id", agent).
		Where("messages.to_agent = ? AND br.message_id IS NULL", models.BroadcastTo).
		Count(&broadcast).Error; err != nil {
		return 0, classify(fmt.Errorf("mailbox: count broadcast: %w", err))
	}
	return direct + broadcast, nil
}

// FindLead returns the name of the most-recently-seen agent with role
// "lead", or "" when no lead is registered.
func (s *Store) FindLead() (string, error) {
	var agent models.Agent
	result := s.db.Where("role = ?", "lead").
		Order("last_seen DESC").
		Limit(1).
		Find(&agent)
	if result.Error != nil {
		return "", classify(fmt.Errorf("mailbox: find lead: %w", result.Error))
	}
	if result.RowsAffected == 0 {
		return "", nil
	}
	return agent.Name, nil
}

// classify maps SQLite lock contention onto ErrBusy so pollers can tell a
// transient conflict from a real failure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked") {
		return ErrBusy
	}
	return err
}
