package models

import "time"

// Agent statuses visible in the registry.
const (
	AgentStatusOnline  = "online"
	AgentStatusIdle    = "idle"
	AgentStatusWorking = "working"
	AgentStatusOffline = "offline"
	AgentStatusError   = "error"
)

// Agent is one swarm member's registry row. Rows are created by the first
// registration and updated in place; the core never deletes them.
type Agent struct {
	Name           string `gorm:"primaryKey;size:64"`
	Role           string `gorm:"size:32"`
	Description    string `gorm:"type:text"`
	Status         string `gorm:"size:16;index"`
	RegisteredAt   time.Time
	LastSeen       time.Time `gorm:"index"`
	LastInboxCheck time.Time
}
