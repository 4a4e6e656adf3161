package models

import "time"

// BroadcastTo is the recipient sentinel addressing a message to every agent.
const BroadcastTo = "all"

// Message represents agent-to-agent communication. Direct messages are
// consumed by flipping ReadFlag; broadcasts are never mutated and are
// consumed per agent through BroadcastRead markers.
type Message struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"`
	FromAgent    string    `gorm:"size:64;not null"`
	ToAgent      string    `gorm:"size:64;not null;index"`
	Content      string    `gorm:"type:text"`
	Timestamp    time.Time `gorm:"index"`
	ReadFlag     bool      `gorm:"column:read_flag;default:false;index"`
	IsCC         bool      `gorm:"column:is_cc;default:false"`
	CCOriginalTo string    `gorm:"column:cc_original_to;size:64"`
}

// IsBroadcast reports whether the message is addressed to every agent.
func (m *Message) IsBroadcast() bool {
	return m.ToAgent == BroadcastTo
}

// BroadcastRead records that one agent has consumed one broadcast message.
// Absence of a row means unconsumed, so agents registered after a broadcast
// was sent still receive it.
type BroadcastRead struct {
	AgentName string `gorm:"primaryKey;size:64"`
	MessageID uint   `gorm:"primaryKey"`
}
