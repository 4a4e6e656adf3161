// Package state persists per-agent runtime snapshots so external tools can
// inspect a daemon and so resume readiness survives restarts.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Snapshot statuses. The registry tracks presence; the snapshot tracks what
// the daemon process itself is doing, including the terminal "stopped".
const (
	StatusIdle    = "idle"
	StatusWorking = "working"
	StatusError   = "error"
	StatusStopped = "stopped"
	StatusOffline = "offline"
)

// Snapshot is one agent daemon's externally visible runtime state. The core
// fields are written on every transition; the remaining fields are transient
// extras present only in the states that set them.
type Snapshot struct {
	Agent               string `json:"agent"`
	Provider            string `json:"provider"`
	PID                 int    `json:"pid"`
	Status              string `json:"status"`
	UpdatedAt           string `json:"updated_at"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	ResumeReady         bool   `json:"resume_ready"`

	// Set while working.
	CurrentMessageID uint   `json:"current_message_id,omitempty"`
	FromAgent        string `json:"from_agent,omitempty"`
	ReceivedAt       string `json:"received_at,omitempty"`

	// Set after a successful invocation.
	LastMessageID uint `json:"last_message_id,omitempty"`

	// Set on failure.
	Failures        int    `json:"failures,omitempty"`
	LastError       string `json:"last_error,omitempty"`
	FailedMessageID uint   `json:"failed_message_id,omitempty"`
}

// File writes snapshots for one agent to a fixed path.
type File struct {
	path     string
	agent    string
	provider string
}

// NewFile binds a snapshot file to an agent. The parent directory is created
// on the first write.
func NewFile(path, agent, provider string) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("state: path is required")
	}
	if agent == "" {
		return nil, fmt.Errorf("state: agent is required")
	}
	return &File{path: path, agent: agent, provider: provider}, nil
}

// Path returns the snapshot file location.
func (f *File) Path() string { return f.path }

// Write persists a snapshot. The agent, provider, pid, and updated_at fields
// are filled in; the caller supplies status, counters, and extras.
func (f *File) Write(snap Snapshot) error {
	snap.Agent = f.agent
	snap.Provider = f.provider
	snap.PID = os.Getpid()
	snap.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("state: marshal snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("state: create %s: %w", filepath.Dir(f.path), err)
	}
	if err := os.WriteFile(f.path, data, 0o644); err != nil {
		return fmt.Errorf("state: write %s: %w", f.path, err)
	}
	return nil
}

// LoadResumeReady reads the previous run's resume flag. A missing or
// unreadable snapshot means no resumable session exists, never an error.
func (f *File) LoadResumeReady() bool {
	return LoadResumeReady(f.path)
}

// LoadResumeReady reads resume_ready from a snapshot file, returning false
// when the file is missing or corrupt.
func LoadResumeReady(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return false
	}
	return snap.ResumeReady
}

// Load reads a full snapshot from disk. Used by status tooling, not by the
// daemon itself.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("state: read %s: %w", path, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("state: parse %s: %w", path, err)
	}
	return &snap, nil
}
