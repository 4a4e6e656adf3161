// Package digest composes the periodic swarm summary and mails it to the
// lead agent through the shared mailbox.
package digest

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/zulandar/switchyard/internal/mailbox"
	"github.com/zulandar/switchyard/internal/models"
)

// From is the sender name digest mail goes out under.
const From = "digest"

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// nextCronDuration parses a 5-field cron expression and returns the duration
// until the next fire time. Returns 0 on parse error.
func nextCronDuration(expr string) time.Duration {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return 0
	}
	next := sched.Next(time.Now())
	d := time.Until(next)
	if d < 0 {
		return 0
	}
	return d
}

// AgentLine is one agent's row in the digest.
type AgentLine struct {
	Name     string
	Status   string
	LastSeen time.Time
	Unread   int64
}

// Report holds the computed swarm picture for one digest.
type Report struct {
	GeneratedAt time.Time
	Agents      []AgentLine
	Volume24h   int64
}

// Digester composes swarm summaries from the store and mails them to the
// lead agent.
type Digester struct {
	db    *gorm.DB
	store *mailbox.Store
	now   func() time.Time
}

// New creates a Digester over the shared store.
func New(db *gorm.DB) (*Digester, error) {
	store, err := mailbox.New(db, From)
	if err != nil {
		return nil, err
	}
	return &Digester{db: db, store: store, now: time.Now}, nil
}

// Build queries the store for the current swarm picture: every registered
// agent with its status, last_seen and pending-message count, plus the swarm
// message volume over the trailing 24 hours.
func (d *Digester) Build() (*Report, error) {
	now := d.now().UTC()
	report := &Report{GeneratedAt: now}

	var agents []models.Agent
	if err := d.db.Order("name").Find(&agents).Error; err != nil {
		return nil, fmt.Errorf("digest: list agents: %w", err)
	}
	for _, a := range agents {
		unread, err := mailbox.UnreadCountFor(d.db, a.Name)
		if err != nil {
			return nil, fmt.Errorf("digest: unread for %s: %w", a.Name, err)
		}
		report.Agents = append(report.Agents, AgentLine{
			Name:     a.Name,
			Status:   a.Status,
			LastSeen: a.LastSeen,
			Unread:   unread,
		})
	}

	since := now.Add(-24 * time.Hour)
	if err := d.db.Model(&models.Message{}).
		Where("timestamp >= ?", since).
		Count(&report.Volume24h).Error; err != nil {
		return nil, fmt.Errorf("digest: count 24h volume: %w", err)
	}
	return report, nil
}

// Send builds the digest and mails it to the lead agent. When no lead is
// registered yet the digest is addressed to "lead" so it is waiting in the
// mailbox when one comes up.
func (d *Digester) Send() (*models.Message, error) {
	report, err := d.Build()
	if err != nil {
		return nil, err
	}
	lead, err := d.store.FindLead()
	if err != nil {
		return nil, err
	}
	if lead == "" {
		lead = "lead"
	}
	return d.store.Send(From, lead, Format(report), "")
}

// Run mails a digest on the cron schedule until ctx is cancelled. It returns
// immediately when schedule is empty or unparseable.
func (d *Digester) Run(ctx context.Context, schedule string, logf func(format string, args ...interface{})) {
	if logf == nil {
		logf = log.Printf
	}
	if schedule == "" {
		return
	}
	wait := nextCronDuration(schedule)
	if wait <= 0 {
		logf("digest: invalid schedule %q", schedule)
		return
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if msg, err := d.Send(); err != nil {
				logf("digest: send: %v", err)
			} else {
				logf("digest: sent message %d to %s", msg.ID, msg.ToAgent)
			}
			if wait := nextCronDuration(schedule); wait > 0 {
				timer.Reset(wait)
			}
		}
	}
}

// Format renders a report as the plain-text message mailed to the lead.
func Format(r *Report) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("Swarm digest %s", r.GeneratedAt.Format("2006-01-02 15:04 UTC")))
	lines = append(lines, "")
	if len(r.Agents) == 0 {
		lines = append(lines, "No agents registered.")
	} else {
		for _, a := range r.Agents {
			lines = append(lines, fmt.Sprintf("- %s: %s, %d unread, last seen %s",
				a.Name, a.Status, a.Unread, formatAge(r.GeneratedAt, a.LastSeen)))
		}
	}
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("Messages in the last 24h: %d", r.Volume24h))
	return strings.Join(lines, "\n")
}

// formatAge renders how long ago an agent was last seen.
func formatAge(now, seen time.Time) string {
	if seen.IsZero() {
		return "never"
	}
	d := now.Sub(seen)
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh %dm ago", int(d.Hours()), int(d.Minutes())%60)
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours())/24)
	}
}
