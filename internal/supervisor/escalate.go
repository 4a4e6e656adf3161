package supervisor

import (
	"context"
	"fmt"
)

// escalateThreshold is the consecutive-failure count at which the lead agent
// and the alert sinks are notified.
const escalateThreshold = 3

// Alerter mirrors escalation text to external sinks. Implementations log
// their own delivery failures; escalation never fails the daemon.
type Alerter interface {
	Post(ctx context.Context, text string)
}

func alertText(agent string, failures int, lastError string) string {
	if lastError == "" {
		lastError = "unknown"
	}
	return fmt.Sprintf("switchyard alert: agent %s has %d consecutive failures. Last error: %s.",
		agent, failures, lastError)
}

// escalate sends a repeated-failure alert to the lead agent through the
// mailbox and mirrors it to the configured alert sinks. Delivery problems are
// logged and swallowed.
func (s *Supervisor) escalate(ctx context.Context) {
	text := alertText(s.agent, s.consecutiveFailures, s.lastError)

	lead, err := s.store.FindLead()
	if err != nil {
		s.logf("failed to find lead: %v", err)
	}
	if lead == "" {
		lead = "lead"
	}
	if _, err := s.store.Send(s.agent, lead, text, ""); err != nil {
		s.logf("failed to alert lead '%s': %v", lead, err)
	} else {
		s.logf("alerted lead '%s' about repeated failures", lead)
	}

	if s.alerts != nil {
		s.alerts.Post(ctx, text)
	}
}
