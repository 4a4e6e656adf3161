// Package supervisor drives one agent's daemon loop: it claims mailbox
// messages, builds prompts, invokes the provider through the runner under the
// resume protocol, and handles failures with exponential backoff and lead
// escalation.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/zulandar/switchyard/internal/config"
	"github.com/zulandar/switchyard/internal/history"
	"github.com/zulandar/switchyard/internal/mailbox"
	"github.com/zulandar/switchyard/internal/models"
	"github.com/zulandar/switchyard/internal/notify"
	"github.com/zulandar/switchyard/internal/provider"
	"github.com/zulandar/switchyard/internal/runner"
	"github.com/zulandar/switchyard/internal/state"
)

const (
	// idleWait bounds how long an empty poll blocks before re-checking the
	// store, with or without a change notification.
	idleWait = 5 * time.Second
	// busyRetryDelay is the pause after a locked-store poll.
	busyRetryDelay = 1 * time.Second
)

// InvokeFunc runs one external command. It exists so tests can substitute
// the process runner.
type InvokeFunc func(argv []string, opts runner.Options) runner.Result

// Options wires a Supervisor's collaborators. Config, Agent, Store, Provider,
// and State are required; the rest default sensibly.
type Options struct {
	Config   *config.Config
	Agent    string
	Store    *mailbox.Store
	Provider provider.Provider
	State    *state.File

	// Notifier wakes the idle loop on mailbox writes. Nil falls back to
	// plain timed polling.
	Notifier *notify.Watcher

	// Alerts mirrors escalations to external sinks. Optional.
	Alerts Alerter

	// Out receives timestamped daemon lines and the mirrored stream.
	// Defaults to os.Stdout.
	Out io.Writer

	// Invoke defaults to runner.Run.
	Invoke InvokeFunc
}

// Supervisor owns one agent's state machine. Not safe for concurrent use;
// each agent daemon runs exactly one.
type Supervisor struct {
	cfg      *config.Config
	agentCfg config.AgentConfig
	agent    string

	store    *mailbox.Store
	notifier *notify.Watcher
	prov     provider.Provider
	state    *state.File
	buffer   *history.Buffer
	alerts   Alerter
	out      io.Writer
	invoke   InvokeFunc

	consecutiveFailures int
	lastError           string
	resumeReady         bool
	injectHistory       bool
}

// New builds a Supervisor. The resume flag is recovered from the persisted
// snapshot, so a restarted daemon can re-attach to its provider session.
func New(opts Options) (*Supervisor, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("supervisor: config is required")
	}
	if opts.Agent == "" {
		return nil, fmt.Errorf("supervisor: agent is required")
	}
	agentCfg, ok := opts.Config.Agents[opts.Agent]
	if !ok {
		return nil, fmt.Errorf("supervisor: unknown agent %q", opts.Agent)
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("supervisor: store is required")
	}
	if opts.Provider == nil {
		return nil, fmt.Errorf("supervisor: provider is required")
	}
	if opts.State == nil {
		return nil, fmt.Errorf("supervisor: state is required")
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Invoke == nil {
		opts.Invoke = runner.Run
	}

	return &Supervisor{
		cfg:         opts.Config,
		agentCfg:    agentCfg,
		agent:       opts.Agent,
		store:       opts.Store,
		notifier:    opts.Notifier,
		prov:        opts.Provider,
		state:       opts.State,
		buffer:      history.NewBuffer(agentCfg.MaxHistoryTokens),
		alerts:      opts.Alerts,
		out:         opts.Out,
		invoke:      opts.Invoke,
		resumeReady: opts.State.LoadResumeReady(),
	}, nil
}

// Run executes the daemon loop until ctx is cancelled. Application failures
// never terminate the loop; only cancellation does. On exit the agent is
// marked offline, a stopped snapshot is persisted, and the notifier closes.
func (s *Supervisor) Run(ctx context.Context) error {
	s.logf("starting daemon for %s", s.agent)
	s.logf("provider: %s (resume_ready=%v)", s.prov.Name(), s.resumeReady)
	s.logf("mailbox: %s", s.cfg.MailboxDB)

	description := fmt.Sprintf("switchyard daemon agent (%s)", s.prov.Name())
	if err := s.store.Register(s.agentCfg.Role, description, models.AgentStatusOnline); err != nil {
		return fmt.Errorf("supervisor: register %s: %w", s.agent, err)
	}
	s.writeState(state.Snapshot{Status: state.StatusIdle})

	defer func() {
		if err := s.store.SetStatus(models.AgentStatusOffline); err != nil {
			s.logf("failed to set status offline: %v", err)
		}
		s.writeState(state.Snapshot{Status: state.StatusStopped})
		if s.notifier != nil {
			s.notifier.Close()
		}
		s.logf("daemon stopped")
	}()

	for ctx.Err() == nil {
		msg, err := s.store.PopNext()
		if err != nil {
			if errors.Is(err, mailbox.ErrBusy) {
				s.sleep(ctx, busyRetryDelay)
				continue
			}
			s.logf("pop next: %v", err)
			s.sleep(ctx, idleWait)
			continue
		}

		if msg == nil {
			if err := s.store.SetStatus(models.AgentStatusIdle); err != nil {
				s.logf("failed to set status idle: %v", err)
			}
			s.writeState(state.Snapshot{Status: state.StatusIdle})
			s.waitForWork(ctx)
			continue
		}

		s.handleMessage(ctx, msg)
	}
	return nil
}

// handleMessage runs one message through prompt assembly, the provider
// pipeline, and success/failure bookkeeping.
func (s *Supervisor) handleMessage(ctx context.Context, msg *models.Message) {
	if err := s.store.SetStatus(models.AgentStatusWorking); err != nil {
		s.logf("failed to set status working: %v", err)
	}
	s.writeState(state.Snapshot{
		Status:           state.StatusWorking,
		CurrentMessageID: msg.ID,
		FromAgent:        msg.FromAgent,
		ReceivedAt:       msg.Timestamp.UTC().Format(time.RFC3339),
	})
	s.logf("processing message %d from %s", msg.ID, msg.FromAgent)

	prompt := s.buildPrompt(msg)

	if s.processPrompt(prompt) {
		s.consecutiveFailures = 0
		s.lastError = ""
		if err := s.store.SetStatus(models.AgentStatusOnline); err != nil {
			s.logf("failed to set status online: %v", err)
		}
		s.writeState(state.Snapshot{Status: state.StatusIdle, LastMessageID: msg.ID})
		return
	}

	s.consecutiveFailures++
	s.writeState(state.Snapshot{
		Status:          state.StatusError,
		Failures:        s.consecutiveFailures,
		LastError:       s.lastError,
		FailedMessageID: msg.ID,
	})

	backoff := Backoff(s.consecutiveFailures,
		time.Duration(s.agentCfg.RetryBackoffSec)*time.Second,
		time.Duration(s.agentCfg.RetryBackoffMaxSec)*time.Second)
	lastError := s.lastError
	if lastError == "" {
		lastError = "unknown"
	}
	s.logf("failure #%d; backing off %s (%s)", s.consecutiveFailures, backoff, lastError)

	if s.consecutiveFailures >= escalateThreshold {
		s.escalate(ctx)
	}
	s.sleep(ctx, backoff)
}

// processPrompt runs the provider under the resume protocol and interprets
// the result. It reports success, recording lastError on failure.
func (s *Supervisor) processPrompt(prompt string) bool {
	res := s.runProvider(prompt)

	if res.CompactionDetected {
		s.injectHistory = true
		s.logf("detected context compaction marker; history will be re-injected next cycle")
	}
	if res.Usage.Reported() {
		s.logf("context: in=%d out=%d window=%d",
			res.Usage.InputTokens, res.Usage.OutputTokens, res.Usage.ContextWindow)
	}

	if res.TimedOut {
		s.lastError = fmt.Sprintf("%s produced no output for %ds",
			s.prov.Name(), s.agentCfg.NoOutputTimeoutSec)
		return false
	}
	if res.ExitCode != 0 {
		s.lastError = fmt.Sprintf("%s exited with code %d", res.CommandName, res.ExitCode)
		return false
	}

	s.resumeReady = true
	return true
}

// runProvider applies the resume protocol: when a resumable session exists,
// try the resume command first; a timeout or clean exit is final, anything
// else downgrades to a single fresh attempt.
func (s *Supervisor) runProvider(prompt string) runner.Result {
	if s.resumeReady && s.prov.SupportsResume() {
		res := s.invokeArgv(s.prov.BuildCommand(prompt, true))
		if res.TimedOut || res.ExitCode == 0 {
			return res
		}
		s.resumeReady = false
		s.logf("%s failed with exit %d; retrying without resume", s.prov.ResumeLabel(), res.ExitCode)
	}
	return s.invokeArgv(s.prov.BuildCommand(prompt, false))
}

func (s *Supervisor) invokeArgv(argv []string) runner.Result {
	name := ""
	if len(argv) > 0 {
		name = argv[0]
	}
	s.logf("exec: %s (%s)", name, s.prov.Name())
	return s.invoke(argv, runner.Options{
		Agent:           s.agent,
		Dir:             s.cfg.ProjectDir,
		NoOutputTimeout: time.Duration(s.agentCfg.NoOutputTimeoutSec) * time.Second,
		History:         s.buffer,
		Filter:          s.filterLine,
		Console:         s.out,
		RawLogPath:      s.cfg.AgentRawLogPath(s.agent),
		Logf:            s.logf,
	})
}

func (s *Supervisor) filterLine(line string) string {
	return s.prov.FilterLogLine(line, s.cfg.AgentErrorLogPath(s.agent))
}

// writeState persists a snapshot with the supervisor's counters filled in.
// Snapshot write failures are logged, never fatal.
func (s *Supervisor) writeState(snap state.Snapshot) {
	snap.ConsecutiveFailures = s.consecutiveFailures
	snap.ResumeReady = s.resumeReady
	if err := s.state.Write(snap); err != nil {
		s.logf("failed to write state: %v", err)
	}
}

// waitForWork blocks until the mailbox file changes or idleWait elapses.
func (s *Supervisor) waitForWork(ctx context.Context) {
	if s.notifier != nil {
		s.notifier.WaitForUpdate(ctx, idleWait)
		return
	}
	s.sleep(ctx, idleWait)
}

func (s *Supervisor) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func (s *Supervisor) logf(format string, args ...any) {
	ts := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(s.out, "[%s] [%s] %s\n", ts, s.agent, fmt.Sprintf(format, args...))
}
