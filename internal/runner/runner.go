// Package runner executes a single external tool invocation: it launches the
// command, streams combined stdout/stderr line by line into history, the raw
// log, and a capped console mirror, enforces a no-output timeout, and reports
// the exit code plus what the stream revealed (compaction, token usage).
package runner

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/zulandar/switchyard/internal/history"
)

// ExitLaunchFailure is the exit code reported when the command never started.
const ExitLaunchFailure = 127

const (
	// terminateGrace is how long a timed-out process gets after SIGTERM
	// before it is killed.
	terminateGrace = 5 * time.Second
	// exitWait bounds the wait for an exit code once streaming ends.
	exitWait = 30 * time.Second
	// killWait bounds the wait after a kill.
	killWait = 5 * time.Second
	// pollInterval is how often the control loop wakes to check the
	// inactivity timeout while no output arrives.
	pollInterval = 1 * time.Second
)

// scanner sizing for tools that emit very long JSON lines.
const (
	scanBufSize = 1024 * 1024
	scanMaxSize = 10 * 1024 * 1024
)

// Options configures one invocation.
type Options struct {
	// Agent names the agent on whose behalf the tool runs. Used in
	// console banners and log lines.
	Agent string

	// Dir is the working directory for the command. Empty means inherit.
	Dir string

	// Env is the child environment. Nil means the current environment
	// with tool-recursion variables stripped.
	Env []string

	// NoOutputTimeout terminates the process after this long without a
	// line of output. Zero or negative disables the timeout.
	NoOutputTimeout time.Duration

	// History receives every raw line for later reinjection.
	History *history.Buffer

	// Filter may rewrite a raw line for display. Returning the line
	// unchanged keeps the rendered form.
	Filter func(line string) string

	// Console receives the mirrored stream. Nil discards it.
	Console io.Writer

	// ConsoleMax overrides MaxConsoleStreamChars when positive.
	ConsoleMax int

	// RawLogPath appends every raw line to this file when set.
	RawLogPath string

	// RunID correlates banners and logs. Generated when empty.
	RunID string

	// Logf receives operational log lines. Nil discards them.
	Logf func(format string, args ...any)
}

// Result reports what one invocation did.
type Result struct {
	ExitCode           int
	TimedOut           bool
	CompactionDetected bool
	CommandName        string
	Usage              Usage
	RunID              string
}

// Run launches argv and streams it to completion. It never panics on process
// failures; launch errors surface as ExitLaunchFailure. Run does not react to
// external cancellation: an in-flight invocation is bounded only by its own
// exit and the no-output timeout.
func Run(argv []string, opts Options) Result {
	logf := opts.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	if opts.RunID == "" {
		opts.RunID = uuid.New().String()[:8]
	}
	res := Result{RunID: opts.RunID, ExitCode: ExitLaunchFailure}
	if len(argv) == 0 {
		logf("runner: empty command")
		return res
	}
	res.CommandName = argv[0]

	mirror := newConsoleMirror(opts.Console, opts.ConsoleMax)
	mirror.StreamStart(opts.Agent, argv[0], opts.RunID)

	var rawLog *os.File
	if opts.RawLogPath != "" {
		f, err := os.OpenFile(opts.RawLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			logf("runner: open raw log %s: %v", opts.RawLogPath, err)
		} else {
			rawLog = f
			defer rawLog.Close()
		}
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = opts.Dir
	if opts.Env != nil {
		cmd.Env = opts.Env
	} else {
		cmd.Env = cleanEnviron()
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		logf("runner: create pipe: %v", err)
		return res
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		pr.Close()
		logf("runner: failed to launch %s: %v", argv[0], err)
		return res
	}
	// The child holds the write end now; close ours so EOF arrives when
	// the child (and anything it spawned onto the pipe) exits.
	pw.Close()

	lines := make(chan string, 256)
	go func() {
		defer close(lines)
		defer pr.Close()
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 0, scanBufSize), scanMaxSize)
		for scanner.Scan() {
			lines <- scanner.Text() + "\n"
		}
	}()

	waitCh := make(chan error, 1)
	go func() {
		waitCh <- cmd.Wait()
	}()

	var usage usageScan
	var exitErr error
	exited := false
	lastOutput := time.Now()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

stream:
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				break stream
			}
			lastOutput = time.Now()
			if opts.History != nil {
				opts.History.Append(line)
			}
			if rawLog != nil {
				if _, err := rawLog.WriteString(line); err != nil {
					logf("runner: write raw log: %v", err)
					rawLog.Close()
					rawLog = nil
				}
			}
			ev := scanLine(line)
			if ev.Compaction {
				res.CompactionDetected = true
			}
			usage.observe(ev.payload)
			display := ev.Rendered
			if opts.Filter != nil {
				if filtered := opts.Filter(line); filtered != line {
					display = filtered
				}
			}
			mirror.Write(display)
		case err := <-waitCh:
			exited = true
			exitErr = err
		case <-ticker.C:
			if exited && len(lines) == 0 {
				break stream
			}
			if opts.NoOutputTimeout > 0 && time.Since(lastOutput) > opts.NoOutputTimeout {
				res.TimedOut = true
				logf("runner: %s produced no output for %s, terminating", argv[0], opts.NoOutputTimeout)
				if !exited {
					_ = cmd.Process.Signal(syscall.SIGTERM)
				}
				break stream
			}
		}
	}

	// Drain whatever the reader still holds so it can reach EOF and exit.
	// Output past this point is not part of the run anymore.
	go func() {
		for range lines {
		}
	}()

	if res.TimedOut && !exited {
		select {
		case exitErr = <-waitCh:
			exited = true
		case <-time.After(terminateGrace):
			_ = cmd.Process.Kill()
		}
	}
	if !exited {
		select {
		case exitErr = <-waitCh:
		case <-time.After(exitWait):
			logf("runner: %s did not exit, killing", argv[0])
			_ = cmd.Process.Kill()
			select {
			case exitErr = <-waitCh:
			case <-time.After(killWait):
				exitErr = fmt.Errorf("runner: %s did not exit after kill", argv[0])
			}
		}
	}

	// Unblock the reader if a leftover grandchild still holds the pipe.
	pr.Close()

	mirror.StreamEnd(opts.Agent, argv[0])

	res.ExitCode = exitCodeOf(exitErr)
	res.Usage = usage.usage
	return res
}

// exitCodeOf maps a Wait error to an exit code. Signaled or unwaitable
// processes report -1.
func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}

// cleanEnviron returns the current environment minus variables that would
// make a spawned tool believe it is running nested inside another tool
// session.
func cleanEnviron() []string {
	env := os.Environ()
	out := make([]string, 0, len(env))
	for _, kv := range env {
		if strings.HasPrefix(kv, "CLAUDECODE=") {
			continue
		}
		out = append(out, kv)
	}
	return out
}
