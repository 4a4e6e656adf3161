// Package spawn manages detached agent daemon processes: pidfiles, liveness
// probes, background launch, and the terminate-then-kill stop sequence.
package spawn

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const (
	// StopDeadline is how long Stop waits after SIGTERM before escalating
	// to SIGKILL.
	StopDeadline = 5 * time.Second
	// stopPoll is the liveness re-check interval while waiting.
	stopPoll = 200 * time.Millisecond
)

// ReadPid returns the pid recorded in a pidfile, or 0 when the file is
// missing or unparseable.
func ReadPid(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0
	}
	return pid
}

// WritePid records a pid, creating the parent directory if needed.
func WritePid(path string, pid int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("spawn: create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return fmt.Errorf("spawn: write pidfile %s: %w", path, err)
	}
	return nil
}

// RemovePid deletes a pidfile. A missing file is not an error.
func RemovePid(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("spawn: remove pidfile %s: %w", path, err)
	}
	return nil
}

// Alive reports whether pid names a live process, using a signal-0 probe.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}

// StartOpts describes a daemon to launch in the background.
type StartOpts struct {
	// Argv is the full command line; Argv[0] is the executable.
	Argv []string

	// Dir is the child's working directory. Empty inherits.
	Dir string

	// Env is the child environment. Nil inherits.
	Env []string

	// LogPath receives the daemon's combined stdout and stderr, appended.
	LogPath string

	// PidPath is where the child's pid is recorded.
	PidPath string
}

// Start launches a detached daemon: its own session (so the pid doubles as
// the process-group id for Stop), stdin from /dev/null, output appended to
// the log file. The child's pid is written to the pidfile before returning.
func Start(opts StartOpts) (int, error) {
	if len(opts.Argv) == 0 {
		return 0, fmt.Errorf("spawn: argv is required")
	}

	if err := os.MkdirAll(filepath.Dir(opts.LogPath), 0o755); err != nil {
		return 0, fmt.Errorf("spawn: create %s: %w", filepath.Dir(opts.LogPath), err)
	}
	logFile, err := os.OpenFile(opts.LogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("spawn: open log %s: %w", opts.LogPath, err)
	}
	devnull, err := os.Open(os.DevNull)
	if err != nil {
		logFile.Close()
		return 0, fmt.Errorf("spawn: open %s: %w", os.DevNull, err)
	}

	cmd := exec.Command(opts.Argv[0], opts.Argv[1:]...)
	cmd.Dir = opts.Dir
	cmd.Env = opts.Env
	cmd.Stdin = devnull
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		logFile.Close()
		devnull.Close()
		return 0, fmt.Errorf("spawn: start %s: %w", opts.Argv[0], err)
	}
	pid := cmd.Process.Pid

	// Reap in the background; the daemon outlives us, but a fast-failing
	// child should not linger as a zombie while this process runs.
	go func() {
		_ = cmd.Wait()
		logFile.Close()
		devnull.Close()
	}()

	if err := WritePid(opts.PidPath, pid); err != nil {
		return pid, err
	}
	return pid, nil
}

// Stop terminates a daemon's whole process group: SIGTERM, wait up to
// deadline for the pid to die, then SIGKILL. Reports whether the kill
// escalation was needed. The pidfile is the caller's to remove.
func Stop(pid int, deadline time.Duration) (forced bool) {
	if pid <= 0 {
		return false
	}
	// The daemon was started with Setsid, so pgid == pid and the negative
	// pid reaches the daemon plus any tool processes it spawned.
	_ = syscall.Kill(-pid, syscall.SIGTERM)

	end := time.Now().Add(deadline)
	for time.Now().Before(end) && Alive(pid) {
		time.Sleep(stopPoll)
	}
	if !Alive(pid) {
		return false
	}
	_ = syscall.Kill(-pid, syscall.SIGKILL)
	return true
}
