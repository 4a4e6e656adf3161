package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/zulandar/switchyard/internal/spawn"
)

func TestStopNoPidfile(t *testing.T) {
	path, _ := writeTestConfig(t)

	out, err := runCmd(t, "stop", "worker-1", "--config", path)
	if err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if out != "worker-1: not running (no pid file)\n" {
		t.Fatalf("output = %q", out)
	}
}

func TestStopStalePidfile(t *testing.T) {
	path, cfg := writeTestConfig(t)
	if err := cfg.EnsureRuntimeDirs(); err != nil {
		t.Fatal(err)
	}

	// A just-reaped child gives a pid that is guaranteed dead.
	probe := exec.Command("true")
	if err := probe.Run(); err != nil {
		t.Fatal(err)
	}
	deadPid := probe.Process.Pid

	pidPath := cfg.AgentPidPath("worker-1")
	if err := spawn.WritePid(pidPath, deadPid); err != nil {
		t.Fatal(err)
	}

	out, err := runCmd(t, "stop", "worker-1", "--config", path)
	if err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	want := fmt.Sprintf("worker-1: stale pid file (pid %d not alive), removing\n", deadPid)
	if out != want {
		t.Fatalf("output = %q, want %q", out, want)
	}
	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Fatal("stale pidfile not removed")
	}
}

func TestStopRunningDaemon(t *testing.T) {
	path, cfg := writeTestConfig(t)
	if err := cfg.EnsureRuntimeDirs(); err != nil {
		t.Fatal(err)
	}

	pidPath := cfg.AgentPidPath("swarm-lead")
	pid, err := spawn.Start(spawn.StartOpts{
		Argv:    []string{"sh", "-c", "sleep 30"},
		Dir:     cfg.ProjectDir,
		LogPath: cfg.AgentLogPath("swarm-lead"),
		PidPath: pidPath,
	})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	t.Cleanup(func() { spawn.Stop(pid, spawn.StopDeadline) })

	out, err := runCmd(t, "stop", "swarm-lead", "--config", path)
	if err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if !strings.Contains(out, fmt.Sprintf("swarm-lead: sending SIGTERM to process group %d", pid)) {
		t.Fatalf("output missing SIGTERM line: %q", out)
	}
	if !strings.Contains(out, "swarm-lead: stopped") {
		t.Fatalf("output missing stopped line: %q", out)
	}
	if spawn.Alive(pid) {
		t.Fatal("daemon still alive after stop")
	}
	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Fatal("pidfile not removed after stop")
	}
}

func TestStopUnknownAgent(t *testing.T) {
	path, _ := writeTestConfig(t)
	_, err := runCmd(t, "stop", "zzz", "--config", path)
	if err == nil || !strings.Contains(err.Error(), `agent "zzz" not found in config`) {
		t.Fatalf("err = %v", err)
	}
}
