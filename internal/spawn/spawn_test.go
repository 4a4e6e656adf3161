package spawn

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"
)

// --- pidfiles ---

func TestPidFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pids", "lead.pid")

	if err := WritePid(path, 4242); err != nil {
		t.Fatalf("WritePid: %v", err)
	}
	if got := ReadPid(path); got != 4242 {
		t.Fatalf("ReadPid = %d, want 4242", got)
	}
	if err := RemovePid(path); err != nil {
		t.Fatalf("RemovePid: %v", err)
	}
	if got := ReadPid(path); got != 0 {
		t.Fatalf("ReadPid after remove = %d, want 0", got)
	}
}

func TestReadPidMissing(t *testing.T) {
	if got := ReadPid(filepath.Join(t.TempDir(), "nope.pid")); got != 0 {
		t.Fatalf("ReadPid = %d, want 0", got)
	}
}

func TestReadPidMalformed(t *testing.T) {
	cases := []string{"", "garbage", "-3", "0", "12.5"}
	for _, content := range cases {
		path := filepath.Join(t.TempDir(), "agent.pid")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if got := ReadPid(path); got != 0 {
			t.Errorf("ReadPid(%q) = %d, want 0", content, got)
		}
	}
}

func TestReadPidTrimsWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.pid")
	if err := os.WriteFile(path, []byte("  517\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := ReadPid(path); got != 517 {
		t.Fatalf("ReadPid = %d, want 517", got)
	}
}

func TestRemovePidMissingIsNoError(t *testing.T) {
	if err := RemovePid(filepath.Join(t.TempDir(), "nope.pid")); err != nil {
		t.Fatalf("RemovePid on missing file: %v", err)
	}
}

// --- liveness ---

func TestAliveSelf(t *testing.T) {
	if !Alive(os.Getpid()) {
		t.Fatal("Alive(self) = false")
	}
}

func TestAliveInvalid(t *testing.T) {
	if Alive(0) {
		t.Fatal("Alive(0) = true")
	}
	if Alive(-1) {
		t.Fatal("Alive(-1) = true")
	}
}

// --- start / stop ---

func TestStartWritesPidAndLog(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "logs", "w1.log")
	pidPath := filepath.Join(dir, "pids", "w1.pid")

	pid, err := Start(StartOpts{
		Argv:    []string{"sh", "-c", "echo hello from daemon; sleep 30"},
		LogPath: logPath,
		PidPath: pidPath,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() {
		Stop(pid, time.Second)
		RemovePid(pidPath)
	}()

	if pid <= 0 {
		t.Fatalf("Start returned pid %d", pid)
	}
	if got := ReadPid(pidPath); got != pid {
		t.Fatalf("pidfile has %d, want %d", got, pid)
	}
	if !Alive(pid) {
		t.Fatal("daemon not alive after Start")
	}

	// Output lands in the log file.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		data, _ := os.ReadFile(logPath)
		if strings.Contains(string(data), "hello from daemon") {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	data, _ := os.ReadFile(logPath)
	t.Fatalf("log missing daemon output; got %q", string(data))
}

func TestStartLaunchFailure(t *testing.T) {
	dir := t.TempDir()
	_, err := Start(StartOpts{
		Argv:    []string{"/nonexistent-binary-xyz"},
		LogPath: filepath.Join(dir, "x.log"),
		PidPath: filepath.Join(dir, "x.pid"),
	})
	if err == nil {
		t.Fatal("Start succeeded for nonexistent binary")
	}
	if !strings.Contains(err.Error(), "spawn: start") {
		t.Fatalf("err = %q, want spawn: start prefix", err)
	}
}

func TestStartEmptyArgv(t *testing.T) {
	if _, err := Start(StartOpts{}); err == nil {
		t.Fatal("Start with empty argv succeeded")
	}
}

func TestStopTerminatesGroup(t *testing.T) {
	dir := t.TempDir()
	pid, err := Start(StartOpts{
		Argv:    []string{"sh", "-c", "sleep 30"},
		LogPath: filepath.Join(dir, "d.log"),
		PidPath: filepath.Join(dir, "d.pid"),
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !Alive(pid) {
		t.Fatal("daemon not alive after Start")
	}

	forced := Stop(pid, 2*time.Second)
	if forced {
		t.Fatal("Stop escalated to SIGKILL for a sh that honors SIGTERM")
	}
	if Alive(pid) {
		t.Fatal("daemon alive after Stop")
	}
}

func TestStopForceKillsStubborn(t *testing.T) {
	dir := t.TempDir()
	// Child ignores SIGTERM so Stop must escalate.
	pid, err := Start(StartOpts{
		Argv:    []string{"sh", "-c", "trap '' TERM; sleep 30"},
		LogPath: filepath.Join(dir, "s.log"),
		PidPath: filepath.Join(dir, "s.pid"),
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	// Give sh a moment to install the trap.
	time.Sleep(100 * time.Millisecond)

	forced := Stop(pid, 600*time.Millisecond)
	if !forced {
		t.Fatal("Stop did not escalate for a SIGTERM-ignoring daemon")
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && Alive(pid) {
		time.Sleep(20 * time.Millisecond)
	}
	if Alive(pid) {
		t.Fatal("daemon alive after force kill")
	}
}

func TestStopNoopOnInvalidPid(t *testing.T) {
	if forced := Stop(0, time.Second); forced {
		t.Fatal("Stop(0) reported forced")
	}
}

func TestStartDetachesSession(t *testing.T) {
	dir := t.TempDir()
	pid, err := Start(StartOpts{
		Argv:    []string{"sh", "-c", "sleep 30"},
		LogPath: filepath.Join(dir, "g.log"),
		PidPath: filepath.Join(dir, "g.pid"),
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer Stop(pid, time.Second)

	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		t.Fatalf("Getpgid: %v", err)
	}
	if pgid != pid {
		t.Fatalf("pgid = %d, want %d (own session)", pgid, pid)
	}
}
