package main

import (
	"strings"
	"testing"
)

func TestDashboardCmdFlags(t *testing.T) {
	cmd := newDashboardCmd()
	flag := cmd.Flags().Lookup("listen")
	if flag == nil {
		t.Fatal("expected --listen flag")
	}
	if flag.DefValue != "" {
		t.Errorf("--listen default = %q, want empty (config decides)", flag.DefValue)
	}
	if !strings.Contains(flag.Usage, "127.0.0.1:8944") {
		t.Errorf("--listen usage should name the fallback address, got %q", flag.Usage)
	}
}

func TestDashboardMissingConfig(t *testing.T) {
	_, err := runCmd(t, "dashboard", "--config", "/nonexistent/switchyard.yaml")
	if err == nil || !strings.Contains(err.Error(), "load config") {
		t.Fatalf("err = %v", err)
	}
}
