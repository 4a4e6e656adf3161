package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/zulandar/switchyard/internal/spawn"
	"github.com/zulandar/switchyard/internal/state"
)

func newStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status for all configured agents",
		Long:  "Prints one row per configured agent: pidfile pid, process liveness, and the daemon's last persisted snapshot status.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Switchyard config file")
	return cmd
}

func runStatus(cmd *cobra.Command, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.EnsureRuntimeDirs(); err != nil {
		return err
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "AGENT\tPID\tALIVE\tSTATUS\tUPDATED_AT")

	for _, name := range cfg.AgentNames() {
		pidDisplay := "-"
		alive := false
		if pid := spawn.ReadPid(cfg.AgentPidPath(name)); pid != 0 {
			pidDisplay = strconv.Itoa(pid)
			alive = spawn.Alive(pid)
		}

		status := "unknown"
		updatedAt := "-"
		snap, err := state.Load(cfg.AgentStatePath(name))
		switch {
		case err == nil:
			if snap.Status != "" {
				status = snap.Status
			}
			if snap.UpdatedAt != "" {
				updatedAt = snap.UpdatedAt
			}
		case errors.Is(err, os.ErrNotExist):
			// Never started; keep defaults.
		default:
			status = "invalid-state"
		}

		fmt.Fprintf(w, "%s\t%s\t%v\t%s\t%s\n", name, pidDisplay, alive, status, updatedAt)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	width := 0
	if term.IsTerminal(int(os.Stdout.Fd())) {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			width = w
		}
	}
	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		fmt.Fprintln(out, fitWidth(line, width))
	}
	return nil
}

// fitWidth truncates a rendered row to the terminal width so long snapshot
// fields never wrap the table. Width 0 means unconstrained.
func fitWidth(line string, width int) string {
	if width <= 0 {
		return line
	}
	runes := []rune(line)
	if len(runes) <= width {
		return line
	}
	return string(runes[:width])
}
