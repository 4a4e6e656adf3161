package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zulandar/switchyard/internal/spawn"
)

func newStartCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "start [agent]",
		Short: "Start agent daemons",
		Long:  "Spawns a detached daemon per configured agent (or just the named one). Daemon output goes to .switchyard/logs/<agent>.log; a pidfile tracks the process group.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd, configPath, args)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Switchyard config file")
	return cmd
}

func runStart(cmd *cobra.Command, configPath string, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.EnsureRuntimeDirs(); err != nil {
		return err
	}
	targets, err := normalizeTargets(cfg, args)
	if err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate sy binary: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, name := range targets {
		pidPath := cfg.AgentPidPath(name)
		if pid := spawn.ReadPid(pidPath); pid != 0 && spawn.Alive(pid) {
			fmt.Fprintf(out, "%s: already running (pid %d)\n", name, pid)
			continue
		}

		pid, err := spawn.Start(spawn.StartOpts{
			Argv:    []string{exe, "agent", "run", "--config", cfg.ConfigPath, "--name", name},
			Dir:     cfg.ProjectDir,
			LogPath: cfg.AgentLogPath(name),
			PidPath: pidPath,
		})
		if err != nil {
			return fmt.Errorf("start %s: %w", name, err)
		}
		fmt.Fprintf(out, "%s: started (pid %d)\n", name, pid)
	}
	return nil
}
