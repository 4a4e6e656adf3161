package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/switchyard/internal/spawn"
)

func newStopCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "stop [agent]",
		Short: "Stop agent daemons",
		Long:  "Sends SIGTERM to each daemon's process group (the daemon and its provider children), escalating to SIGKILL after 5 seconds. Stale pidfiles are reaped.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStop(cmd, configPath, args)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Switchyard config file")
	return cmd
}

func runStop(cmd *cobra.Command, configPath string, args []string) error {
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

	out := cmd.OutOrStdout()
	for _, name := range targets {
		pidPath := cfg.AgentPidPath(name)
		pid := spawn.ReadPid(pidPath)
		if pid == 0 {
			fmt.Fprintf(out, "%s: not running (no pid file)\n", name)
			continue
		}
		if !spawn.Alive(pid) {
			fmt.Fprintf(out, "%s: stale pid file (pid %d not alive), removing\n", name, pid)
			if err := spawn.RemovePid(pidPath); err != nil {
				return err
			}
			continue
		}

		fmt.Fprintf(out, "%s: sending SIGTERM to process group %d\n", name, pid)
		if spawn.Stop(pid, spawn.StopDeadline) {
			fmt.Fprintf(out, "%s: force killed process group %d\n", name, pid)
		}
		if err := spawn.RemovePid(pidPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: stopped\n", name)
	}
	return nil
}
