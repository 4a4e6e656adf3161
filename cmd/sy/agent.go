package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zulandar/switchyard/internal/alerts"
	"github.com/zulandar/switchyard/internal/mailbox"
	"github.com/zulandar/switchyard/internal/notify"
	"github.com/zulandar/switchyard/internal/provider"
	"github.com/zulandar/switchyard/internal/state"
	"github.com/zulandar/switchyard/internal/supervisor"
)

func newAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "agent",
		Short:  "Agent daemon internals",
		Hidden: true,
	}

	cmd.AddCommand(newAgentRunCmd())
	return cmd
}

func newAgentRunCmd() *cobra.Command {
	var (
		configPath string
		name       string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one agent daemon in the foreground",
		Long:  "The entry point `sy start` spawns. Runs the agent's supervisor loop until SIGINT or SIGTERM.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgentRun(cmd, configPath, name)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Switchyard config file")
	cmd.Flags().StringVar(&name, "name", "", "agent to run (required)")
	cmd.MarkFlagRequired("name")
	return cmd
}

func runAgentRun(cmd *cobra.Command, configPath, name string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	agentCfg, ok := cfg.Agents[name]
	if !ok {
		return fmt.Errorf("agent %q not found in config (available: %s)",
			name, strings.Join(cfg.AgentNames(), ", "))
	}
	if err := cfg.EnsureRuntimeDirs(); err != nil {
		return err
	}

	gdb, err := openMailbox(cfg)
	if err != nil {
		return err
	}
	store, err := mailbox.New(gdb, name)
	if err != nil {
		return err
	}

	prov, err := provider.New(agentCfg.Provider, provider.Options{
		Agent:          name,
		AllowedTools:   agentCfg.AllowedTools,
		PermissionMode: agentCfg.PermissionMode,
		Model:          agentCfg.Model,
	})
	if err != nil {
		return err
	}

	st, err := state.NewFile(cfg.AgentStatePath(name), name, agentCfg.Provider)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	// A broken watcher only degrades to timed polling.
	watcher, err := notify.NewWatcher(cfg.MailboxDB, 0)
	if err != nil {
		fmt.Fprintf(out, "mailbox watcher unavailable, falling back to polling: %v\n", err)
		watcher = nil
	}

	sinks, err := alerts.FromConfig(cfg.Alerts)
	if err != nil {
		return err
	}
	defer sinks.Close()

	opts := supervisor.Options{
		Config:   cfg,
		Agent:    name,
		Store:    store,
		Provider: prov,
		State:    st,
		Notifier: watcher,
		Out:      out,
	}
	if sinks.Len() > 0 {
		opts.Alerts = sinks
	}

	sup, err := supervisor.New(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return sup.Run(ctx)
}
