package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zulandar/switchyard/internal/dashboard"
	"github.com/zulandar/switchyard/internal/digest"
)

func newDashboardCmd() *cobra.Command {
	var (
		configPath string
		listen     string
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Start the read-only web dashboard",
		Long:  "Serves a local status page over the mailbox database. When a digest schedule is configured, the digest scheduler runs in the same process.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd, configPath, listen)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Switchyard config file")
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default: config value or "+dashboard.DefaultListen+")")
	return cmd
}

func runDashboard(cmd *cobra.Command, configPath, listen string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	gdb, err := openMailbox(cfg)
	if err != nil {
		return err
	}

	if listen == "" {
		listen = cfg.Dashboard.Listen
	}
	if listen == "" {
		listen = dashboard.DefaultListen
	}

	out := cmd.OutOrStdout()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	if cfg.Digest.Schedule != "" {
		dig, err := digest.New(gdb)
		if err != nil {
			return err
		}
		logf := func(format string, args ...interface{}) {
			fmt.Fprintf(out, format+"\n", args...)
		}
		go dig.Run(ctx, cfg.Digest.Schedule, logf)
	}

	return dashboard.Start(ctx, dashboard.StartOpts{
		DB:     gdb,
		Listen: listen,
		Out:    out,
	})
}
