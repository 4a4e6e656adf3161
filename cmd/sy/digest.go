package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/switchyard/internal/digest"
)

func newDigestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Swarm digest commands",
	}

	cmd.AddCommand(newDigestOnceCmd())
	return cmd
}

func newDigestOnceCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "once",
		Short: "Compose and send one digest now",
		Long:  "Builds the swarm digest and mails it to the lead agent immediately, ignoring the configured schedule.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDigestOnce(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Switchyard config file")
	return cmd
}

func runDigestOnce(cmd *cobra.Command, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	gdb, err := openMailbox(cfg)
	if err != nil {
		return err
	}

	dig, err := digest.New(gdb)
	if err != nil {
		return err
	}
	msg, err := dig.Send()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "sent digest message id=%d to=%s\n", msg.ID, msg.ToAgent)
	return nil
}
