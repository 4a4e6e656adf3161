package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/switchyard/internal/mailbox"
)

func newSendCmd() *cobra.Command {
	var (
		configPath string
		from       string
		cc         string
	)

	cmd := &cobra.Command{
		Use:   "send <to> <message...>",
		Short: "Send a mailbox message",
		Long:  "Inserts a message into the shared mailbox. Use \"all\" as the recipient to broadcast to every agent.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, configPath, from, cc, args[0], args[1:])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Switchyard config file")
	cmd.Flags().StringVar(&from, "from", "lead", "sender agent name")
	cmd.Flags().StringVar(&cc, "cc", "", "carbon-copy agent name")
	return cmd
}

func runSend(cmd *cobra.Command, configPath, from, cc, to string, words []string) error {
	payload := strings.TrimSpace(strings.Join(words, " "))
	if payload == "" {
		return fmt.Errorf("message cannot be empty")
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	gdb, err := openMailbox(cfg)
	if err != nil {
		return err
	}

	store, err := mailbox.New(gdb, from)
	if err != nil {
		return err
	}
	msg, err := store.Send(from, to, payload, cc)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "sent message id=%d from=%s to=%s\n", msg.ID, from, to)
	return nil
}
