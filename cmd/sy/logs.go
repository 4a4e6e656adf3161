package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// followPoll is how often follow mode re-checks the log file for growth.
const followPoll = 500 * time.Millisecond

func newLogsCmd() *cobra.Command {
	var (
		configPath string
		lines      int
		follow     bool
	)

	cmd := &cobra.Command{
		Use:   "logs <agent>",
		Short: "View an agent's daemon log",
		Long:  "Prints the tail of one agent's log file. With --follow, keeps polling for new output until interrupted.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogs(cmd, configPath, args[0], lines, follow)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Switchyard config file")
	cmd.Flags().IntVarP(&lines, "lines", "n", 80, "number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep printing new log output")
	return cmd
}

func runLogs(cmd *cobra.Command, configPath, agent string, lines int, follow bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if _, ok := cfg.Agents[agent]; !ok {
		return fmt.Errorf("unknown agent %q", agent)
	}

	path := cfg.AgentLogPath(agent)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("log file not found: %s", path)
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	out := cmd.OutOrStdout()

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	for _, line := range tailLines(string(data), lines) {
		fmt.Fprintln(out, line)
	}

	if !follow {
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	offset := int64(len(data))
	ticker := time.NewTicker(followPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			if info.Size() < offset {
				// Rotated or truncated; start over from the top.
				offset = 0
			}
			if info.Size() == offset {
				continue
			}
			chunk := make([]byte, info.Size()-offset)
			if _, err := f.ReadAt(chunk, offset); err != nil && err != io.EOF {
				continue
			}
			fmt.Fprint(out, string(chunk))
			offset = info.Size()
		}
	}
}

// tailLines returns the last n lines of text, oldest first. Non-positive n
// returns nothing, matching a pure follow.
func tailLines(text string, n int) []string {
	if n <= 0 {
		return nil
	}
	trimmed := strings.TrimRight(text, "\n")
	if trimmed == "" {
		return nil
	}
	all := strings.Split(trimmed, "\n")
	if len(all) > n {
		all = all[len(all)-n:]
	}
	return all
}
