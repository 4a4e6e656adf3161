package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// starterConfig is the seeded switchyard.yaml. The %s is the resolved
// project directory.
const starterConfig = `# Switchyard swarm configuration.
project_dir: %s
mailbox_db: .switchyard/mailbox.db

agents:
  swarm-lead:
    role: lead
    provider: claude
    system: |
      You are swarm-lead, the coordinating agent of this swarm.
      Break work into tasks, assign them to workers, and review results.
  worker-1:
    role: coder
    provider: claude

# Optional status dashboard (sy dashboard).
# dashboard:
#   listen: "127.0.0.1:8944"

# Optional periodic swarm digest mailed to the lead (cron, 5 fields).
# digest:
#   schedule: "0 9 * * *"

# Optional escalation sinks. A sink is enabled by filling its credentials.
# alerts:
#   slack: { token: "", channel: "" }
#   discord: { token: "", channel_id: "" }
#   github: { token: "", owner: "", repo: "" }
`

func newInitCmd() *cobra.Command {
	var (
		configPath string
		projectDir string
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Seed a starter switchyard.yaml",
		Long:  "Writes a starter configuration with a lead and one worker. The project directory defaults to the current directory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, configPath, projectDir, force)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to write the config file")
	cmd.Flags().StringVar(&projectDir, "project-dir", "", "project directory the swarm works in (default: current directory)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func runInit(cmd *cobra.Command, configPath, projectDir string, force bool) error {
	out := cmd.OutOrStdout()

	abs, err := filepath.Abs(configPath)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", configPath, err)
	}
	if _, err := os.Stat(abs); err == nil && !force {
		return fmt.Errorf("config already exists: %s (use --force to overwrite)", abs)
	}

	if projectDir == "" {
		projectDir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("determine working directory: %w", err)
		}
	} else {
		projectDir, err = filepath.Abs(projectDir)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", projectDir, err)
		}
		info, err := os.Stat(projectDir)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("project directory not found: %s", projectDir)
		}
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(abs), err)
	}
	if err := os.WriteFile(abs, []byte(fmt.Sprintf(starterConfig, projectDir)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", abs, err)
	}

	fmt.Fprintf(out, "Seeded config: %s\n", abs)
	fmt.Fprintf(out, "Effective project_dir: %s\n", projectDir)
	return nil
}
