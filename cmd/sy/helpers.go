package main

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/zulandar/switchyard/internal/config"
	"github.com/zulandar/switchyard/internal/db"
)

const defaultConfigPath = "switchyard.yaml"

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// openMailbox connects to the configured mailbox database and migrates the
// schema. Migration is idempotent, so every command can call this safely.
func openMailbox(cfg *config.Config) (*gorm.DB, error) {
	gdb, err := db.Connect(cfg.MailboxDB)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}

// normalizeTargets expands an optional positional agent argument into the
// list of agents a command operates on: the named one, or all configured.
func normalizeTargets(cfg *config.Config, args []string) ([]string, error) {
	if len(args) == 0 {
		return cfg.AgentNames(), nil
	}
	name := args[0]
	if _, ok := cfg.Agents[name]; !ok {
		return nil, fmt.Errorf("agent %q not found in config", name)
	}
	return []string{name}, nil
}
