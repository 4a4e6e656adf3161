// Package db opens and migrates the shared mailbox database.
package db

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DSN builds the SQLite DSN for the mailbox file. WAL keeps concurrent
// daemon readers off the writers' lock, the busy timeout bounds lock waits,
// and immediate transactions take the write lock up front so dequeue-and-mark
// stays atomic under cross-process contention.
func DSN(path string) string {
	return fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate", path)
}

// Connect opens a GORM connection to the mailbox database, creating the
// parent directory if needed.
func Connect(path string) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("db: path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("db: create %s: %w", dir, err)
		}
	}
	gdb, err := gorm.Open(sqlite.Open(DSN(path)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: connect %s: %w", path, err)
	}
	return gdb, nil
}
