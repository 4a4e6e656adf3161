package db

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{
			name: "relative path",
			path: ".switchyard/mailbox.db",
			want: "file:.switchyard/mailbox.db?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate",
		},
		{
			name: "absolute path",
			path: "/var/lib/switchyard/mailbox.db",
			want: "file:/var/lib/switchyard/mailbox.db?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DSN(tt.path)
			if got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDSN_LockSettings(t *testing.T) {
	dsn := DSN("x.db")
	if !strings.Contains(dsn, "_busy_timeout=5000") {
		t.Errorf("DSN missing busy timeout: %s", dsn)
	}
	if !strings.Contains(dsn, "_journal_mode=WAL") {
		t.Errorf("DSN missing WAL journal mode: %s", dsn)
	}
	if !strings.Contains(dsn, "_txlock=immediate") {
		t.Errorf("DSN missing immediate txlock: %s", dsn)
	}
}

func TestConnect_EmptyPath(t *testing.T) {
	_, err := Connect("")
	if err == nil {
		t.Fatal("expected error for empty path")
	}
	if got := err.Error(); got != "db: path is required" {
		t.Errorf("error = %q", got)
	}
}

func TestConnect_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "mailbox.db")
	gdb, err := Connect(path)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("DB(): %v", err)
	}
	defer sqlDB.Close()
	if err := sqlDB.Ping(); err != nil {
		t.Errorf("ping: %v", err)
	}
}

func TestAutoMigrate(t *testing.T) {
	gdb, err := Connect(filepath.Join(t.TempDir(), "mailbox.db"))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	for _, table := range []string{"agents", "messages", "broadcast_reads"} {
		if !gdb.Migrator().HasTable(table) {
			t.Errorf("missing table %q after migrate", table)
		}
	}
}

func TestAllModels_Count(t *testing.T) {
	models := AllModels()
	if len(models) != 3 {
		t.Errorf("AllModels() returned %d models, want 3", len(models))
	}
}
