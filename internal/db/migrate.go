package db

import (
	"fmt"

	"github.com/zulandar/switchyard/internal/models"
	"gorm.io/gorm"
)

// AllModels returns the GORM models that make up the mailbox schema.
func AllModels() []interface{} {
	return []interface{}{
		&models.Agent{},
		&models.Message{},
		&models.BroadcastRead{},
	}
}

// AutoMigrate creates or updates the mailbox tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
