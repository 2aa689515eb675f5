package db

import (
	"fmt"

	"github.com/loopboard/loopboard/internal/config"
	"github.com/loopboard/loopboard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Agent{},
		&models.Message{},
		&models.Alert{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedAgents upserts Agent rows from configuration.
func SeedAgents(db *gorm.DB, agents []config.AgentConfig) error {
	for _, ac := range agents {
		agent := models.Agent{
			ID:   ac.ID,
			Name: ac.Name,
			Role: ac.Role,
		}

		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "role"}),
		}).Create(&agent)
		if result.Error != nil {
			return fmt.Errorf("db: seed agent %q: %w", ac.ID, result.Error)
		}
	}
	return nil
}
