package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ksred/freight-clearing-api/internal/clearing"
	"github.com/ksred/freight-clearing-api/internal/database/migrations"
	"github.com/ksred/freight-clearing-api/internal/types"
)

// NewDatabase initializes and returns a new GORM DB connection
func NewDatabase(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := migrations.AddRoutingTables(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := migrations.AddNettingTables(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Auto-migrate other schemas
	err = db.AutoMigrate(
		&types.ProfitAllocation{},
		&clearing.ClearingInstruction{},
		&clearing.ClearingDetail{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}
