package postgres

import (
	"fmt"

	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"deal-chain.backend/internal/config"
	"deal-chain.backend/internal/infrastructure/models"
)

var gormOpen = func(dsn string) (*gorm.DB, error) {
	return gorm.Open(gormpostgres.New(gormpostgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		PrepareStmt:          false,
		DisableAutomaticPing: true,
	})
}

// NewConnection opens the GORM handle for the configured PostgreSQL
// database. The handle is opened lazily; callers ping it to learn whether
// the database is actually reachable.
func NewConnection(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gormOpen(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// Migrate keeps the deal and bridge tables in step with the model structs.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Deal{},
		&models.DealCondition{},
		&models.DealTimelineEvent{},
		&models.CrossChainTransaction{},
		&models.CrossChainStep{},
	)
}
