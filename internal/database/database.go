package database

import (
	"fmt"
	"time"

	"github.com/wnt/mevx/internal/config"
	"github.com/wnt/mevx/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the remote directory database described by cfg and migrates it
func Connect(cfg config.Config) (*gorm.DB, error) {
	db, err := Open(postgres.Open(cfg.DSN()))
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// Open opens a gorm database on the given dialector and migrates the schema
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(dialector, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrateSchema(db); err != nil {
		return nil, err
	}

	return db, nil
}

func migrateSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.WalletConnection{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// Admin listing filters by status and orders by join date
	db.Exec("CREATE INDEX IF NOT EXISTS idx_users_status_join_date ON users(status, join_date)")

	return nil
}
