// internal/database/connection.go
package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cardmeet/cardmeet-backend/internal/config"
	"github.com/cardmeet/cardmeet-backend/internal/models"
)

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var gormConfig *gorm.Config

	// Configure GORM logger
	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	} else {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		}
	}

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.Info("Database connection established successfully")
	return db, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Error("Error getting underlying sql.DB")
		return
	}

	if err := sqlDB.Close(); err != nil {
		logrus.WithError(err).Error("Error closing database connection")
	} else {
		logrus.Info("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	logrus.Info("Running database migrations...")

	// Enable UUID extension
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		return fmt.Errorf("failed to create UUID extension: %w", err)
	}

	err := db.AutoMigrate(
		&models.User{},
		&models.CardDefinition{},
		&models.InventoryItem{},
		&models.Event{},
		&models.EventParticipation{},
		&models.Trade{},
		&models.TradeItem{},
		&models.TradeApproval{},
		&models.SaleRecord{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	logrus.Info("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)",
		"CREATE INDEX IF NOT EXISTS idx_users_guardian ON users(guardian_id)",
		"CREATE INDEX IF NOT EXISTS idx_users_role ON users(role)",

		// Inventory indexes
		"CREATE INDEX IF NOT EXISTS idx_inventory_owner_status ON inventory_items(owner_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_inventory_card ON inventory_items(card_definition_id)",
		"CREATE INDEX IF NOT EXISTS idx_inventory_visibility ON inventory_items(visibility, status)",

		// Trade indexes
		"CREATE INDEX IF NOT EXISTS idx_trades_proposer ON trades(proposer_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_trades_receiver ON trades(receiver_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_trades_event ON trades(event_id)",
		"CREATE INDEX IF NOT EXISTS idx_trade_items_trade_side ON trade_items(trade_id, side)",
		"CREATE INDEX IF NOT EXISTS idx_trade_approvals_trade_status ON trade_approvals(trade_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_trade_approvals_guardian ON trade_approvals(guardian_id, status)",

		// Event indexes
		"CREATE INDEX IF NOT EXISTS idx_events_status_start ON events(status, start_at)",
		"CREATE INDEX IF NOT EXISTS idx_participations_user ON event_participations(user_id, status)",

		// Sale indexes
		"CREATE INDEX IF NOT EXISTS idx_sale_records_vendor ON sale_records(vendor_id, sold_at DESC)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			logrus.WithError(err).Warnf("Failed to create index: %s", index)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// WithTransaction runs fn inside one all-or-nothing transaction. Every
// operation touching both trade status and inventory/trade-item rows
// goes through here so partial application is impossible.
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
