// internal/database/connection.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/needus/ecommerce-backend/internal/config"
	"github.com/needus/ecommerce-backend/internal/models"
	"github.com/needus/ecommerce-backend/internal/repository"
	"github.com/needus/ecommerce-backend/internal/services"
)

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
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

	logrus.WithFields(logrus.Fields{
		"host":     cfg.Host,
		"database": cfg.Database,
	}).Info("Database connection established successfully")
	return db, nil
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
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

	err := db.AutoMigrate(
		&models.User{},
		&models.ConfirmationToken{},
		&models.Brand{},
		&models.Category{},
		&models.ProductFilter{},
		&models.Product{},
		&models.ProductImage{},
		&models.ProductFilterTag{},
		&models.UserOrder{},
		&models.OrderItem{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	createIndexes(db)

	logrus.Info("Database migrations completed successfully")
	return nil
}

// createIndexes adds the composite indexes AutoMigrate cannot express.
// A failing index is logged and skipped.
func createIndexes(db *gorm.DB) {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_product_images_product_position ON product_images(product_id, position)",
		"CREATE INDEX IF NOT EXISTS idx_product_filter_tags_position ON product_filter_tags(product_id, position)",
		"CREATE INDEX IF NOT EXISTS idx_user_orders_status_created ON user_orders(order_status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource_type, resource_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_confirmation_tokens_expires ON confirmation_tokens(expires_at)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			logrus.WithFields(logrus.Fields{
				"index": index,
				"error": err,
			}).Warn("Failed to create index")
		}
	}
}

// SeedInitialData creates the default admin account and the starter
// catalog lookups when the tables are empty.
func SeedInitialData(ctx context.Context, store repository.Store, users *services.UserService, cfg *config.Config) error {
	logrus.Info("Seeding initial data...")

	if _, err := users.EnsureAdmin(ctx, cfg.Admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	filters, err := store.Filters().FindAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load filters: %w", err)
	}
	if len(filters) == 0 {
		err := store.Transaction(ctx, func(tx repository.Store) error {
			for _, label := range defaultFilters {
				if err := tx.Filters().Save(ctx, &models.ProductFilter{Label: label}); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to create default filters: %w", err)
		}
		logrus.WithField("count", len(defaultFilters)).Info("Default product filters created")
	}

	logrus.Info("Initial data seeding completed")
	return nil
}

var defaultFilters = []string{"New Arrival", "On Sale", "Best Seller"}
