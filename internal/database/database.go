// Package database provides a persistent, on-disk cache of catalog
// records backed by SQLite. Bulk jobs use it to avoid re-fetching
// records across runs.
package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/internetarchive/olclient/internal/logger"
)

// Database wraps the GORM database connection
type Database struct {
	db     *gorm.DB
	logger *logger.Logger
}

// NewDatabase opens (or creates) the catalog cache at dbPath and runs
// schema migrations.
func NewDatabase(dbPath string, log *logger.Logger) (*Database, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// SQLite only supports one writer at a time
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	database := &Database{
		db:     db,
		logger: log,
	}

	if err := database.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if log != nil {
		log.Info("Catalog cache opened", map[string]interface{}{
			"path": dbPath,
		})
	}

	return database, nil
}

// migrate runs database migrations
func (d *Database) migrate() error {
	if err := d.db.AutoMigrate(&CachedRecord{}); err != nil {
		return fmt.Errorf("failed to auto-migrate: %w", err)
	}
	return nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// GetDB returns the underlying GORM database instance
func (d *Database) GetDB() *gorm.DB {
	return d.db
}
