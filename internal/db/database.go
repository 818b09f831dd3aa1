// Package db opens the project database and runs migrations.
package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ideaforge/internal/logging"
	"ideaforge/internal/models"
)

// Database wraps the GORM instance.
type Database struct {
	DB *gorm.DB
}

// New opens the database. A postgres:// URL selects Postgres; anything
// else is treated as a sqlite path, which keeps local development and
// tests free of external services.
func New(databaseURL string) (*Database, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var (
		db  *gorm.DB
		err error
	)
	if isPostgres(databaseURL) {
		db, err = gorm.Open(postgres.Open(databaseURL), gormConfig)
	} else {
		path := databaseURL
		if path == "" {
			path = "ideaforge.db"
		}
		db, err = gorm.Open(sqlite.Open(path), gormConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	database := &Database{DB: db}
	if err := database.Migrate(); err != nil {
		return nil, err
	}

	logging.L().Info("database connected", zap.Bool("postgres", isPostgres(databaseURL)))
	return database, nil
}

func isPostgres(url string) bool {
	return strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://")
}

// Migrate runs schema migrations.
func (d *Database) Migrate() error {
	if err := d.DB.AutoMigrate(&models.Project{}); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// Health checks database connectivity.
func (d *Database) Health() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Close closes the connection.
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
