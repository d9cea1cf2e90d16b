package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Sanyam33/GSC-Verifier/internal/config"
	"github.com/Sanyam33/GSC-Verifier/internal/db/models"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB opens the configured database, applies the schema and tunes the pool.
// Postgres schema changes go through versioned migrations; SQLite (local runs
// and tests) is auto-migrated from the models.
func InitDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	driver, err := cfg.Driver()
	if err != nil {
		return nil, err
	}

	database, err := open(cfg, driver)
	if err != nil {
		return nil, err
	}

	switch driver {
	case config.DriverPostgres:
		if err := RunMigrations(cfg); err != nil {
			return nil, err
		}
	case config.DriverSQLite:
		if err := database.AutoMigrate(&models.GSCVerification{}); err != nil {
			return nil, fmt.Errorf("failed to migrate sqlite schema: %w", err)
		}
	}

	log.Printf("📦 Database ready (driver: %s)", driver)
	return database, nil
}

func open(cfg config.DatabaseConfig, driver string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		dialector = sqlite.Open(cfg.SQLitePath())
	}

	database, err := gorm.Open(dialector, &gorm.Config{
		// Parameterized so bound token values never reach the log.
		Logger: logger.New(log.Default(), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
		}),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return database, nil
}

// Ping checks that the database is reachable.
func Ping(ctx context.Context, database *gorm.DB) error {
	sqlDB, err := database.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
