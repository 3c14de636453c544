package db

import (
	"fmt"
	"time"

	"github.com/go-gormigrate/gormigrate/v2"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"refeitorio-client/config"
)

// Init opens the mirror database and runs migrations.
func Init(cfg *config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}

	log.Info("running database migrations", zap.String("driver", cfg.Driver))
	if err := Migrate(db); err != nil {
		return nil, err
	}

	if cfg.EnableTimescale && cfg.Driver == "postgres" {
		log.Info("TimescaleDB is enabled, applying TimescaleDB-specific DDL")
		if err := applyTimescaleDDL(db); err != nil {
			log.Warn("failed to apply some TimescaleDB DDL, continuing without them", zap.Error(err))
		}
	}

	log.Info("database initialization complete")
	return db, nil
}

// Migrate applies pending mirror migrations.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, Migrations())
	if err := m.Migrate(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func applyTimescaleDDL(db *gorm.DB) error {
	ddls := []string{
		"CREATE EXTENSION IF NOT EXISTS timescaledb;",
		"CREATE EXTENSION IF NOT EXISTS btree_gist;",

		// position_histories becomes a hypertable keyed on observed_at.
		"SELECT create_hypertable('position_histories', 'observed_at', if_not_exists => TRUE, migrate_data => TRUE);",

		"ALTER TABLE position_histories " +
			"ADD CONSTRAINT position_histories_period_valid CHECK (period_start <= period_end);",

		// Lower bound closed, upper bound open.
		"CREATE INDEX IF NOT EXISTS idx_position_history_period_expr ON position_histories " +
			"USING GIST (slot_id, tstzrange(period_start, period_end, '[)'));",

		"CREATE INDEX IF NOT EXISTS idx_position_history_slot_id_observed_at ON position_histories (slot_id, observed_at DESC);",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}
