package database

import (
	"fmt"
	"log/slog"

	"chronicle/internal/config"
	"chronicle/internal/middleware"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var readDB *gorm.DB

// ConnectReadReplica opens a connection to the read replica when one is
// configured. Missing replica config is not an error; reads fall back to
// the primary.
func ConnectReadReplica(cfg *config.Config) error {
	if cfg.DBReadHost == "" {
		return nil
	}

	dsn := buildDSN(cfg.DBReadHost, cfg.DBReadPort, cfg.DBReadUser, cfg.DBReadPassword, cfg.DBName, cfg.DBSSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: newGormLogger()})
	if err != nil {
		return fmt.Errorf("failed to connect to read replica: %w", err)
	}

	tunePool(db)

	readDB = db
	middleware.Logger.Info("Read replica connected", slog.String("host", cfg.DBReadHost))
	return nil
}

// GetReadDB returns the read replica connection, or nil when none is configured.
func GetReadDB() *gorm.DB {
	return readDB
}
