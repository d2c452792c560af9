package db

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open opens (creating if necessary) the SQLite database at path and
// migrates the token table. The returned handle is safe for concurrent use.
func Open(path string) (*gorm.DB, error) {
	if err := createDBDirectory(path); err != nil {
		return nil, err
	}

	database, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to open database")
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := database.AutoMigrate(&Token{}); err != nil {
		log.Error().Err(err).Msg("Failed to auto-migrate database")
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	configureLogger(database)

	log.Info().Str("path", path).Msg("Database initialized successfully")
	return database, nil
}

// createDBDirectory checks if the database directory exists and creates it if it doesn't.
func createDBDirectory(path string) error {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error().Err(err).Msg("Failed to create database directory")
			return err
		}
	}
	return nil
}

// configureLogger silences GORM's own logger unless debug logging is enabled.
func configureLogger(database *gorm.DB) {
	if zerolog.GlobalLevel() == zerolog.Disabled {
		database.Logger = database.Logger.LogMode(0) // Silent mode
	} else {
		database.Logger = database.Logger.LogMode(4) // Debug mode
	}
}

// Close closes the underlying database connection.
func Close(database *gorm.DB) error {
	sqlDB, err := database.DB()
	if err != nil {
		log.Error().Err(err).Msg("Failed to get raw database connection")
		return err
	}
	return sqlDB.Close()
}
