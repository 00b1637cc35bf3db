// Package db persists the tree registry and the hash-chained note event
// stream in Postgres. The engine's internal nodes are never stored here;
// the row per tree mirrors only what indexers and operators need.
package db

import (
	"errors"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var errDBUnavailable = errors.New("database unavailable")

func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
}

func AutoMigrate(conn *gorm.DB) error {
	if conn == nil {
		return errDBUnavailable
	}
	return conn.AutoMigrate(&TreeModel{}, &NoteEventModel{})
}
