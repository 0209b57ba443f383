package infra

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDatabase opens an embedded SQLite store and migrates it.
// SQLite serializes writers, so the pool is pinned to one connection; this
// also keeps shared-cache in-memory databases alive for the process lifetime.
//
// SQLite has no row locks: clause.Locking is dropped by the driver and the
// single connection provides the serialization instead.
func NewSQLiteDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := autoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
