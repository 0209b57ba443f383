package infra

import (
	"errors"
	"fmt"
	"strings"

	"blendcaja/internal/model"
	"blendcaja/migrations"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqlitePrefix = "sqlite://"

// NewDatabase establishes a GORM connection. A DATABASE_URL of the form
// sqlite://<dsn> opens an embedded SQLite store (local demos and tests);
// anything else is handed to the pgx-backed postgres driver.
//
// TranslateError is on so unique violations surface as gorm.ErrDuplicatedKey.
func NewDatabase(dsn string) (*gorm.DB, error) {
	if strings.HasPrefix(dsn, sqlitePrefix) {
		return NewSQLiteDatabase(strings.TrimPrefix(dsn, sqlitePrefix))
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	return db, nil
}

// IsSQLite reports whether db runs on the embedded SQLite dialect.
func IsSQLite(db *gorm.DB) bool {
	return db.Dialector.Name() == "sqlite"
}

// RunMigrations brings the schema up to date. PostgreSQL is migrated
// exclusively through the versioned SQL files in migrations/; SQLite, which
// cannot run them verbatim, uses AutoMigrate plus applySchemaPatches.
func RunMigrations(db *gorm.DB) error {
	if IsSQLite(db) {
		return autoMigrate(db)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("migrations: open embedded source: %w", err)
	}
	driver, err := migratepg.WithInstance(sqlDB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("migrations: postgres driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrations: init: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrations: up: %w", err)
	}
	version, dirty, _ := m.Version()
	log.Info().Uint("version", version).Bool("dirty", dirty).Msg("migrations: schema up to date")
	return nil
}

func autoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.PaymentMethod{},
		&model.CashSession{},
		&model.CashMovement{},
		&model.PendingSale{},
		&model.PendingSaleItem{},
		&model.Usuario{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL statements that GORM AutoMigrate cannot
// express (partial indexes). The statements are valid on both dialects.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		`DROP INDEX IF EXISTS uq_cash_sessions_register_active`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_cash_sessions_company_register_active
		    ON cash_sessions (company_id, register_id) WHERE state <> 'CLOSED'`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
