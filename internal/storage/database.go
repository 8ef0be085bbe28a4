// Package storage persists users, namespaces and imported projects behind a
// small Database type backed by GORM.
package storage

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gitporter/gitporter/internal/config"
	"github.com/gitporter/gitporter/internal/models"
)

// ErrDuplicate is returned when an insert trips a uniqueness constraint, in
// particular the (creator_id, import_type, import_source) index that closes
// the duplicate-import race.
var ErrDuplicate = errors.New("record already exists")

type Database struct {
	db *gorm.DB
}

// New opens the configured database and tunes its connection pool.
func New(cfg config.DatabaseConfig) (*Database, error) {
	dialer, err := NewDialectDialer(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialer.Dialect(), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := dialer.ConfigureConnection(db); err != nil {
		return nil, err
	}
	return &Database{db: db}, nil
}

// Migrate creates or updates the schema. Safe to run repeatedly.
func (d *Database) Migrate() error {
	if err := d.db.AutoMigrate(
		&models.User{},
		&models.Namespace{},
		&models.Project{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// isDuplicateKey recognizes uniqueness violations across the supported
// dialects. GORM's TranslateError covers the common case; the string checks
// catch drivers that bypass it.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "Violation of UNIQUE KEY")
}
