// Package db opens the gorm connection for the configured engine and migrates the schema.
package db

import (
	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/comunidade-central/accessctl/internal/config"
	"github.com/comunidade-central/accessctl/internal/db/dsn"
	"github.com/comunidade-central/accessctl/internal/db/models"
	gormadapter "github.com/comunidade-central/accessctl/internal/logger/adapter/gorm"
)

// Open connects to the configured database.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.DB.GormEngine {
	case config.EngineMySQL:
		dialector = mysql.Open(dsn.Create(cfg))
	case config.EnginePostgres:
		dialector = postgres.Open(dsn.Create(cfg))
	case config.EngineSQLite:
		dialector = sqlite.Open(dsn.Create(cfg))
	default:
		return nil, config.ErrUnknownGormEngine
	}

	level := gormlogger.Warn
	if cfg.DevMode {
		level = gormlogger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormadapter.New(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect %s database", cfg.DB.GormEngine)
	}

	if cfg.DB.GormEngine == config.EngineSQLite {
		// sqlite serialises writers; a single connection avoids SQLITE_BUSY under load
		sqlDB, err := db.DB()
		if err != nil {
			return nil, errors.Wrap(err, "failed to access sql pool")
		}

		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return errors.Wrap(err, "failed to migrate database")
	}

	return nil
}
