// Package dsn provides Data Source Name construction utilities for database connections.
package dsn

import (
	"fmt"

	"github.com/comunidade-central/accessctl/internal/config"
)

// Create builds the Data Source Name for the configured gorm engine.
func Create(dbCfg *config.Config) string {
	switch dbCfg.DB.GormEngine {
	case config.EnginePostgres:
		return createPostgres(dbCfg)
	case config.EngineSQLite:
		return createSQLite(dbCfg)
	default:
		return createMySQL(dbCfg)
	}
}

// URI builds a URL style connection string, as expected by the fiber session storages.
func URI(dbCfg *config.Config) string {
	switch dbCfg.DB.GormEngine {
	case config.EnginePostgres:
		out := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
			dbCfg.DB.User,
			dbCfg.DB.Password,
			dbCfg.DB.Host,
			dbCfg.DB.Port,
			dbCfg.DB.Name,
		)

		if dbCfg.DB.Extras != "" {
			out += "?" + dbCfg.DB.Extras
		}

		return out
	default:
		return createMySQL(dbCfg)
	}
}

func createMySQL(dbCfg *config.Config) string {
	out := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		dbCfg.DB.User,
		dbCfg.DB.Password,
		dbCfg.DB.Host,
		dbCfg.DB.Port,
		dbCfg.DB.Name,
		dbCfg.DB.Extras,
	)

	return out
}

func createPostgres(dbCfg *config.Config) string {
	out := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		dbCfg.DB.Host,
		dbCfg.DB.Port,
		dbCfg.DB.User,
		dbCfg.DB.Password,
		dbCfg.DB.Name,
	)

	if dbCfg.DB.Extras != "" {
		out += " " + dbCfg.DB.Extras
	}

	return out
}

func createSQLite(dbCfg *config.Config) string {
	if dbCfg.DB.Path == "" {
		return "file::memory:?cache=shared"
	}

	if dbCfg.DB.Extras == "" {
		return dbCfg.DB.Path
	}

	return dbCfg.DB.Path + "?" + dbCfg.DB.Extras
}
