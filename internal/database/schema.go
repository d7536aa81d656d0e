package database

import (
	"context"
	"fmt"
	"log/slog"

	"chirp/internal/config"
	"chirp/internal/middleware"

	"gorm.io/gorm"
)

// Schema modes selected by DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaStatus describes what ApplySchema would do against a database.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
}

func isProdLikeEnv(env string) bool {
	switch env {
	case "production", "prod", "staging", "stage":
		return true
	}
	return false
}

func schemaMode(cfg *config.Config) string {
	if cfg.DBSchemaMode == "" {
		return SchemaModeHybrid
	}
	return cfg.DBSchemaMode
}

// schemaPolicy decides which schema steps run. Versioned SQL is written for
// PostgreSQL, so SQLite only ever gets AutoMigrate. AutoMigrate never runs in
// production-like environments unless explicitly allowed.
func schemaPolicy(cfg *config.Config) (runSQL, runAuto bool, err error) {
	mode := schemaMode(cfg)
	prodLike := isProdLikeEnv(cfg.Env)
	sqlite := cfg.DBDriver == "sqlite"

	switch mode {
	case SchemaModeSQL:
		if sqlite {
			return false, false, fmt.Errorf("DB_SCHEMA_MODE=sql requires the postgres driver")
		}
		return true, false, nil
	case SchemaModeAuto:
		if prodLike && !cfg.DBAutoMigrateDestructive {
			return false, false, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		return false, true, nil
	case SchemaModeHybrid:
		if sqlite {
			return false, true, nil
		}
		return true, !prodLike, nil
	default:
		return false, false, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
}

// ApplySchema brings db up to date according to the configured schema mode.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return err
	}

	if runSQL {
		migrations, err := Migrations()
		if err != nil {
			return err
		}
		n, err := NewMigrator(db, migrations).Up(ctx)
		if err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
		middleware.Logger.Info("SQL migrations applied", slog.Int("count", n))
	}

	if runAuto {
		if schemaMode(cfg) == SchemaModeAuto && cfg.DBAutoMigrateDestructive {
			middleware.Logger.Warn("DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true set for DB_SCHEMA_MODE=auto; review schema diffs before deploying")
		}
		if err := AutoMigrate(db.WithContext(ctx)); err != nil {
			return err
		}
		middleware.Logger.Info("Database schema auto-migrated", slog.Int("tables", len(Schema)))
	}
	return nil
}

// GetSchemaStatus reports the schema policy and, when SQL migrations apply,
// which versions are recorded and which are pending.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               schemaMode(cfg),
		Environment:        cfg.Env,
		WillRunSQL:         runSQL,
		WillRunAutoMigrate: runAuto,
	}
	if !runSQL {
		return status, nil
	}

	migrations, err := Migrations()
	if err != nil {
		return nil, err
	}
	m := NewMigrator(db, migrations)
	if status.AppliedVersions, err = m.Applied(ctx); err != nil {
		return nil, err
	}
	if status.PendingMigrations, err = m.Pending(ctx); err != nil {
		return nil, err
	}
	return status, nil
}
