// Command migrate applies, inspects and reverts the database schema.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"chirp/internal/config"
	"chirp/internal/database"

	"gorm.io/gorm"
)

var errUsage = errors.New("usage: migrate <up|auto|status|down> [version]")

func main() {
	flag.Parse()
	if err := run(flag.Args()); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	if len(args) < 1 {
		return errUsage
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer func() { _ = sqlDB.Close() }()
	}

	return execute(context.Background(), db, cfg, args, os.Stdout)
}

func execute(ctx context.Context, db *gorm.DB, cfg *config.Config, args []string, out io.Writer) error {
	if len(args) < 1 {
		return errUsage
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "up":
		if cfg.DBDriver != "postgres" {
			return fmt.Errorf("sql migrations require the postgres driver; use auto for %s", cfg.DBDriver)
		}
		migrations, err := database.Migrations()
		if err != nil {
			return err
		}
		n, err := database.NewMigrator(db, migrations).Up(ctx)
		if err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		_, _ = fmt.Fprintf(out, "applied %d sql migrations\n", n)

	case "auto":
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return fmt.Errorf("auto schema apply failed: %w", err)
		}
		_, _ = fmt.Fprintln(out, "automigrations applied")

	case "status":
		status, err := database.GetSchemaStatus(ctx, db, cfg)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		_, _ = fmt.Fprintf(out, "mode=%s env=%s run_sql=%t run_auto=%t applied=%d pending=%d\n",
			status.Mode, status.Environment, status.WillRunSQL, status.WillRunAutoMigrate,
			len(status.AppliedVersions), len(status.PendingMigrations))
		for _, m := range status.PendingMigrations {
			_, _ = fmt.Fprintf(out, "pending: %s\n", m)
		}

	case "down":
		if len(args) < 2 {
			return errors.New("usage: migrate down <version>")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		migrations, err := database.Migrations()
		if err != nil {
			return err
		}
		if err := database.NewMigrator(db, migrations).Down(ctx, version); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		_, _ = fmt.Fprintf(out, "rolled back migration %06d\n", version)

	default:
		return errUsage
	}
	return nil
}
