package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"props-bible/core/utils"

	"github.com/pressly/goose/v3"
)

//go:embed migrations_pg/*.sql migrations_sqlite/*.sql
var gooseMigrationsFS embed.FS

const gooseTable = "goose_db_version"

func ApplyMigrations(ctx context.Context, db *sql.DB, logger *utils.Logger) error {
	if db == nil {
		return fmt.Errorf("nil db")
	}
	isPG, err := isPostgresDB(ctx, db)
	if err != nil {
		return err
	}
	dialect, dir := migrationTarget(isPG)
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	goose.SetBaseFS(gooseMigrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := enforceVersionedSchema(ctx, db, isPG); err != nil {
		return err
	}
	if logger != nil {
		logger.Printf("applying goose migrations (%s)", dialect)
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return err
	}
	if logger != nil {
		logger.Printf("goose migrations applied")
	}
	return nil
}

func migrationTarget(isPG bool) (string, string) {
	if isPG {
		return "postgres", "migrations_pg"
	}
	return "sqlite3", "migrations_sqlite"
}

// A database with user tables but no goose table was not created by us; refuse to touch it.
func enforceVersionedSchema(ctx context.Context, db *sql.DB, isPG bool) error {
	hasGoose, err := tableExists(ctx, db, isPG, gooseTable)
	if err != nil {
		return err
	}
	if hasGoose {
		return nil
	}
	n, err := countUserTables(ctx, db, isPG)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("database has unversioned tables: reset DB and run fresh migrations")
	}
	return nil
}

func countUserTables(ctx context.Context, db *sql.DB, isPG bool) (int, error) {
	var n int
	if isPG {
		err := db.QueryRowContext(ctx, `
			SELECT COUNT(1)
			FROM information_schema.tables
			WHERE table_schema='public'
				AND table_type='BASE TABLE'
				AND table_name <> ?
		`, gooseTable).Scan(&n)
		return n, err
	}
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM sqlite_master
		WHERE type='table' AND name NOT LIKE 'sqlite_%' AND name <> ?
	`, gooseTable).Scan(&n)
	return n, err
}

func tableExists(ctx context.Context, db *sql.DB, isPG bool, name string) (bool, error) {
	var n int
	if isPG {
		if err := db.QueryRowContext(ctx, `
			SELECT COUNT(1)
			FROM information_schema.tables
			WHERE table_schema='public' AND table_name=?
		`, name).Scan(&n); err != nil {
			return false, err
		}
		return n > 0, nil
	}
	if err := db.QueryRowContext(ctx, `SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func isPostgresDB(ctx context.Context, db *sql.DB) (bool, error) {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return false, err
	}
	var version string
	if err := db.QueryRowContext(ctx, "SELECT version()").Scan(&version); err != nil {
		return false, nil
	}
	return true, nil
}
