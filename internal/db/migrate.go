package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"

	"github.com/pressly/goose/v3"
)

// gooseDialect maps an engine to goose's dialect name. DuckDB has none.
func gooseDialect(e Engine) (string, bool) {
	switch e {
	case EnginePostgres:
		return "postgres", true
	case EngineMySQL:
		return "mysql", true
	case EngineSQLite:
		return "sqlite3", true
	}
	return "", false
}

// RunMigrations brings the sales schema up to date.
//
// Goose tracks versions on Postgres, MySQL and SQLite. DuckDB databases are
// either parquet-backed views or throwaway in-memory stores, so the Up
// sections are applied directly when the sales table is missing.
func RunMigrations(ctx context.Context, db *sql.DB, engine Engine) error {
	dialect, ok := gooseDialect(engine)
	if !ok {
		return applyUpSections(ctx, db)
	}

	goose.SetBaseFS(EmbedMigrations)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("goose set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

func applyUpSections(ctx context.Context, db *sql.DB) error {
	exists, err := tableExists(ctx, db, "sales")
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	files, err := fs.Glob(EmbedMigrations, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	for _, name := range files {
		raw, err := fs.ReadFile(EmbedMigrations, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		for _, stmt := range upStatements(string(raw)) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("apply %s: %w", name, err)
			}
		}
	}
	return nil
}

// upStatements returns the statements between the goose Up and Down
// annotations.
func upStatements(src string) []string {
	_, up, found := strings.Cut(src, "-- +goose Up")
	if !found {
		return nil
	}
	up, _, _ = strings.Cut(up, "-- +goose Down")

	var out []string
	for _, stmt := range strings.Split(up, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

func tableExists(ctx context.Context, db *sql.DB, table string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx,
		"SELECT count(*) FROM information_schema.tables WHERE table_name = ?", table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", table, err)
	}
	return n > 0, nil
}
