package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

// OpenTestSQLite opens a hardened SQLite pool pair in t.TempDir(), runs the
// migrations and, when seed is true, loads the demo data set.
func OpenTestSQLite(t *testing.T, seed bool) *DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.sqlite")
	d, err := Open(context.Background(), EngineSQLite, path, PoolConfig{MaxOpenConns: 4})
	if err != nil {
		t.Fatalf("open test sqlite: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	prepareTestDB(t, d, seed)
	return d
}

// OpenTestDuckDB opens an in-memory DuckDB database with the sales schema.
func OpenTestDuckDB(t *testing.T, seed bool) *DB {
	t.Helper()

	d, err := Open(context.Background(), EngineDuckDB, "", PoolConfig{})
	if err != nil {
		t.Fatalf("open test duckdb: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	prepareTestDB(t, d, seed)
	return d
}

func prepareTestDB(t *testing.T, d *DB, seed bool) {
	t.Helper()
	ctx := context.Background()
	if err := RunMigrations(ctx, d.Write, d.Engine); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	if !seed {
		return
	}
	if _, err := SeedDemoData(ctx, d.Write, d.Engine); err != nil {
		t.Fatalf("seed demo data: %v", err)
	}
}

// MustExec runs statements on db and fails the test on the first error.
func MustExec(t *testing.T, db *sql.DB, stmts ...string) {
	t.Helper()
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}
}
