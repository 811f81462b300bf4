// Package db opens the sales database on any supported engine, applies the
// schema migrations and loads demo data.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	// Drivers for every supported engine.
	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Engine names a database backend.
type Engine string

const (
	EnginePostgres Engine = "postgres"
	EngineMySQL    Engine = "mysql"
	EngineSQLite   Engine = "sqlite"
	EngineDuckDB   Engine = "duckdb"
)

// ParseEngine accepts engine names and driver aliases.
func ParseEngine(s string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgres", "postgresql", "pg":
		return EnginePostgres, nil
	case "mysql":
		return EngineMySQL, nil
	case "sqlite", "sqlite3", "":
		return EngineSQLite, nil
	case "duckdb":
		return EngineDuckDB, nil
	}
	return "", fmt.Errorf("unsupported database engine %q", s)
}

// DriverName returns the database/sql driver registered for e.
func (e Engine) DriverName() string {
	switch e {
	case EngineSQLite:
		return "sqlite3"
	default:
		return string(e)
	}
}

// InferEngine guesses the engine from a DSN. URL-style postgres DSNs and
// mysql:// prefixes are recognized; anything else is treated as a SQLite
// path unless it ends in .duckdb.
func InferEngine(dsn string) Engine {
	lower := strings.ToLower(dsn)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return EnginePostgres
	case strings.HasPrefix(lower, "mysql://"):
		return EngineMySQL
	case strings.HasSuffix(lower, ".duckdb"), strings.HasPrefix(lower, "duckdb://"):
		return EngineDuckDB
	}
	return EngineSQLite
}

// PoolConfig sizes the connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultPoolConfig is five steady connections plus ten overflow.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{MaxOpenConns: 15, MaxIdleConns: 5, ConnMaxLifetime: 30 * time.Minute}
}

func (p PoolConfig) apply(db *sql.DB) {
	if p.MaxOpenConns > 0 {
		db.SetMaxOpenConns(p.MaxOpenConns)
	}
	if p.MaxIdleConns > 0 {
		db.SetMaxIdleConns(p.MaxIdleConns)
	}
	if p.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(p.ConnMaxLifetime)
	}
}

// DB holds the pools for one database. Write and Read are the same pool
// except on SQLite, where writes are serialized through a single connection.
type DB struct {
	Engine Engine
	Write  *sql.DB
	Read   *sql.DB
}

// Close closes every distinct pool.
func (d *DB) Close() error {
	err := d.Write.Close()
	if d.Read != d.Write {
		err = errors.Join(err, d.Read.Close())
	}
	return err
}

// Open connects to dsn on engine and verifies the connection.
func Open(ctx context.Context, engine Engine, dsn string, pool PoolConfig) (*DB, error) {
	if engine == EngineSQLite {
		writeDB, readDB, err := OpenSQLitePair(dsn, pool.MaxOpenConns)
		if err != nil {
			return nil, err
		}
		return &DB{Engine: engine, Write: writeDB, Read: readDB}, nil
	}

	normalized, err := normalizeDSN(engine, dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(engine.DriverName(), normalized)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", engine, err)
	}
	pool.apply(db)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", engine, err)
	}
	return &DB{Engine: engine, Write: db, Read: db}, nil
}

// normalizeDSN adapts dsn to what the engine's driver expects.
func normalizeDSN(engine Engine, dsn string) (string, error) {
	switch engine {
	case EngineMySQL:
		return mysqlDSN(dsn)
	case EngineDuckDB:
		return strings.TrimPrefix(dsn, "duckdb://"), nil
	}
	return dsn, nil
}

// mysqlDSN turns on DATETIME parsing in UTC so timestamps scan into
// time.Time like the other engines.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(strings.TrimPrefix(dsn, "mysql://"))
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}
