package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// SQLite DSN parameters applied to every pool.
const (
	defaultBusyTimeout = "5000" // 5 seconds
	defaultSynchronous = "NORMAL"
	defaultJournalMode = "WAL"
)

// OpenSQLite opens a *sql.DB pool for the SQLite file at path.
//
// mode controls write-safety and pool sizing:
//   - "write": one connection, _txlock=immediate
//   - "read":  maxOpen connections (0 means 4)
//
// Both modes use WAL, busy_timeout=5000ms, synchronous=NORMAL, foreign keys
// and UTC timestamps.
func OpenSQLite(path string, mode string, maxOpen int) (*sql.DB, error) {
	if mode != "read" && mode != "write" {
		return nil, fmt.Errorf("invalid SQLite mode %q: must be \"read\" or \"write\"", mode)
	}

	db, err := sql.Open("sqlite3", buildSQLiteDSN(path, mode))
	if err != nil {
		return nil, fmt.Errorf("open sqlite (%s): %w", mode, err)
	}

	if mode == "write" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		if maxOpen <= 0 {
			maxOpen = 4
		}
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxOpen)
	}
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite (%s): %w", mode, err)
	}
	return db, nil
}

// OpenSQLitePair opens a single-connection write pool and a read pool over
// the same file. Migrations and seeding go through writeDB; analytics and
// option queries go through readDB.
func OpenSQLitePair(path string, readMaxOpen int) (writeDB, readDB *sql.DB, err error) {
	writeDB, err = OpenSQLite(path, "write", 0)
	if err != nil {
		return nil, nil, err
	}
	readDB, err = OpenSQLite(path, "read", readMaxOpen)
	if err != nil {
		_ = writeDB.Close()
		return nil, nil, err
	}
	return writeDB, readDB, nil
}

// buildSQLiteDSN appends the hardening parameters to path, keeping any
// parameters the caller already supplied.
func buildSQLiteDSN(path string, mode string) string {
	params := url.Values{}
	params.Set("_journal_mode", defaultJournalMode)
	params.Set("_busy_timeout", defaultBusyTimeout)
	params.Set("_synchronous", defaultSynchronous)
	params.Set("_foreign_keys", "on")
	params.Set("_loc", "UTC")
	if mode == "write" {
		params.Set("_txlock", "immediate")
	}

	base, query, found := strings.Cut(path, "?")
	if found {
		if existing, err := url.ParseQuery(query); err == nil {
			for k, v := range existing {
				params[k] = v
			}
		}
	}
	return base + "?" + params.Encode()
}
