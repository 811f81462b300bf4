package db

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"datafood/internal/schema"
)

// AttachParquet exposes dir/<table>.parquet as a view named after each table
// of the sales schema, so analytics queries run unchanged over parquet files.
func AttachParquet(ctx context.Context, db *sql.DB, dir string) error {
	for _, t := range schema.Tables() {
		path := filepath.Join(dir, string(t)+".parquet")
		stmt := fmt.Sprintf("CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet(%s)", t, quoteLiteral(path))
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("attach %s: %w", path, err)
		}
	}
	return nil
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
