package db

import "embed"

// EmbedMigrations holds the goose migrations of the sales schema. The DDL
// sticks to types every supported engine understands.
//
//go:embed migrations/*.sql
var EmbedMigrations embed.FS
