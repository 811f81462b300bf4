// Package config handles application configuration and environment loading.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Config holds the configuration of the analytics API server.
type Config struct {
	DatabaseURL string // DSN or SQLite/DuckDB file path (default "datafood.sqlite")
	DBEngine    string // postgres, mysql, sqlite or duckdb; inferred from DatabaseURL when empty
	ListenAddr  string // HTTP listen address (default ":8080")
	LogLevel    string // debug, info, warn, error (default "info")
	LogFormat   string // json or text (default "json")
	Env         string // "development" (default) or "production"

	// Connection pool. The defaults give five steady connections plus ten
	// overflow.
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// QueryTimeout bounds each analytics statement (default 30s, 0 disables).
	QueryTimeout time.Duration

	// SeedDemoData loads the demo data set into an empty database at startup.
	SeedDemoData bool

	// DuckDBParquetDir, when set with the duckdb engine, exposes
	// <dir>/<table>.parquet as the sales schema instead of migrating.
	DuckDBParquetDir string

	// Rate limiting
	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	// CORS
	CORSAllowedOrigins []string // allowed origins (default ["*"])

	// ConfigFile is the file the settings were read from, if any.
	ConfigFile string

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_url", "datafood.sqlite")
	v.SetDefault("db_engine", "")
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("env", "development")
	v.SetDefault("db_max_open_conns", 15)
	v.SetDefault("db_max_idle_conns", 5)
	v.SetDefault("db_conn_max_lifetime", "30m")
	v.SetDefault("query_timeout", "30s")
	v.SetDefault("seed_demo_data", true)
	v.SetDefault("duckdb_parquet_dir", "")
	v.SetDefault("rate_limit_rps", 100)
	v.SetDefault("rate_limit_burst", 200)
	v.SetDefault("cors_allowed_origins", "*")
}

// Load reads configuration from environment variables, optionally layered
// over a YAML/JSON/TOML file. Environment variables always win. When
// configFile is empty, ./datafood.{yaml,json,toml} is used if present.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("datafood")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	cfg := &Config{
		DatabaseURL:       strings.TrimSpace(v.GetString("database_url")),
		DBEngine:          strings.ToLower(strings.TrimSpace(v.GetString("db_engine"))),
		ListenAddr:        v.GetString("listen_addr"),
		LogLevel:          v.GetString("log_level"),
		LogFormat:         strings.ToLower(v.GetString("log_format")),
		Env:               v.GetString("env"),
		DBMaxOpenConns:    v.GetInt("db_max_open_conns"),
		DBMaxIdleConns:    v.GetInt("db_max_idle_conns"),
		DBConnMaxLifetime: v.GetDuration("db_conn_max_lifetime"),
		QueryTimeout:      v.GetDuration("query_timeout"),
		SeedDemoData:      v.GetBool("seed_demo_data"),
		DuckDBParquetDir:  v.GetString("duckdb_parquet_dir"),
		RateLimitRPS:      v.GetFloat64("rate_limit_rps"),
		RateLimitBurst:    v.GetInt("rate_limit_burst"),
		ConfigFile:        v.ConfigFileUsed(),
	}

	origins, err := stringList(v.Get("cors_allowed_origins"))
	if err != nil {
		return nil, fmt.Errorf("CORS_ALLOWED_ORIGINS: %w", err)
	}
	cfg.CORSAllowedOrigins = origins

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// finish applies fallbacks and rejects inconsistent settings.
func (c *Config) finish() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	switch c.DBEngine {
	case "", "postgres", "postgresql", "pg", "mysql", "sqlite", "sqlite3", "duckdb":
	default:
		return fmt.Errorf("DB_ENGINE %q is not supported (postgres, mysql, sqlite, duckdb)", c.DBEngine)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("LOG_FORMAT %q must be json or text", c.LogFormat)
	}
	if c.QueryTimeout < 0 {
		return fmt.Errorf("QUERY_TIMEOUT must not be negative")
	}
	if c.DBMaxOpenConns <= 0 {
		c.DBMaxOpenConns = 15
	}
	if c.DBMaxIdleConns < 0 || c.DBMaxIdleConns > c.DBMaxOpenConns {
		c.DBMaxIdleConns = c.DBMaxOpenConns
	}
	if c.RateLimitRPS <= 0 {
		c.RateLimitRPS = 100
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = 200
	}
	if len(c.CORSAllowedOrigins) == 0 {
		c.CORSAllowedOrigins = []string{"*"}
	}
	if c.DuckDBParquetDir != "" && c.DBEngine != "duckdb" {
		c.Warnings = append(c.Warnings, "DUCKDB_PARQUET_DIR is ignored unless DB_ENGINE=duckdb")
	}

	// Production mode: insecure defaults are fatal errors.
	if c.IsProduction() {
		if len(c.CORSAllowedOrigins) == 1 && c.CORSAllowedOrigins[0] == "*" {
			return fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
		if c.SeedDemoData {
			c.Warnings = append(c.Warnings, "SEED_DEMO_DATA is enabled in production; demo rows are only written to an empty sales table")
		}
	}
	return nil
}

// stringList accepts a comma-separated string or a list from a config file.
func stringList(raw any) ([]string, error) {
	var items []string
	if s, ok := raw.(string); ok {
		items = strings.Split(s, ",")
	} else {
		list, err := cast.ToStringSliceE(raw)
		if err != nil {
			return nil, err
		}
		items = list
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out, nil
}

// LoadDotEnv reads a .env file and sets any variables not already in the
// environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
