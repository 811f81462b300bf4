// Package main is the entry point for the analytics API server. It opens the
// sales database, prepares the schema and serves the query and options
// endpoints until SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"datafood/internal/api"
	"datafood/internal/compiler"
	"datafood/internal/config"
	"datafood/internal/db"
	"datafood/internal/db/repository"
	"datafood/internal/middleware"
	"datafood/internal/service/analytics"
	"datafood/internal/service/options"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn("config", "warning", w)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	engine, err := resolveEngine(cfg)
	if err != nil {
		return err
	}
	database, err := openDatabase(ctx, cfg, engine, logger)
	if err != nil {
		return err
	}
	defer database.Close() //nolint:errcheck

	dialect, err := compiler.GetDialect(string(engine))
	if err != nil {
		return err
	}

	analyticsSvc := analytics.NewService(
		repository.NewAnalyticsRepo(database.Read), dialect, logger.With("component", "analytics"))
	analyticsSvc.SetQueryTimeout(cfg.QueryTimeout)
	optionsSvc := options.NewService(
		repository.NewOptionsRepo(database.Read), logger.With("component", "options"))

	handler := api.NewHandler(analyticsSvc, optionsSvc, logger.With("component", "api"))
	router := api.NewRouter(ctx, handler, api.RouterConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimit: middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
		Logger: logger.With("component", "http"),
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.QueryTimeout + 15*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("HTTP API listening", "addr", cfg.ListenAddr, "engine", engine)
	logger.Info("try: curl -X POST http://" + curlHostForListenAddr(cfg.ListenAddr) + "/api/query " +
		`-d '{"metrics":[{"field":"total_amount","function":"sum"}],"dimensions":["channel_name"]}'`)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// resolveEngine honours DB_ENGINE and otherwise infers the engine from the
// DSN.
func resolveEngine(cfg *config.Config) (db.Engine, error) {
	if cfg.DBEngine != "" {
		return db.ParseEngine(cfg.DBEngine)
	}
	return db.InferEngine(cfg.DatabaseURL), nil
}

// openDatabase connects and prepares the sales schema: parquet views for
// DuckDB with a parquet directory, migrations plus optional demo data
// otherwise.
func openDatabase(ctx context.Context, cfg *config.Config, engine db.Engine, logger *slog.Logger) (*db.DB, error) {
	database, err := db.Open(ctx, engine, cfg.DatabaseURL, db.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", engine, err)
	}

	if engine == db.EngineDuckDB && cfg.DuckDBParquetDir != "" {
		if err := db.AttachParquet(ctx, database.Write, cfg.DuckDBParquetDir); err != nil {
			_ = database.Close()
			return nil, err
		}
		logger.Info("parquet files attached", "dir", cfg.DuckDBParquetDir)
		return database, nil
	}

	if err := db.RunMigrations(ctx, database.Write, engine); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	if cfg.SeedDemoData {
		seeded, err := db.SeedDemoData(ctx, database.Write, engine)
		if err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("seed demo data: %w", err)
		}
		if seeded {
			logger.Info("demo data loaded", "sales", db.DemoSales)
		}
	}
	return database, nil
}

// curlHostForListenAddr turns a listen address into a host:port usable in
// an example curl command.
func curlHostForListenAddr(listenAddr string) string {
	addr := strings.TrimSpace(listenAddr)
	if addr == "" {
		return "localhost:8080"
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}
