package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyp0633/libnebula/internal/snowflake"
	"github.com/cyp0633/libnebula/recurrence"
	"github.com/cyp0633/libnebula/server"
	authmemory "github.com/cyp0633/libnebula/server/auth/memory"
	"github.com/cyp0633/libnebula/server/schedule"
	"github.com/cyp0633/libnebula/server/storage"
	"github.com/cyp0633/libnebula/server/storage/memory"
	"github.com/cyp0633/libnebula/server/storage/sqlite"
	flag "github.com/spf13/pflag"
)

// flagConfig holds CLI flag values that override the config file.
type flagConfig struct {
	configPath string
	listen     string
	driver     string
	dbPath     string
	seed       string
	logLevel   string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	flags := parseFlags()

	conf, err := Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	flags.apply(conf)
	if err := conf.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", flags.configPath, err)
	}

	logger := newLogger(conf.LogLevel)
	logger.Info("effective config",
		"listen", conf.Listen,
		"prefix", conf.Prefix,
		"storage", conf.Storage.Driver,
		"engine", conf.Engine,
		"users", len(conf.Users),
		"seed_realm", conf.SeedRealm)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ids, err := snowflake.New(conf.Snowflake.Cluster, conf.Snowflake.Worker)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, conf.Storage, ids, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	engineConf, err := conf.EngineConfig()
	if err != nil {
		return err
	}
	engine := recurrence.NewEngineWithConfig(engineConf, recurrence.WithLogger(logger))
	defer engine.Close()

	svc := schedule.New(store, schedule.WithEngine(engine), schedule.WithLogger(logger))
	defer svc.Close()

	if conf.SeedRealm != "" {
		if err := seedRealm(ctx, svc, conf.SeedRealm, time.Now()); err != nil {
			return err
		}
		logger.Info("seeded realm", "realm", conf.SeedRealm)
	}

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithTimeout(conf.RequestTimeout),
	}
	if len(conf.Users) > 0 {
		users := authmemory.New(authmemory.WithLogger(logger))
		for _, u := range conf.Users {
			if err := users.AddUser(u.Username, u.Password); err != nil {
				return err
			}
			if err := users.Grant(u.Username, u.Realms...); err != nil {
				return err
			}
		}
		opts = append(opts, server.WithAuthenticator(users, "Nebula Example Server"))
	}

	srv, err := server.New(svc, conf.Prefix, opts...)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle(srv.Prefix(), srv)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	httpServer := &http.Server{
		Addr:              conf.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting schedule server",
			"addr", conf.Listen,
			"endpoint", "http://"+conf.Listen+srv.Prefix())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("signal received, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("schedule server exiting")
	return nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVarP(&cfg.configPath, "config", "c", "nebula.yaml", "Path to config file (created with defaults if missing)")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.driver, "storage", "", "Storage driver: memory or sqlite (overrides config if set)")
	flag.StringVar(&cfg.dbPath, "db", "", "SQLite database path (overrides config if set)")
	flag.StringVar(&cfg.seed, "seed", "", "Realm to fill with sample data (overrides config if set)")
	flag.StringVar(&cfg.logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides config if set)")

	flag.Parse()

	return cfg
}

func (f flagConfig) apply(conf *Config) {
	if f.listen != "" {
		conf.Listen = f.listen
	}
	if f.driver != "" {
		conf.Storage.Driver = f.driver
	}
	if f.dbPath != "" {
		conf.Storage.Path = f.dbPath
	}
	if f.seed != "" {
		conf.SeedRealm = f.seed
	}
	if f.logLevel != "" {
		conf.LogLevel = f.logLevel
	}
	conf.Normalize()
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// openStore builds the configured store with snowflake IDs. The returned
// function releases it.
func openStore(ctx context.Context, conf StorageConfig, ids *snowflake.Generator, logger *slog.Logger) (storage.Storage, func(), error) {
	switch conf.Driver {
	case driverSQLite:
		store, err := sqlite.Open(ctx,
			sqlite.Config{Path: conf.Path, BusyTimeout: conf.BusyTimeout},
			sqlite.WithIDGenerator(ids.NextString),
			sqlite.WithLogger(logger))
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Error("failed to close store", "error", err)
			}
		}, nil
	default:
		store := memory.New(
			memory.WithIDGenerator(ids.NextString),
			memory.WithLogger(logger))
		return store, func() {}, nil
	}
}
