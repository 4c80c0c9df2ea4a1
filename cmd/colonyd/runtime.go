package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Jlo00/colonyNetwork/pkg/colony"
	"github.com/Jlo00/colonyNetwork/pkg/config"
	"github.com/Jlo00/colonyNetwork/pkg/ledger"
	"github.com/Jlo00/colonyNetwork/pkg/mining"
	"github.com/Jlo00/colonyNetwork/pkg/observability"

	_ "github.com/lib/pq" // Postgres Driver
	_ "modernc.org/sqlite"
)

// settings reads the effective configuration: flags over COLONY_* env over defaults.
func settings() *config.Config {
	return &config.Config{
		LogLevel:     viper.GetString("log-level"),
		DBDriver:     viper.GetString("db-driver"),
		DatabaseURL:  viper.GetString("database-url"),
		RedisAddr:    viper.GetString("redis-addr"),
		RedisDB:      viper.GetInt("redis-db"),
		OTLPEndpoint: viper.GetString("otlp-endpoint"),
		ProfilePath:  viper.GetString("network-profile"),
	}
}

func loadProfile(cfg *config.Config) (*config.NetworkProfile, error) {
	if cfg.ProfilePath == "" {
		return config.DefaultProfile(), nil
	}
	return config.LoadProfile(cfg.ProfilePath)
}

// openDB opens the journal database and returns the matching store dialect.
func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, ledger.Dialect, error) {
	var dialect ledger.Dialect
	switch cfg.DBDriver {
	case "sqlite":
		dialect = ledger.DialectSQLite
		if err := ensureSQLiteDir(cfg.DatabaseURL); err != nil {
			return nil, "", err
		}
	case "postgres":
		dialect = ledger.DialectPostgres
	default:
		return nil, "", fmt.Errorf("unsupported db driver %q", cfg.DBDriver)
	}

	db, err := sql.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open %s: %w", cfg.DBDriver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("%s ping failed: %w", cfg.DBDriver, err)
	}
	return db, dialect, nil
}

func ensureSQLiteDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create data dir: %w", err)
		}
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (*ledger.SQLStore, func() error, error) {
	db, dialect, err := openDB(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	store := ledger.NewSQLStore(db, dialect)
	if err := store.Init(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return store, db.Close, nil
}

// runtime is a network wired to its configured infrastructure.
type runtime struct {
	net     *colony.Network
	profile *config.NetworkProfile
	closers []func(context.Context) error
}

func (r *runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i](ctx))
	}
	return errors.Join(errs...)
}

func newRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	logger := slog.Default()
	r := &runtime{}

	profile, err := loadProfile(cfg)
	if err != nil {
		return nil, err
	}
	r.profile = profile
	table, err := profile.PolicyTable()
	if err != nil {
		return nil, err
	}

	store, closeDB, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	r.closers = append(r.closers, func(context.Context) error { return closeDB() })
	journal, err := ledger.NewJournal(ctx, store)
	if err != nil {
		_ = r.Close(ctx)
		return nil, err
	}
	logger.InfoContext(ctx, "journal ready", "driver", cfg.DBDriver, "length", journal.Length(), "head", journal.Head())

	var scheduler mining.Scheduler = mining.NewMemoryScheduler()
	if cfg.RedisAddr != "" {
		scheduler = mining.NewRedisScheduler(cfg.RedisAddr, "", cfg.RedisDB, profile.Mining.Stream)
		logger.InfoContext(ctx, "mining signals via redis", "addr", cfg.RedisAddr, "stream", profile.Mining.Stream)
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.Enabled = cfg.TelemetryEnabled()
	obsCfg.OTLPEndpoint = cfg.OTLPEndpoint
	obs, err := observability.New(ctx, obsCfg)
	if err != nil {
		_ = r.Close(ctx)
		return nil, err
	}
	r.closers = append(r.closers, obs.Shutdown)

	r.net = colony.NewNetwork(
		colony.WithJournal(journal),
		colony.WithScheduler(scheduler),
		colony.WithObservability(obs),
		colony.WithLogger(logger),
		colony.WithPolicyTable(table),
		colony.WithFeeInverse(profile.FeeInverse),
	)
	return r, nil
}
