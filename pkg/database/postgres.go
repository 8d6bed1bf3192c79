package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/edusupervise/supervision-engine/pkg/retry"
)

// Pool defaults applied when the corresponding Config field is zero.
const (
	defaultMaxConns        = 25
	defaultMaxConnLifetime = time.Hour
	defaultMaxConnIdleTime = 30 * time.Minute
	defaultTimeZone        = "Asia/Bangkok"
	applicationName        = "supervision-engine"
)

// DB is the application's PostgreSQL pool.
type DB struct {
	*pgxpool.Pool
}

// Config holds database connection configuration.
type Config struct {
	URL             string
	MaxConnections  int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	// TimeZone is the session time zone. Visit dates are calendar dates in the
	// education area's local time.
	TimeZone string

	// ConnectRetry controls how long startup waits for the server to accept
	// connections. nil uses retry.DefaultConfig.
	ConnectRetry *retry.Config
}

func (c *Config) poolConfig() (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(c.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pc.MaxConns = orDefault(c.MaxConnections, defaultMaxConns)
	pc.MaxConnLifetime = orDefault(c.MaxConnLifetime, defaultMaxConnLifetime)
	pc.MaxConnIdleTime = orDefault(c.MaxConnIdleTime, defaultMaxConnIdleTime)

	params := pc.ConnConfig.RuntimeParams
	params["timezone"] = orDefault(c.TimeZone, defaultTimeZone)
	if params["application_name"] == "" {
		params["application_name"] = applicationName
	}
	return pc, nil
}

func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

// NewConnection opens the pool and waits until the server answers a ping.
// Transient dial failures are retried so the engine can start alongside its
// database container.
func NewConnection(ctx context.Context, cfg *Config, logger *zap.Logger) (*DB, error) {
	pc, err := cfg.poolConfig()
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	err = retry.Do(ctx, cfg.ConnectRetry, func(attempt int) error {
		err := pool.Ping(ctx)
		if err != nil && attempt > 0 {
			logger.Warn("Database not ready", zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Debug("Database pool ready",
		zap.Int32("max_conns", pc.MaxConns),
		zap.String("timezone", pc.ConnConfig.RuntimeParams["timezone"]))
	return &DB{Pool: pool}, nil
}

// Close closes the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}
