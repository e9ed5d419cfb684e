// AngelaMos | 2026
// database.go

package core

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/foxmentors/portal/internal/config"
)

const maxConnectInterval = 10 * time.Second

type Database struct {
	DB *sqlx.DB
}

// NewDatabase connects to the store, retrying with exponential backoff
// up to cfg.ConnectAttempts times. A final failure wraps ErrConnection.
func NewDatabase(
	ctx context.Context,
	cfg config.DatabaseConfig,
) (*Database, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}

	var db *sqlx.DB
	connect := func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		conn, connErr := sqlx.ConnectContext(pingCtx, "pgx", dsn)
		if connErr != nil {
			return connErr
		}
		db = conn
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			connectBackOff(cfg.ConnectBackoff),
			uint64(max(cfg.ConnectAttempts-1, 0)), //nolint:gosec // bounded by config validation
		),
		ctx,
	)

	notify := func(err error, next time.Duration) {
		slog.Warn("database connect failed, retrying",
			"error", err,
			"retry_in", next.String(),
		)
	}

	if err := backoff.RetryNotify(connect, policy, notify); err != nil {
		return nil, fmt.Errorf("connect to database: %w: %w", ErrConnection, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(jitteredDuration(cfg.ConnMaxLifetime))
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return &Database{DB: db}, nil
}

func connectBackOff(initial time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if initial > 0 {
		b.InitialInterval = initial
	}
	b.MaxInterval = maxConnectInterval
	b.MaxElapsedTime = 0
	return b
}

func (d *Database) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

func (d *Database) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := d.DB.PingContext(pingCtx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}

func (d *Database) Stats() sql.DBStats {
	return d.DB.Stats()
}

type DBTX interface {
	sqlx.ExtContext
	sqlx.ExecerContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(
		ctx context.Context,
		dest any,
		query string,
		args ...any,
	) error
}

func jitteredDuration(base time.Duration) time.Duration {
	if base < 7 {
		return base
	}
	//nolint:gosec // G404: non-security-sensitive jitter for connection pool
	jitter := time.Duration(rand.Int64N(int64(base / 7)))
	return base + jitter
}
