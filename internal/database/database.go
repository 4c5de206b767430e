// Package database opens the Postgres connection pool.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	retry "github.com/sethvargo/go-retry"

	"github.com/R3E-Network/model_layer/internal/logging"
)

// DriverName is the database/sql driver used for Postgres.
const DriverName = "postgres"

// Options configures the pool.
type Options struct {
	URL      string
	MaxConns int
	// ConnectRetries bounds the pings attempted at startup.
	ConnectRetries uint64
	// ConnectBackoff is the first wait between pings.
	ConnectBackoff time.Duration
}

// Open creates the pool and waits until Postgres answers a ping.
// Bootstrap is the only place that retries; the model layer never does.
func Open(ctx context.Context, opts Options, log *logging.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Open(DriverName, opts.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if opts.MaxConns > 0 {
		db.SetMaxOpenConns(opts.MaxConns)
		db.SetMaxIdleConns(opts.MaxConns)
	}

	backoff := opts.ConnectBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	b := retry.WithMaxRetries(opts.ConnectRetries, retry.NewFibonacci(backoff))

	attempt := 0
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		if err := db.PingContext(ctx); err != nil {
			log.WithContext(ctx).WithError(err).WithField("attempt", attempt).Warn("Database not reachable")
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}

	log.WithContext(ctx).WithField("max_conns", opts.MaxConns).Info("Database connected")
	return db, nil
}
