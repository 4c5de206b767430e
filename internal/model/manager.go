// Package model is the data access layer.
//
// Every entity is reached through a Bmc (business model controller), a thin
// binding of a schema descriptor to the generic Create, Get, List, Update and
// Delete executors in this package. Each executor issues exactly one
// parameterized statement on one pooled connection.
package model

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/R3E-Network/model_layer/internal/errors"
)

// DefaultAcquireTimeout bounds how long an operation waits for a pooled
// connection.
const DefaultAcquireTimeout = 3 * time.Second

// Manager owns the connection pool. It is built once at startup and passed
// explicitly to every Bmc call.
type Manager struct {
	db             *sqlx.DB
	acquireTimeout time.Duration
}

// NewManager wraps db. A non-positive acquireTimeout uses DefaultAcquireTimeout.
func NewManager(db *sqlx.DB, acquireTimeout time.Duration) *Manager {
	if acquireTimeout <= 0 {
		acquireTimeout = DefaultAcquireTimeout
	}
	return &Manager{db: db, acquireTimeout: acquireTimeout}
}

// DB returns the underlying pool.
func (mm *Manager) DB() *sqlx.DB {
	return mm.db
}

// conn checks out one connection, waiting at most the acquire timeout.
// The caller must Close it.
func (mm *Manager) conn(ctx context.Context) (*sqlx.Conn, error) {
	acqCtx, cancel := context.WithTimeout(ctx, mm.acquireTimeout)
	defer cancel()

	c, err := mm.db.Connx(acqCtx)
	if err != nil {
		return nil, errors.StoreFailure(fmt.Errorf("acquire connection: %w", err))
	}
	return c, nil
}
