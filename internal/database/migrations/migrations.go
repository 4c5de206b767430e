// Package migrations owns the Postgres schema and the development seed data.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

//go:embed sql/*.sql
var files embed.FS

// newMigrate opens a dedicated connection for the migrator. Closing the
// migrator closes that connection, so it is never the service pool.
func newMigrate(dsn string) (*migrate.Migrate, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open migration connection: %w", err)
	}
	src, err := iofs.New(files, "sql")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load migrations: %w", err)
	}
	drv, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", drv)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

func run(dsn string, step func(*migrate.Migrate) error) (err error) {
	m, err := newMigrate(dsn)
	if err != nil {
		return err
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if err == nil {
			err = errors.Join(srcErr, dbErr)
		}
	}()

	if err := step(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Up applies every pending migration.
func Up(dsn string) error {
	return run(dsn, func(m *migrate.Migrate) error { return m.Up() })
}

// Down reverts every applied migration.
func Down(dsn string) error {
	return run(dsn, func(m *migrate.Migrate) error { return m.Down() })
}

// Version returns the applied schema version; ok is false on an empty
// database.
func Version(dsn string) (version uint, dirty bool, ok bool, err error) {
	err = run(dsn, func(m *migrate.Migrate) error {
		v, d, verr := m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			return nil
		}
		if verr != nil {
			return verr
		}
		version, dirty, ok = v, d, true
		return nil
	})
	return version, dirty, ok, err
}

// DemoUsername is the account created by Seed.
const DemoUsername = "demo1"

// seedStatements populate a development database. They are idempotent.
var seedStatements = []string{
	`INSERT INTO "user" (id, username, cid, ctime, mid, mtime)
	 VALUES (0, 'root', 0, now(), 0, now())
	 ON CONFLICT (username) DO NOTHING`,
	`INSERT INTO "user" (username, cid, ctime, mid, mtime)
	 VALUES ('` + DemoUsername + `', 0, now(), 0, now())
	 ON CONFLICT (username) DO NOTHING`,
	`INSERT INTO task (title, cid, ctime, mid, mtime)
	 SELECT 'welcome task', 0, now(), 0, now()
	 WHERE NOT EXISTS (SELECT 1 FROM task)`,
}

// Seed inserts the development rows.
func Seed(ctx context.Context, db *sql.DB) error {
	for i, stmt := range seedStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("seed statement %d: %w", i+1, err)
		}
	}
	return nil
}
