// Package postgres implements the store interfaces against PostgreSQL: the
// auditor database (read-only) and the billing database (usage events).
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alphagov/paas-billing-backfill/internal/model"
	"github.com/alphagov/paas-billing-backfill/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func open(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// BillingStore implements store.BillingStore backed by the billing database.
type BillingStore struct {
	db *sql.DB
}

// Compile-time check that BillingStore implements store.BillingStore.
var _ store.BillingStore = (*BillingStore)(nil)

// NewBilling opens a connection to the billing database, configures the
// connection pool, and runs any pending migrations so the usage-event table
// exists even on a freshly restored recovery database.
func NewBilling(databaseURL string) (*BillingStore, error) {
	db, err := open(databaseURL)
	if err != nil {
		return nil, err
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &BillingStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *BillingStore) Close() error {
	return s.db.Close()
}

func (s *BillingStore) InsertUsageEvent(ctx context.Context, ev *model.UsageEvent) error {
	return queryInsertUsageEvent(ctx, s.db, ev)
}

func (s *BillingStore) LatestServicePlanGUID(ctx context.Context, instanceGUID string) (string, error) {
	return queryLatestServicePlanGUID(ctx, s.db, instanceGUID)
}

// RunInTransaction begins a database transaction, creates a txStore that
// delegates to it, calls fn, and commits on success or rolls back on error.
func (s *BillingStore) RunInTransaction(ctx context.Context, fn func(tx store.BillingStore) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txS := &txStore{tx: tx}
	if err := fn(txS); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore implements store.BillingStore using a *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

// Compile-time check that txStore implements store.BillingStore.
var _ store.BillingStore = (*txStore)(nil)

func (s *txStore) InsertUsageEvent(ctx context.Context, ev *model.UsageEvent) error {
	return queryInsertUsageEvent(ctx, s.tx, ev)
}

func (s *txStore) LatestServicePlanGUID(ctx context.Context, instanceGUID string) (string, error) {
	return queryLatestServicePlanGUID(ctx, s.tx, instanceGUID)
}

// RunInTransaction on a txStore reuses the existing transaction (no nesting).
func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.BillingStore) error) error {
	return fn(s)
}

// Close is a no-op for a transaction store; the parent store owns the connection.
func (s *txStore) Close() error {
	return nil
}
