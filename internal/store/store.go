// Package store defines the persistence interfaces for the backfill: a
// read-only view of the auditor database and a writable view of the billing
// database.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/alphagov/paas-billing-backfill/internal/model"
)

// ErrNotFound is returned by lookups that matched no row.
var ErrNotFound = errors.New("not found")

// Window selects the audit events a run reconciles: a creation-time range,
// an event-type allow-list, and an actor-name exclusion pattern (SQL LIKE).
type Window struct {
	After            time.Time
	Before           time.Time
	EventTypes       []string
	ExcludeActorLike string
}

// AuditStore is the read-only audit event source. Audit rows are immutable;
// nothing here writes.
type AuditStore interface {
	// ListServiceInstanceEvents returns the events selected by the window,
	// newest first.
	ListServiceInstanceEvents(ctx context.Context, w Window) ([]*model.AuditEvent, error)

	// EventsForActee returns every audit event for the given actee GUID,
	// newest first, regardless of window or event type.
	EventsForActee(ctx context.Context, actee string) ([]*model.AuditEvent, error)

	// LatestActeeName returns the actee name recorded by the most recent
	// audit event targeting the given GUID, or ErrNotFound.
	LatestActeeName(ctx context.Context, actee string) (string, error)

	Close() error
}

// BillingStore is the usage-event target. All writes for a run happen inside
// a single transaction obtained via RunInTransaction.
type BillingStore interface {
	// InsertUsageEvent appends a usage event row. Rows are never updated.
	InsertUsageEvent(ctx context.Context, ev *model.UsageEvent) error

	// LatestServicePlanGUID returns the service_plan_guid recorded by the
	// most recent usage event for the given service instance, or ErrNotFound
	// when no prior event (or no plan on it) exists.
	LatestServicePlanGUID(ctx context.Context, instanceGUID string) (string, error)

	// RunInTransaction begins a transaction, calls fn with a store bound to
	// it, and commits on success or rolls back on error. A run's writes all
	// happen through the bound store so an interrupted run leaves nothing
	// behind.
	RunInTransaction(ctx context.Context, fn func(tx BillingStore) error) error

	Close() error
}
