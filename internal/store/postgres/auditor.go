package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/alphagov/paas-billing-backfill/internal/model"
	"github.com/alphagov/paas-billing-backfill/internal/store"
)

// auditEventColumns is the column list used for SELECT statements on the
// cf_audit_events table.
const auditEventColumns = `guid, event_type, actee, actee_type, actee_name,
	actor_name, organization_guid, space_guid, created_at, metadata`

// AuditorStore implements store.AuditStore backed by the auditor database.
// It never writes: the audit trail is the source of truth being read from.
type AuditorStore struct {
	db *sql.DB
}

// Compile-time check that AuditorStore implements store.AuditStore.
var _ store.AuditStore = (*AuditorStore)(nil)

// OpenAuditor opens a read-only connection to the auditor database. No
// migrations run here; the tool does not own that schema.
func OpenAuditor(databaseURL string) (*AuditorStore, error) {
	db, err := open(databaseURL)
	if err != nil {
		return nil, err
	}
	return &AuditorStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *AuditorStore) Close() error {
	return s.db.Close()
}

func (s *AuditorStore) ListServiceInstanceEvents(ctx context.Context, w store.Window) ([]*model.AuditEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+auditEventColumns+`
		FROM cf_audit_events
		WHERE created_at > $1
		  AND created_at <= $2
		  AND event_type = ANY($3)
		  AND actor_name NOT LIKE $4
		ORDER BY created_at DESC`,
		w.After,
		w.Before,
		pq.Array(w.EventTypes),
		w.ExcludeActorLike,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()
	return scanAuditEvents(rows)
}

func (s *AuditorStore) EventsForActee(ctx context.Context, actee string) ([]*model.AuditEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+auditEventColumns+`
		FROM cf_audit_events
		WHERE actee = $1
		ORDER BY created_at DESC`,
		actee,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit events for actee %s: %w", actee, err)
	}
	defer rows.Close()
	return scanAuditEvents(rows)
}

func (s *AuditorStore) LatestActeeName(ctx context.Context, actee string) (string, error) {
	var name sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT actee_name
		FROM cf_audit_events
		WHERE actee = $1
		ORDER BY created_at DESC
		LIMIT 1`,
		actee,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query actee name for %s: %w", actee, err)
	}
	return name.String, nil
}
