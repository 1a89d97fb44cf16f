package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/alphagov/paas-billing-backfill/internal/model"
	"github.com/alphagov/paas-billing-backfill/internal/store"
)

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryInsertUsageEvent(ctx context.Context, db executor, ev *model.UsageEvent) error {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("marshal usage event payload: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO service_usage_events (
			guid, created_at, raw_message
		) VALUES (
			$1, $2, $3::jsonb
		)`,
		ev.GUID,
		ev.CreatedAt,
		payload,
	)
	if err != nil {
		return fmt.Errorf("insert usage event %s: %w", ev.GUID, err)
	}
	return nil
}

func queryLatestServicePlanGUID(ctx context.Context, db executor, instanceGUID string) (string, error) {
	var guid sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT raw_message->>'service_plan_guid'
		FROM service_usage_events
		WHERE raw_message->>'service_instance_guid' = $1
		ORDER BY created_at DESC
		LIMIT 1`,
		instanceGUID,
	).Scan(&guid)
	if err == sql.ErrNoRows {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query latest plan for %s: %w", instanceGUID, err)
	}
	// A prior row may itself carry a null plan; treat it as no answer.
	if !guid.Valid || guid.String == "" {
		return "", store.ErrNotFound
	}
	return guid.String, nil
}
