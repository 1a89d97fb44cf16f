package postgres

import (
	"database/sql"
	"encoding/json"

	"github.com/alphagov/paas-billing-backfill/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanAuditEvent scans a single row into a model.AuditEvent.
// The row must contain columns in the order defined by auditEventColumns.
func scanAuditEvent(row scannable) (*model.AuditEvent, error) {
	var e model.AuditEvent
	var (
		acteeName sql.NullString
		actorName sql.NullString
		orgGUID   sql.NullString
		spaceGUID sql.NullString
		metadata  []byte
	)

	err := row.Scan(
		&e.GUID,
		&e.EventType,
		&e.Actee,
		&e.ActeeType,
		&acteeName,
		&actorName,
		&orgGUID,
		&spaceGUID,
		&e.CreatedAt,
		&metadata,
	)
	if err != nil {
		return nil, err
	}

	e.ActeeName = acteeName.String
	e.ActorName = actorName.String
	e.OrgGUID = orgGUID.String
	e.SpaceGUID = spaceGUID.String
	if len(metadata) > 0 {
		e.Metadata = json.RawMessage(metadata)
	}
	return &e, nil
}

func scanAuditEvents(rows *sql.Rows) ([]*model.AuditEvent, error) {
	var events []*model.AuditEvent
	for rows.Next() {
		e, err := scanAuditEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
