package events

import (
	"context"
	"time"
)

// Event topic constants
const (
	TopicRunStarted   = "billing.backfill.run.started"
	TopicRunCompleted = "billing.backfill.run.completed"
	TopicRunFailed    = "billing.backfill.run.failed"
	TopicRecordFaulty = "billing.backfill.record.faulty"
)

// Event types

type RunStarted struct {
	RunID  string    `json:"run_id"`
	After  time.Time `json:"after"`
	Before time.Time `json:"before"`
	DryRun bool      `json:"dry_run"`
}

type RunCompleted struct {
	RunID      string        `json:"run_id"`
	Candidates int           `json:"candidates"`
	Written    int           `json:"written"`
	Skipped    int           `json:"skipped"`
	Faulty     int           `json:"faulty"`
	DryRun     bool          `json:"dry_run"`
	Duration   time.Duration `json:"duration_ns"`
}

type RunFailed struct {
	RunID string `json:"run_id"`
	Error string `json:"error"`
}

type RecordFaulty struct {
	RunID        string    `json:"run_id"`
	EventGUID    string    `json:"event_guid"`
	EventType    string    `json:"event_type"`
	InstanceGUID string    `json:"instance_guid"`
	InstanceName string    `json:"instance_name,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
