// Package report writes run reports of faulty audit events as JSONL to one or
// more destinations (local file, S3).
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alphagov/paas-billing-backfill/internal/model"
	"github.com/alphagov/paas-billing-backfill/internal/reconcile"
)

// Destination is the interface for a report target (file, S3, etc.).
type Destination interface {
	// Write sends the JSONL payload to the destination.
	Write(ctx context.Context, data []byte) error
}

// header is the first JSONL record written by WriteJSONL.
type header struct {
	Version     string    `json:"version"`
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	RunID       string    `json:"run_id"`
	Candidates  int       `json:"candidates"`
	Written     int       `json:"written"`
	Skipped     int       `json:"skipped"`
	FaultyCount int       `json:"faulty_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string            `json:"type"`
	Data *model.AuditEvent `json:"data"`
}

// WriteJSONL writes the run summary as a header line followed by one line per
// faulty audit event.
func WriteJSONL(runID string, summary *reconcile.Summary, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:     "1",
		Type:        "header",
		Timestamp:   time.Now().UTC(),
		RunID:       runID,
		Candidates:  summary.Candidates,
		Written:     summary.Written,
		Skipped:     summary.Skipped,
		FaultyCount: len(summary.Faulty),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, ev := range summary.Faulty {
		if err := enc.Encode(record{Type: "faulty_event", Data: ev}); err != nil {
			return fmt.Errorf("encode faulty event %s: %w", ev.GUID, err)
		}
	}
	return nil
}
