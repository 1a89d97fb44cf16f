package report

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alphagov/paas-billing-backfill/internal/model"
	"github.com/alphagov/paas-billing-backfill/internal/reconcile"
)

func testSummary() *reconcile.Summary {
	return &reconcile.Summary{
		Candidates: 5,
		Written:    4,
		Skipped:    1,
		Faulty: []*model.AuditEvent{
			{
				GUID:      "ev-1",
				EventType: "audit.service_instance.create",
				Actee:     "si-1",
				ActeeName: "my-db",
				CreatedAt: time.Date(2023, 9, 10, 8, 0, 0, 0, time.UTC),
			},
			{
				GUID:      "ev-2",
				EventType: "audit.service_instance.update",
				Actee:     "si-2",
				CreatedAt: time.Date(2023, 9, 12, 9, 0, 0, 0, time.UTC),
			},
		},
	}
}

func TestWriteJSONL(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSONL("run-test1", testSummary(), &buf); err != nil {
		t.Fatalf("WriteJSONL: %v", err)
	}

	scanner := bufio.NewScanner(&buf)

	if !scanner.Scan() {
		t.Fatal("missing header line")
	}
	var hdr map[string]any
	if err := json.Unmarshal(scanner.Bytes(), &hdr); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if hdr["type"] != "header" || hdr["run_id"] != "run-test1" {
		t.Errorf("header = %v", hdr)
	}
	if hdr["faulty_count"] != float64(2) || hdr["written"] != float64(4) {
		t.Errorf("header counts = %v", hdr)
	}

	var guids []string
	for scanner.Scan() {
		var rec struct {
			Type string            `json:"type"`
			Data *model.AuditEvent `json:"data"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("unmarshal record: %v", err)
		}
		if rec.Type != "faulty_event" {
			t.Errorf("record type = %q", rec.Type)
		}
		guids = append(guids, rec.Data.GUID)
	}
	if len(guids) != 2 || guids[0] != "ev-1" || guids[1] != "ev-2" {
		t.Errorf("faulty GUIDs = %v, want [ev-1 ev-2]", guids)
	}
}

func TestWriteJSONL_NoFaultyRecords(t *testing.T) {
	var buf bytes.Buffer
	summary := &reconcile.Summary{Candidates: 3, Written: 3}
	if err := WriteJSONL("run-test2", summary, &buf); err != nil {
		t.Fatalf("WriteJSONL: %v", err)
	}
	if n := bytes.Count(buf.Bytes(), []byte("\n")); n != 1 {
		t.Errorf("wrote %d lines, want header only", n)
	}
}

func TestFileDestination(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.jsonl")
	dest := NewFileDestination(path)

	payload := []byte(`{"type":"header"}` + "\n")
	if err := dest.Write(context.Background(), payload); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("file contents = %q, want %q", got, payload)
	}
}

func TestDestinations(t *testing.T) {
	var _ Destination = (*FileDestination)(nil)
	var _ Destination = (*S3Destination)(nil)
}
