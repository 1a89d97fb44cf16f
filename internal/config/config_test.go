package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// allEnvVars lists every env var Load reads, cleared between tests.
var allEnvVars = []string{
	"BACKFILL_AUDITOR_DATABASE_URL", "BACKFILL_BILLING_DATABASE_URL",
	"BACKFILL_CATALOG_API_URL", "BACKFILL_CATALOG_TOKEN", "BACKFILL_NATS_URL",
	"BACKFILL_REPORT_S3_BUCKET", "BACKFILL_REPORT_S3_ENDPOINT",
	"BACKFILL_REPORT_S3_REGION", "BACKFILL_REPORT_S3_KEY",
}

func clearAllEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvVars {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	required := map[string]string{
		"BACKFILL_AUDITOR_DATABASE_URL": "postgres://auditor:5432/auditor",
		"BACKFILL_BILLING_DATABASE_URL": "postgres://billing:5432/billing",
		"BACKFILL_CATALOG_API_URL":      "https://api.example.com",
	}

	for _, tc := range []struct {
		name         string
		env          map[string]string
		wantErr      bool
		wantNATSURL  string
		wantS3Region string
		wantS3Key    string
	}{
		{
			name:    "MissingEverything",
			env:     map[string]string{},
			wantErr: true,
		},
		{
			name: "MissingCatalogURL",
			env: map[string]string{
				"BACKFILL_AUDITOR_DATABASE_URL": "postgres://auditor:5432/auditor",
				"BACKFILL_BILLING_DATABASE_URL": "postgres://billing:5432/billing",
			},
			wantErr: true,
		},
		{
			name:         "Defaults",
			env:          required,
			wantS3Region: "eu-west-1",
			wantS3Key:    "backfill/report.jsonl",
		},
		{
			name: "Overrides",
			env: map[string]string{
				"BACKFILL_AUDITOR_DATABASE_URL": "postgres://auditor:5432/auditor",
				"BACKFILL_BILLING_DATABASE_URL": "postgres://billing:5432/billing",
				"BACKFILL_CATALOG_API_URL":      "https://api.example.com",
				"BACKFILL_NATS_URL":             "nats://localhost:4222",
				"BACKFILL_REPORT_S3_REGION":     "us-east-1",
				"BACKFILL_REPORT_S3_KEY":        "runs/latest.jsonl",
			},
			wantNATSURL:  "nats://localhost:4222",
			wantS3Region: "us-east-1",
			wantS3Key:    "runs/latest.jsonl",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clearAllEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.AuditorDatabaseURL != tc.env["BACKFILL_AUDITOR_DATABASE_URL"] {
				t.Errorf("AuditorDatabaseURL = %q", cfg.AuditorDatabaseURL)
			}
			if cfg.NATSURL != tc.wantNATSURL {
				t.Errorf("NATSURL = %q, want %q", cfg.NATSURL, tc.wantNATSURL)
			}
			if cfg.ReportS3Region != tc.wantS3Region {
				t.Errorf("ReportS3Region = %q, want %q", cfg.ReportS3Region, tc.wantS3Region)
			}
			if cfg.ReportS3Key != tc.wantS3Key {
				t.Errorf("ReportS3Key = %q, want %q", cfg.ReportS3Key, tc.wantS3Key)
			}
		})
	}
}

func writeRunConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("writing run config: %v", err)
	}
	return path
}

func TestLoadRunConfig(t *testing.T) {
	path := writeRunConfig(t, `
after = 2023-08-31T00:00:00Z
before = 2023-10-03T00:00:00Z
event_types = ["audit.service_instance.create", "audit.service_instance.delete"]
noise_space_prefixes = ["SMOKE-"]
`)

	rc, err := LoadRunConfig(path)
	if err != nil {
		t.Fatalf("LoadRunConfig: %v", err)
	}
	if !rc.After.Equal(time.Date(2023, 8, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("After = %v", rc.After)
	}
	if !rc.Before.Equal(time.Date(2023, 10, 3, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Before = %v", rc.Before)
	}
	if len(rc.EventTypes) != 2 {
		t.Errorf("EventTypes = %v", rc.EventTypes)
	}
	if rc.ExcludeActorLike != "BACC%" {
		t.Errorf("ExcludeActorLike = %q, want default BACC%%", rc.ExcludeActorLike)
	}
	if len(rc.NoiseSpacePrefixes) != 1 || rc.NoiseSpacePrefixes[0] != "SMOKE-" {
		t.Errorf("NoiseSpacePrefixes = %v", rc.NoiseSpacePrefixes)
	}
}

func TestLoadRunConfig_MissingWindow(t *testing.T) {
	path := writeRunConfig(t, `after = 2023-08-31T00:00:00Z`)
	if _, err := LoadRunConfig(path); err == nil {
		t.Fatal("expected error for missing before")
	}
}

func TestLoadRunConfig_InvertedWindow(t *testing.T) {
	path := writeRunConfig(t, `
after = 2023-10-03T00:00:00Z
before = 2023-08-31T00:00:00Z
`)
	if _, err := LoadRunConfig(path); err == nil {
		t.Fatal("expected error for inverted window")
	}
}

func TestLoadRunConfig_MissingFile(t *testing.T) {
	if _, err := LoadRunConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
