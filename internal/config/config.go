package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	AuditorDatabaseURL string // BACKFILL_AUDITOR_DATABASE_URL (required)
	BillingDatabaseURL string // BACKFILL_BILLING_DATABASE_URL (required)
	CatalogAPIURL      string // BACKFILL_CATALOG_API_URL (required)
	CatalogToken       string // BACKFILL_CATALOG_TOKEN (optional, empty = unauthenticated)
	NATSURL            string // BACKFILL_NATS_URL (optional, empty = no events)

	// Report settings
	ReportS3Bucket   string // BACKFILL_REPORT_S3_BUCKET (enables S3 when set)
	ReportS3Endpoint string // BACKFILL_REPORT_S3_ENDPOINT (custom endpoint for MinIO)
	ReportS3Region   string // BACKFILL_REPORT_S3_REGION (default "eu-west-1")
	ReportS3Key      string // BACKFILL_REPORT_S3_KEY (default "backfill/report.jsonl")
}

func Load() (*Config, error) {
	c := &Config{
		AuditorDatabaseURL: os.Getenv("BACKFILL_AUDITOR_DATABASE_URL"),
		BillingDatabaseURL: os.Getenv("BACKFILL_BILLING_DATABASE_URL"),
		CatalogAPIURL:      os.Getenv("BACKFILL_CATALOG_API_URL"),
		CatalogToken:       os.Getenv("BACKFILL_CATALOG_TOKEN"),
		NATSURL:            os.Getenv("BACKFILL_NATS_URL"),
		ReportS3Bucket:     os.Getenv("BACKFILL_REPORT_S3_BUCKET"),
		ReportS3Endpoint:   os.Getenv("BACKFILL_REPORT_S3_ENDPOINT"),
		ReportS3Region:     envOrDefault("BACKFILL_REPORT_S3_REGION", "eu-west-1"),
		ReportS3Key:        envOrDefault("BACKFILL_REPORT_S3_KEY", "backfill/report.jsonl"),
	}
	if c.AuditorDatabaseURL == "" {
		return nil, fmt.Errorf("BACKFILL_AUDITOR_DATABASE_URL is required")
	}
	if c.BillingDatabaseURL == "" {
		return nil, fmt.Errorf("BACKFILL_BILLING_DATABASE_URL is required")
	}
	if c.CatalogAPIURL == "" {
		return nil, fmt.Errorf("BACKFILL_CATALOG_API_URL is required")
	}
	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// RunConfig scopes a single backfill run: the time window and the filters
// applied to candidate audit events. It is loaded from a TOML file so that a
// run's exact parameters can be reviewed and kept alongside the incident
// record.
type RunConfig struct {
	After  time.Time `toml:"after"`
	Before time.Time `toml:"before"`

	EventTypes         []string `toml:"event_types"`
	ExcludeActorLike   string   `toml:"exclude_actor_like"`
	NoiseSpacePrefixes []string `toml:"noise_space_prefixes"`
}

// LoadRunConfig reads and validates a run config file.
func LoadRunConfig(path string) (*RunConfig, error) {
	var rc RunConfig
	if _, err := toml.DecodeFile(path, &rc); err != nil {
		return nil, fmt.Errorf("reading run config %s: %w", path, err)
	}
	if err := rc.Validate(); err != nil {
		return nil, fmt.Errorf("run config %s: %w", path, err)
	}
	return &rc, nil
}

// Validate checks the window bounds and fills in defaults for the optional
// filters.
func (rc *RunConfig) Validate() error {
	if rc.After.IsZero() || rc.Before.IsZero() {
		return fmt.Errorf("after and before are both required")
	}
	if !rc.Before.After(rc.After) {
		return fmt.Errorf("before (%s) must be later than after (%s)",
			rc.Before.Format(time.RFC3339), rc.After.Format(time.RFC3339))
	}
	if rc.ExcludeActorLike == "" {
		rc.ExcludeActorLike = "BACC%"
	}
	return nil
}
