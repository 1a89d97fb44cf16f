package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alphagov/paas-billing-backfill/internal/catalog"
	"github.com/alphagov/paas-billing-backfill/internal/config"
	"github.com/alphagov/paas-billing-backfill/internal/events"
	"github.com/alphagov/paas-billing-backfill/internal/idgen"
	"github.com/alphagov/paas-billing-backfill/internal/reconcile"
	"github.com/alphagov/paas-billing-backfill/internal/report"
	"github.com/alphagov/paas-billing-backfill/internal/store"
	"github.com/alphagov/paas-billing-backfill/internal/store/postgres"
	"github.com/alphagov/paas-billing-backfill/internal/ui"
)

// errDryRun forces RunInTransaction to roll back after a successful dry run.
var errDryRun = errors.New("dry run: rolling back")

func runBackfill(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	rc, err := resolveRunConfig()
	if err != nil {
		return err
	}

	runID, err := idgen.Generate()
	if err != nil {
		return err
	}
	logger = logger.With("run", runID)

	if !assumeYes && !dryRun {
		if !ui.IsInteractive() {
			return fmt.Errorf("refusing to rewrite usage events without confirmation; pass --yes or run interactively")
		}
		prompt := fmt.Sprintf("Rewrite usage events for audit events between %s and %s?",
			rc.After.Format(time.RFC3339), rc.Before.Format(time.RFC3339))
		if !ui.Confirm(os.Stdin, os.Stdout, prompt) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	auditor, err := postgres.OpenAuditor(cfg.AuditorDatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to auditor database: %w", err)
	}
	defer auditor.Close()

	billing, err := postgres.NewBilling(cfg.BillingDatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to billing database: %w", err)
	}
	defer billing.Close()

	cache := catalog.NewCache(catalog.NewClient(cfg.CatalogAPIURL, cfg.CatalogToken))

	var publisher events.Publisher
	if cfg.NATSURL != "" {
		pub, err := events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			return err
		}
		publisher = pub
		logger.Info("events enabled", "nats_url", cfg.NATSURL)
	} else {
		publisher = &events.NoopPublisher{}
	}
	defer publisher.Close()

	window := store.Window{
		After:            rc.After,
		Before:           rc.Before,
		EventTypes:       rc.EventTypes,
		ExcludeActorLike: rc.ExcludeActorLike,
	}
	if len(window.EventTypes) == 0 {
		window.EventTypes = reconcile.DefaultEventTypes
	}

	engine := reconcile.NewEngine(auditor, cache, logger)
	engine.SetNoisePrefixes(rc.NoiseSpacePrefixes)

	publishEvent(publisher, logger, events.TopicRunStarted, events.RunStarted{
		RunID:  runID,
		After:  rc.After,
		Before: rc.Before,
		DryRun: dryRun,
	})

	started := time.Now()
	var summary *reconcile.Summary
	err = billing.RunInTransaction(ctx, func(tx store.BillingStore) error {
		s, err := engine.Run(ctx, tx, window)
		if err != nil {
			return err
		}
		summary = s
		if dryRun {
			return errDryRun
		}
		return nil
	})
	if errors.Is(err, errDryRun) {
		logger.Info("dry run: all writes rolled back")
		err = nil
	}
	if err != nil {
		publishEvent(publisher, logger, events.TopicRunFailed, events.RunFailed{
			RunID: runID,
			Error: err.Error(),
		})
		flushEvents(publisher)
		return err
	}

	for _, ev := range summary.Faulty {
		publishEvent(publisher, logger, events.TopicRecordFaulty, events.RecordFaulty{
			RunID:        runID,
			EventGUID:    ev.GUID,
			EventType:    ev.EventType,
			InstanceGUID: ev.Actee,
			InstanceName: ev.ActeeName,
			OccurredAt:   ev.CreatedAt,
		})
	}
	publishEvent(publisher, logger, events.TopicRunCompleted, events.RunCompleted{
		RunID:      runID,
		Candidates: summary.Candidates,
		Written:    summary.Written,
		Skipped:    summary.Skipped,
		Faulty:     len(summary.Faulty),
		DryRun:     dryRun,
		Duration:   time.Since(started),
	})
	flushEvents(publisher)

	if err := writeReports(ctx, cfg, runID, summary, logger); err != nil {
		return err
	}

	fmt.Printf("Run %s complete: %d candidates, %d written, %d skipped, %d faulty",
		runID, summary.Candidates, summary.Written, summary.Skipped, len(summary.Faulty))
	if dryRun {
		fmt.Print(" (dry run, rolled back)")
	}
	fmt.Println()
	return nil
}

// resolveRunConfig merges the optional TOML run config with the window flags.
// Flags win over the file.
func resolveRunConfig() (*config.RunConfig, error) {
	rc := &config.RunConfig{}
	if configPath != "" {
		loaded, err := config.LoadRunConfig(configPath)
		if err != nil {
			return nil, err
		}
		rc = loaded
	}
	if afterStr != "" {
		t, err := parseWindowTime(afterStr)
		if err != nil {
			return nil, fmt.Errorf("--after: %w", err)
		}
		rc.After = t
	}
	if beforeStr != "" {
		t, err := parseWindowTime(beforeStr)
		if err != nil {
			return nil, fmt.Errorf("--before: %w", err)
		}
		rc.Before = t
	}
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	return rc, nil
}

func parseWindowTime(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}

func writeReports(ctx context.Context, cfg *config.Config, runID string, summary *reconcile.Summary, logger *slog.Logger) error {
	var dests []report.Destination
	if reportPath != "" {
		dests = append(dests, report.NewFileDestination(reportPath))
	}
	if cfg.ReportS3Bucket != "" {
		s3Dest, err := report.NewS3Destination(ctx, cfg.ReportS3Bucket, cfg.ReportS3Key, cfg.ReportS3Region, cfg.ReportS3Endpoint)
		if err != nil {
			return fmt.Errorf("creating S3 report destination: %w", err)
		}
		dests = append(dests, s3Dest)
	}
	if len(dests) == 0 {
		return nil
	}

	var buf bytes.Buffer
	if err := report.WriteJSONL(runID, summary, &buf); err != nil {
		return err
	}
	for _, dest := range dests {
		if err := dest.Write(ctx, buf.Bytes()); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	}
	logger.Info("report written", "destinations", len(dests), "bytes", buf.Len(), "faulty", len(summary.Faulty))
	return nil
}

func publishEvent(pub events.Publisher, logger *slog.Logger, topic string, event any) {
	if err := pub.Publish(context.Background(), topic, event); err != nil {
		logger.Error("publishing event", "topic", topic, "err", err)
	}
}

func flushEvents(pub events.Publisher) {
	if f, ok := pub.(interface{ Flush() error }); ok {
		_ = f.Flush()
	}
}
