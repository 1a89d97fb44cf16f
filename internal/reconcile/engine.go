package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/alphagov/paas-billing-backfill/internal/catalog"
	"github.com/alphagov/paas-billing-backfill/internal/model"
	"github.com/alphagov/paas-billing-backfill/internal/store"
)

// DefaultNoisePrefixes identifies test-environment spaces whose per-record
// errors are swallowed without reporting. Events in these spaces are churned
// constantly by platform test suites and are not billable.
var DefaultNoisePrefixes = []string{"BACC-", "SMOKE-", "CATS-", "PERF-"}

// progressEvery controls how often the engine logs a progress line.
const progressEvery = 500

// Summary reports what a run did.
type Summary struct {
	Candidates int
	Written    int
	Skipped    int
	Faulty     []*model.AuditEvent
}

// recordError wraps a failure that spoils one record but must not abort the
// run. Everything not wrapped this way is treated as fatal.
type recordError struct {
	spaceName string
	err       error
}

func (e *recordError) Error() string { return e.err.Error() }
func (e *recordError) Unwrap() error { return e.err }

// Engine reconciles one window of audit events into usage events. Construct
// one per run; it shares the catalog cache and audit source across records
// and accumulates the faulty set.
type Engine struct {
	auditor store.AuditStore
	catalog *catalog.Cache
	logger  *slog.Logger

	// newGUID generates usage-event GUIDs; overridable in tests.
	newGUID func() string

	noisePrefixes []string
}

// NewEngine creates an engine over the given audit source and catalog cache.
func NewEngine(auditor store.AuditStore, cat *catalog.Cache, logger *slog.Logger) *Engine {
	return &Engine{
		auditor:       auditor,
		catalog:       cat,
		logger:        logger,
		newGUID:       uuid.NewString,
		noisePrefixes: DefaultNoisePrefixes,
	}
}

// SetNoisePrefixes replaces the default noise-space prefixes.
func (e *Engine) SetNoisePrefixes(prefixes []string) {
	if len(prefixes) > 0 {
		e.noisePrefixes = prefixes
	}
}

// Run reconciles every audit event selected by the window, newest first,
// writing usage events through billing. The caller supplies a billing store
// already bound to the run's transaction; Run never commits. Per-record
// failures are logged and skipped; classification errors, catalog failures
// and write failures abort the run.
func (e *Engine) Run(ctx context.Context, billing store.BillingStore, w store.Window) (*Summary, error) {
	events, err := e.auditor.ListServiceInstanceEvents(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("listing audit events: %w", err)
	}
	e.logger.Info("reconciling audit events",
		"candidates", len(events),
		"after", w.After,
		"before", w.Before,
	)

	resolver := NewPlanResolver(e.auditor, billing)
	faulty := NewFaultySet()
	summary := &Summary{Candidates: len(events)}

	for i, ev := range events {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := e.process(ctx, billing, resolver, faulty, ev); err != nil {
			var re *recordError
			if !errors.As(err, &re) {
				return nil, err
			}
			summary.Skipped++
			if !e.isNoise(re.spaceName) {
				e.logger.Error("skipping unreconcilable audit event",
					"err", re.err,
					"guid", ev.GUID,
					"event_type", ev.EventType,
					"actee", ev.Actee,
					"actee_name", ev.ActeeName,
					"space_guid", ev.SpaceGUID,
				)
			}
			continue
		}
		summary.Written++
		if (i+1)%progressEvery == 0 {
			e.logger.Info("progress", "processed", i+1, "total", len(events))
		}
	}

	summary.Faulty = faulty.Records()
	return summary, nil
}

func (e *Engine) process(ctx context.Context, billing store.BillingStore, resolver *PlanResolver, faulty *FaultySet, ev *model.AuditEvent) error {
	state, err := StateFor(ev.EventType)
	if err != nil {
		return err
	}
	kind, err := KindFor(ev.ActeeType)
	if err != nil {
		return err
	}

	spaceName, err := e.spaceName(ctx, ev)
	if err != nil {
		return err
	}

	data := model.UsageData{
		State:               state,
		OrgGUID:             ev.OrgGUID,
		SpaceGUID:           ev.SpaceGUID,
		SpaceName:           spaceName,
		ServiceInstanceGUID: ev.Actee,
		ServiceInstanceName: ev.ActeeName,
		ServiceInstanceType: kind,
	}

	if kind == model.KindManaged {
		if err := e.enrich(ctx, resolver, faulty, ev, spaceName, &data); err != nil {
			return err
		}
	}

	usage := &model.UsageEvent{
		GUID:      e.newGUID(),
		CreatedAt: ev.CreatedAt,
		Data:      data,
	}
	if err := billing.InsertUsageEvent(ctx, usage); err != nil {
		return err
	}
	return nil
}

// enrich fills in plan, offering and broker metadata for a managed instance.
// A recovered plan that no longer exists in the catalog, or a missing
// relationship along the plan -> offering -> broker walk, leaves the
// remaining fields null; only a failed plan recovery marks the event faulty.
func (e *Engine) enrich(ctx context.Context, resolver *PlanResolver, faulty *FaultySet, ev *model.AuditEvent, spaceName string, data *model.UsageData) error {
	planGUID, source, err := resolver.Resolve(ctx, ev)
	if err != nil {
		return &recordError{spaceName: spaceName, err: fmt.Errorf("resolving plan for %s: %w", ev.Actee, err)}
	}
	if planGUID == "" {
		faulty.Add(ev)
		if !e.isNoise(spaceName) {
			e.logger.Warn("no service plan reference found",
				"guid", ev.GUID,
				"actee", ev.Actee,
				"actee_name", ev.ActeeName,
			)
		}
		return nil
	}
	if source == SourceBillingHistory {
		// The billing store is the data being repaired; plans recovered from
		// it may carry the original fault forward. Surface them for audit.
		e.logger.Warn("service plan recovered from billing history",
			"guid", ev.GUID,
			"actee", ev.Actee,
			"plan_guid", planGUID,
		)
	}

	data.ServicePlanGUID = &planGUID

	plan, ok, err := e.catalog.Plan(ctx, planGUID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	data.ServicePlanName = strptr(plan.Name)

	offeringRel := plan.Relationships.ServiceOffering.Data
	if offeringRel == nil {
		return nil
	}
	data.ServiceGUID = strptr(offeringRel.GUID)

	offering, ok, err := e.catalog.Offering(ctx, offeringRel.GUID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	data.ServiceLabel = strptr(offering.Name)

	brokerRel := offering.Relationships.ServiceBroker.Data
	if brokerRel == nil {
		return nil
	}
	data.ServiceBrokerGUID = strptr(brokerRel.GUID)

	broker, ok, err := e.catalog.Broker(ctx, brokerRel.GUID)
	if err != nil {
		return err
	}
	if ok {
		data.ServiceBrokerName = strptr(broker.Name)
	}
	return nil
}

// spaceName resolves the space's name from the live catalog, falling back to
// the most recent audit event that named the space when it has since been
// deleted. A space absent from both degrades to "" rather than spoiling the
// record.
func (e *Engine) spaceName(ctx context.Context, ev *model.AuditEvent) (string, error) {
	space, ok, err := e.catalog.Space(ctx, ev.SpaceGUID)
	if err != nil {
		return "", err
	}
	if ok {
		return space.Name, nil
	}

	name, err := e.auditor.LatestActeeName(ctx, ev.SpaceGUID)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", &recordError{err: fmt.Errorf("resolving space name for %s: %w", ev.SpaceGUID, err)}
	}
	return name, nil
}

func (e *Engine) isNoise(spaceName string) bool {
	for _, prefix := range e.noisePrefixes {
		if strings.HasPrefix(spaceName, prefix) {
			return true
		}
	}
	return false
}

func strptr(s string) *string {
	return &s
}
