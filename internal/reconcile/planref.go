package reconcile

import (
	"context"
	"errors"

	"github.com/alphagov/paas-billing-backfill/internal/model"
	"github.com/alphagov/paas-billing-backfill/internal/store"
)

// Plan reference sources, in decreasing order of reliability. The event's
// own request metadata is ground truth; sibling events for the same instance
// are a close proxy; the billing store's prior record is the very data being
// repaired and is only consulted last.
const (
	SourceRequestMetadata = "request-metadata"
	SourceSiblingEvents   = "sibling-events"
	SourceBillingHistory  = "billing-history"
)

// SiblingSource lists audit events sharing an actee, newest first.
type SiblingSource interface {
	EventsForActee(ctx context.Context, actee string) ([]*model.AuditEvent, error)
}

// HistorySource reads a previously recorded plan GUID from the billing store.
type HistorySource interface {
	LatestServicePlanGUID(ctx context.Context, instanceGUID string) (string, error)
}

// planStep is one strategy in the fallback chain. It returns "" (and no
// error) when it has no answer so the next step runs.
type planStep struct {
	source  string
	resolve func(ctx context.Context, ev *model.AuditEvent) (string, error)
}

// PlanResolver recovers the service-plan GUID for a managed-service audit
// event through an ordered chain of sources, stopping at the first hit.
type PlanResolver struct {
	steps []planStep
}

// NewPlanResolver builds the standard three-step chain.
func NewPlanResolver(siblings SiblingSource, history HistorySource) *PlanResolver {
	return &PlanResolver{steps: []planStep{
		{
			source: SourceRequestMetadata,
			resolve: func(_ context.Context, ev *model.AuditEvent) (string, error) {
				return ev.RequestPlanGUID(), nil
			},
		},
		{
			source: SourceSiblingEvents,
			resolve: func(ctx context.Context, ev *model.AuditEvent) (string, error) {
				events, err := siblings.EventsForActee(ctx, ev.Actee)
				if err != nil {
					return "", err
				}
				for _, sibling := range events {
					if guid := sibling.RequestPlanGUID(); guid != "" {
						return guid, nil
					}
				}
				return "", nil
			},
		},
		{
			source: SourceBillingHistory,
			resolve: func(ctx context.Context, ev *model.AuditEvent) (string, error) {
				guid, err := history.LatestServicePlanGUID(ctx, ev.Actee)
				if errors.Is(err, store.ErrNotFound) {
					return "", nil
				}
				return guid, err
			},
		},
	}}
}

// Resolve returns the recovered plan GUID and the name of the source that
// produced it. A ("", "") result with nil error means the event is
// unresolvable and belongs in the faulty set.
func (r *PlanResolver) Resolve(ctx context.Context, ev *model.AuditEvent) (guid, source string, err error) {
	for _, step := range r.steps {
		guid, err := step.resolve(ctx, ev)
		if err != nil {
			return "", "", err
		}
		if guid != "" {
			return guid, step.source, nil
		}
	}
	return "", "", nil
}
