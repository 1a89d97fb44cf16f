// Package reconcile rebuilds billing usage events from the audit trail. The
// engine walks a window of service-instance audit events, recovers the
// catalog metadata a live pipeline would have attached, and writes the
// equivalent usage-event rows inside a single run-scoped transaction.
package reconcile

import (
	"fmt"

	"github.com/alphagov/paas-billing-backfill/internal/model"
)

// DefaultEventTypes is the audit event-type allow-list the original backfill
// reconciled. It is the default window filter; the classifier below accepts
// a slightly wider set so that operator-extended windows still classify.
var DefaultEventTypes = []string{
	"audit.service_instance.start_create",
	"audit.service_instance.delete",
	"audit.service_instance.update",
	"audit.service_instance.purge",
	"audit.user_provided_service_instance.create",
	"audit.user_provided_service_instance.delete",
	"audit.user_provided_service_instance.update",
}

// StateFor maps an audit event type to the usage-event state it represents.
// The mapping is total over the known lifecycle events; anything else is an
// input error and aborts the run rather than defaulting.
func StateFor(eventType string) (model.State, error) {
	switch eventType {
	case "audit.service_instance.create",
		"audit.service_instance.start_create",
		"audit.user_provided_service_instance.create":
		return model.StateCreated, nil
	case "audit.service_instance.update",
		"audit.service_instance.start_update",
		"audit.user_provided_service_instance.update":
		return model.StateUpdated, nil
	case "audit.service_instance.delete",
		"audit.service_instance.purge",
		"audit.user_provided_service_instance.delete":
		return model.StateDeleted, nil
	}
	return "", fmt.Errorf("unknown audit event type %q", eventType)
}

// KindFor maps an audit actee type to the service instance kind. Total over
// the two known actee types; anything else is an input error.
func KindFor(acteeType string) (model.InstanceKind, error) {
	switch acteeType {
	case "service_instance":
		return model.KindManaged, nil
	case "user_provided_service_instance":
		return model.KindUserProvided, nil
	}
	return "", fmt.Errorf("unknown actee type %q", acteeType)
}
