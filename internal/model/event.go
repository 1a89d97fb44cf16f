package model

import (
	"encoding/json"
	"time"
)

// State represents the billing-visible lifecycle state of a service instance,
// as recorded in a usage event.
type State string

const (
	StateCreated State = "CREATED"
	StateUpdated State = "UPDATED"
	StateDeleted State = "DELETED"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// IsValid checks whether the state is a known value.
func (s State) IsValid() bool {
	switch s {
	case StateCreated, StateUpdated, StateDeleted:
		return true
	}
	return false
}

// InstanceKind distinguishes broker-provisioned instances from user-provided
// ones. The wire value matches the service_instance_type field emitted by
// Cloud Controller usage events.
type InstanceKind string

const (
	KindManaged      InstanceKind = "managed_service_instance"
	KindUserProvided InstanceKind = "user_provided_service_instance"
)

// String returns the string representation of the instance kind.
func (k InstanceKind) String() string {
	return string(k)
}

// IsValid checks whether the instance kind is a known value.
func (k InstanceKind) IsValid() bool {
	switch k {
	case KindManaged, KindUserProvided:
		return true
	}
	return false
}

// AuditEvent is a single immutable row from the auditor database's copy of
// the Cloud Controller audit log. It is never written by this tool.
type AuditEvent struct {
	GUID      string          `json:"guid"`
	EventType string          `json:"event_type"`
	Actee     string          `json:"actee"`
	ActeeType string          `json:"actee_type"`
	ActeeName string          `json:"actee_name"`
	ActorName string          `json:"actor_name"`
	OrgGUID   string          `json:"organization_guid"`
	SpaceGUID string          `json:"space_guid"`
	CreatedAt time.Time       `json:"created_at"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// requestMetadata covers the two payload shapes Cloud Controller has used for
// service-plan references: a v3 relationship block and a flat v2-style field.
type requestMetadata struct {
	Request struct {
		ServicePlanGUID string `json:"service_plan_guid"`
		Relationships   struct {
			ServicePlan struct {
				Data *RelData `json:"data"`
			} `json:"service_plan"`
		} `json:"relationships"`
	} `json:"request"`
}

// RequestPlanGUID extracts the service-plan GUID from the event's own request
// metadata. The relationship-style reference wins over the flat field. It
// returns "" when neither shape is present or the metadata is not valid JSON;
// absence is expected and not an error.
func (e *AuditEvent) RequestPlanGUID() string {
	if len(e.Metadata) == 0 {
		return ""
	}
	var m requestMetadata
	if err := json.Unmarshal(e.Metadata, &m); err != nil {
		return ""
	}
	if d := m.Request.Relationships.ServicePlan.Data; d != nil && d.GUID != "" {
		return d.GUID
	}
	return m.Request.ServicePlanGUID
}
