package model

import "time"

// UsageEvent is one row destined for the billing database's
// service_usage_events table. The GUID is freshly generated; CreatedAt is
// copied from the source audit event so billing chronology is preserved.
type UsageEvent struct {
	GUID      string    `json:"guid"`
	CreatedAt time.Time `json:"created_at"`
	Data      UsageData `json:"raw_message"`
}

// UsageData is the raw_message payload of a service usage event. Field names
// follow the Cloud Controller usage-event format that the billing pipeline
// consumes. Plan, offering and broker fields are pointers: they are null for
// records whose enrichment could not be completed, and absent entirely for
// user-provided service instances.
type UsageData struct {
	State               State        `json:"state"`
	OrgGUID             string       `json:"org_guid"`
	SpaceGUID           string       `json:"space_guid"`
	SpaceName           string       `json:"space_name"`
	ServiceGUID         *string      `json:"service_guid"`
	ServiceLabel        *string      `json:"service_label"`
	ServicePlanGUID     *string      `json:"service_plan_guid"`
	ServicePlanName     *string      `json:"service_plan_name"`
	ServiceInstanceGUID string       `json:"service_instance_guid"`
	ServiceInstanceName string       `json:"service_instance_name"`
	ServiceInstanceType InstanceKind `json:"service_instance_type"`
	ServiceBrokerGUID   *string      `json:"service_broker_guid,omitempty"`
	ServiceBrokerName   *string      `json:"service_broker_name,omitempty"`
}
