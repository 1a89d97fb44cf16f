package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRequestPlanGUID(t *testing.T) {
	for _, tc := range []struct {
		name     string
		metadata string
		want     string
	}{
		{
			name:     "RelationshipShape",
			metadata: `{"request":{"relationships":{"service_plan":{"data":{"guid":"plan-rel"}}}}}`,
			want:     "plan-rel",
		},
		{
			name:     "FlatShape",
			metadata: `{"request":{"service_plan_guid":"plan-flat"}}`,
			want:     "plan-flat",
		},
		{
			name: "RelationshipWinsOverFlat",
			metadata: `{"request":{"service_plan_guid":"plan-flat",` +
				`"relationships":{"service_plan":{"data":{"guid":"plan-rel"}}}}}`,
			want: "plan-rel",
		},
		{
			name:     "NullRelationshipData",
			metadata: `{"request":{"relationships":{"service_plan":{"data":null}}}}`,
			want:     "",
		},
		{
			name:     "NoPlanReference",
			metadata: `{"request":{"name":"my-db"}}`,
			want:     "",
		},
		{
			name:     "EmptyMetadata",
			metadata: "",
			want:     "",
		},
		{
			name:     "MalformedMetadata",
			metadata: `{"request":`,
			want:     "",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ev := &AuditEvent{Metadata: json.RawMessage(tc.metadata)}
			if got := ev.RequestPlanGUID(); got != tc.want {
				t.Errorf("RequestPlanGUID() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestStateIsValid(t *testing.T) {
	for _, s := range []State{StateCreated, StateUpdated, StateDeleted} {
		if !s.IsValid() {
			t.Errorf("%s.IsValid() = false, want true", s)
		}
	}
	if State("STARTED").IsValid() {
		t.Error(`State("STARTED").IsValid() = true, want false`)
	}
}

func TestInstanceKindIsValid(t *testing.T) {
	for _, k := range []InstanceKind{KindManaged, KindUserProvided} {
		if !k.IsValid() {
			t.Errorf("%s.IsValid() = false, want true", k)
		}
	}
	if InstanceKind("service_binding").IsValid() {
		t.Error(`InstanceKind("service_binding").IsValid() = true, want false`)
	}
}

func TestUsageDataJSON(t *testing.T) {
	plan := "plan-1"
	managed, err := json.Marshal(UsageData{
		State:               StateCreated,
		ServicePlanGUID:     &plan,
		ServiceInstanceType: KindManaged,
	})
	if err != nil {
		t.Fatalf("marshal managed: %v", err)
	}
	if !strings.Contains(string(managed), `"service_plan_guid":"plan-1"`) {
		t.Errorf("managed payload missing plan guid: %s", managed)
	}

	userProvided, err := json.Marshal(UsageData{
		State:               StateDeleted,
		ServiceInstanceType: KindUserProvided,
	})
	if err != nil {
		t.Fatalf("marshal user-provided: %v", err)
	}
	// Plan and offering fields serialize as null; broker fields are omitted.
	if !strings.Contains(string(userProvided), `"service_plan_guid":null`) {
		t.Errorf("user-provided payload should carry null plan guid: %s", userProvided)
	}
	if strings.Contains(string(userProvided), "service_broker_guid") {
		t.Errorf("user-provided payload should omit broker fields: %s", userProvided)
	}
}
