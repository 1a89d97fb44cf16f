package model

// Catalog entities are read-only snapshots of the platform API's v3 resource
// listings. Relationships are typed so that a reference the API did not
// return is a nil pointer rather than a missing map key.

// RelData is the target of a to-one relationship.
type RelData struct {
	GUID string `json:"guid"`
}

// Rel is a to-one relationship block. Data is nil when the relationship is
// unset (for example a plan whose offering has been purged).
type Rel struct {
	Data *RelData `json:"data"`
}

// ServicePlan is a purchasable plan of a service offering.
type ServicePlan struct {
	GUID          string `json:"guid"`
	Name          string `json:"name"`
	Relationships struct {
		ServiceOffering Rel `json:"service_offering"`
	} `json:"relationships"`
}

// ServiceOffering is a service advertised by a broker.
type ServiceOffering struct {
	GUID          string `json:"guid"`
	Name          string `json:"name"`
	Relationships struct {
		ServiceBroker Rel `json:"service_broker"`
	} `json:"relationships"`
}

// ServiceBroker registers service offerings with the platform.
type ServiceBroker struct {
	GUID string `json:"guid"`
	Name string `json:"name"`
}

// ServiceInstance is a provisioned instance of a service plan.
type ServiceInstance struct {
	GUID          string `json:"guid"`
	Name          string `json:"name"`
	Relationships struct {
		ServicePlan Rel `json:"service_plan"`
		Space       Rel `json:"space"`
	} `json:"relationships"`
}

// Space is a platform space.
type Space struct {
	GUID          string `json:"guid"`
	Name          string `json:"name"`
	Relationships struct {
		Organization Rel `json:"organization"`
	} `json:"relationships"`
}
