package catalog

import (
	"context"
	"sync"

	"github.com/alphagov/paas-billing-backfill/internal/model"
)

// Cache lazily fetches each catalog collection at most once and answers GUID
// lookups from memory for the rest of the run. Construct a fresh Cache per
// run; it holds no state across runs. A fetch failure is returned to the
// caller and is fatal for the run (no catalog, no reconciliation).
//
// The reference run loop is single-threaded, but the mutex makes the cache
// safe for a worker-pool variant.
type Cache struct {
	client *Client

	mu        sync.Mutex
	plans     *collection[model.ServicePlan]
	offerings *collection[model.ServiceOffering]
	brokers   *collection[model.ServiceBroker]
	instances *collection[model.ServiceInstance]
	spaces    *collection[model.Space]
}

// NewCache creates an empty cache over the given client.
func NewCache(client *Client) *Cache {
	return &Cache{client: client}
}

// collection holds one fetched listing in API order plus a GUID index.
type collection[T any] struct {
	items  []T
	byGUID map[string]T
}

func index[T any](items []T, guid func(T) string) *collection[T] {
	c := &collection[T]{items: items, byGUID: make(map[string]T, len(items))}
	for _, item := range items {
		c.byGUID[guid(item)] = item
	}
	return c
}

func (c *Cache) loadPlans(ctx context.Context) (*collection[model.ServicePlan], error) {
	if c.plans == nil {
		items, err := listAll[model.ServicePlan](ctx, c.client, "/v3/service_plans")
		if err != nil {
			return nil, err
		}
		c.plans = index(items, func(p model.ServicePlan) string { return p.GUID })
	}
	return c.plans, nil
}

func (c *Cache) loadOfferings(ctx context.Context) (*collection[model.ServiceOffering], error) {
	if c.offerings == nil {
		items, err := listAll[model.ServiceOffering](ctx, c.client, "/v3/service_offerings")
		if err != nil {
			return nil, err
		}
		c.offerings = index(items, func(o model.ServiceOffering) string { return o.GUID })
	}
	return c.offerings, nil
}

func (c *Cache) loadBrokers(ctx context.Context) (*collection[model.ServiceBroker], error) {
	if c.brokers == nil {
		items, err := listAll[model.ServiceBroker](ctx, c.client, "/v3/service_brokers")
		if err != nil {
			return nil, err
		}
		c.brokers = index(items, func(b model.ServiceBroker) string { return b.GUID })
	}
	return c.brokers, nil
}

func (c *Cache) loadInstances(ctx context.Context) (*collection[model.ServiceInstance], error) {
	if c.instances == nil {
		items, err := listAll[model.ServiceInstance](ctx, c.client, "/v3/service_instances")
		if err != nil {
			return nil, err
		}
		c.instances = index(items, func(i model.ServiceInstance) string { return i.GUID })
	}
	return c.instances, nil
}

func (c *Cache) loadSpaces(ctx context.Context) (*collection[model.Space], error) {
	if c.spaces == nil {
		items, err := listAll[model.Space](ctx, c.client, "/v3/spaces")
		if err != nil {
			return nil, err
		}
		c.spaces = index(items, func(s model.Space) string { return s.GUID })
	}
	return c.spaces, nil
}

// Plans returns every service plan in API order.
func (c *Cache) Plans(ctx context.Context) ([]model.ServicePlan, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	col, err := c.loadPlans(ctx)
	if err != nil {
		return nil, err
	}
	return col.items, nil
}

// Plan looks up a service plan by GUID, fetching the collection on first use.
func (c *Cache) Plan(ctx context.Context, guid string) (model.ServicePlan, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	col, err := c.loadPlans(ctx)
	if err != nil {
		return model.ServicePlan{}, false, err
	}
	p, ok := col.byGUID[guid]
	return p, ok, nil
}

// Offerings returns every service offering in API order.
func (c *Cache) Offerings(ctx context.Context) ([]model.ServiceOffering, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	col, err := c.loadOfferings(ctx)
	if err != nil {
		return nil, err
	}
	return col.items, nil
}

// Offering looks up a service offering by GUID.
func (c *Cache) Offering(ctx context.Context, guid string) (model.ServiceOffering, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	col, err := c.loadOfferings(ctx)
	if err != nil {
		return model.ServiceOffering{}, false, err
	}
	o, ok := col.byGUID[guid]
	return o, ok, nil
}

// Brokers returns every service broker in API order.
func (c *Cache) Brokers(ctx context.Context) ([]model.ServiceBroker, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	col, err := c.loadBrokers(ctx)
	if err != nil {
		return nil, err
	}
	return col.items, nil
}

// Broker looks up a service broker by GUID.
func (c *Cache) Broker(ctx context.Context, guid string) (model.ServiceBroker, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	col, err := c.loadBrokers(ctx)
	if err != nil {
		return model.ServiceBroker{}, false, err
	}
	b, ok := col.byGUID[guid]
	return b, ok, nil
}

// ServiceInstances returns every service instance in API order.
func (c *Cache) ServiceInstances(ctx context.Context) ([]model.ServiceInstance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	col, err := c.loadInstances(ctx)
	if err != nil {
		return nil, err
	}
	return col.items, nil
}

// ServiceInstance looks up a service instance by GUID.
func (c *Cache) ServiceInstance(ctx context.Context, guid string) (model.ServiceInstance, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	col, err := c.loadInstances(ctx)
	if err != nil {
		return model.ServiceInstance{}, false, err
	}
	i, ok := col.byGUID[guid]
	return i, ok, nil
}

// Spaces returns every space in API order.
func (c *Cache) Spaces(ctx context.Context) ([]model.Space, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	col, err := c.loadSpaces(ctx)
	if err != nil {
		return nil, err
	}
	return col.items, nil
}

// Space looks up a space by GUID. A miss means the space has been deleted
// since the audit window; callers fall back to the audit trail for its name.
func (c *Cache) Space(ctx context.Context, guid string) (model.Space, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	col, err := c.loadSpaces(ctx)
	if err != nil {
		return model.Space{}, false, err
	}
	s, ok := col.byGUID[guid]
	return s, ok, nil
}
