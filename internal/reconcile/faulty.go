package reconcile

import "github.com/alphagov/paas-billing-backfill/internal/model"

// FaultySet accumulates audit events whose plan reference could not be
// recovered from any source. Entries are de-duplicated by event GUID and
// kept in insertion order for the end-of-run report.
type FaultySet struct {
	seen    map[string]bool
	records []*model.AuditEvent
}

// NewFaultySet creates an empty set.
func NewFaultySet() *FaultySet {
	return &FaultySet{seen: make(map[string]bool)}
}

// Add records the event unless it is already present.
func (s *FaultySet) Add(ev *model.AuditEvent) {
	if s.seen[ev.GUID] {
		return
	}
	s.seen[ev.GUID] = true
	s.records = append(s.records, ev)
}

// Len returns the number of distinct faulty events.
func (s *FaultySet) Len() int {
	return len(s.records)
}

// Records returns the distinct faulty events in insertion order.
func (s *FaultySet) Records() []*model.AuditEvent {
	return s.records
}
