package discover

import (
	"sync"
)

// Aggregator folds hostFound events into a stable, deduplicated host
// list keyed by host:port. The merge is commutative: for any set of
// observations the final list is the same regardless of arrival order,
// which the session's interleaved sources require.
type Aggregator struct {
	mu    sync.Mutex
	hosts map[string]*DiscoveredHost
	order []string
}

// NewAggregator creates an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{hosts: make(map[string]*DiscoveredHost)}
}

// Apply folds a single event into the aggregate. Only hostFound events
// change the set; Apply reports whether the host list changed.
func (a *Aggregator) Apply(ev Event) bool {
	if ev.Kind != EventHostFound || ev.Host == nil {
		return false
	}
	a.Upsert(*ev.Host)
	return true
}

// Upsert merges one observation into the aggregate.
//
// Merge rules for an existing key: sources union, lastSeenAt takes the
// later timestamp, a present latency wins over an absent or stale one,
// and a generic fallback name never replaces a real display name.
func (a *Aggregator) Upsert(observed DiscoveredHost) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := observed.Key()
	existing, ok := a.hosts[key]
	if !ok {
		record := observed
		record.Sources = append([]Source(nil), observed.Sources...)
		a.hosts[key] = &record
		a.order = append(a.order, key)
		return
	}

	for _, src := range observed.Sources {
		if !existing.HasSource(src) {
			existing.Sources = append(existing.Sources, src)
		}
	}
	if observed.LastSeenAt.After(existing.LastSeenAt) {
		existing.LastSeenAt = observed.LastSeenAt
	}
	if observed.LatencyMs > 0 {
		existing.LatencyMs = observed.LatencyMs
	}
	if observed.MacAddress != "" {
		existing.MacAddress = observed.MacAddress
	}
	if observed.Manufacturer != "" {
		existing.Manufacturer = observed.Manufacturer
	}
	if !observed.genericName() || existing.genericName() {
		if observed.DisplayName != "" {
			existing.DisplayName = observed.DisplayName
		}
	}
}

// Hosts returns a copy of the aggregate in first-seen order.
func (a *Aggregator) Hosts() []DiscoveredHost {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]DiscoveredHost, 0, len(a.order))
	for _, key := range a.order {
		if record, ok := a.hosts[key]; ok {
			host := *record
			host.Sources = append([]Source(nil), record.Sources...)
			out = append(out, host)
		}
	}
	return out
}

// Len reports the number of distinct hosts seen so far.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.hosts)
}

// Reset clears the aggregate, typically on rescan.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hosts = make(map[string]*DiscoveredHost)
	a.order = nil
}
