package discover

import (
	"errors"
	"net"
	"strconv"
	"time"
)

// Source identifies which discovery mechanism produced an observation.
type Source string

const (
	// SourceServiceDiscovery marks hosts found via mDNS/DNS-SD browsing.
	SourceServiceDiscovery Source = "serviceDiscovery"
	// SourceActiveProbe marks hosts found via the TCP subnet sweep.
	SourceActiveProbe Source = "activeProbe"
)

// Status represents the lifecycle state of the discovery manager.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusScanning Status = "scanning"
	StatusFinished Status = "finished"
)

// EventKind discriminates the variants of Event.
type EventKind string

const (
	EventScanningStarted  EventKind = "scanningStarted"
	EventSourceStarted    EventKind = "sourceStarted"
	EventSourceFinished   EventKind = "sourceFinished"
	EventHostFound        EventKind = "hostFound"
	EventPermissionDenied EventKind = "permissionDenied"
	EventFailed           EventKind = "failed"
	EventScanningFinished EventKind = "scanningFinished"
)

// Event is one entry in the merged discovery stream. Source is set for
// sourceStarted/sourceFinished, Host for hostFound and Message for failed.
type Event struct {
	Kind    EventKind       `json:"kind"`
	Source  Source          `json:"source,omitempty"`
	Host    *DiscoveredHost `json:"host,omitempty"`
	Message string          `json:"message,omitempty"`
}

// DiscoveredHost is one candidate SSH endpoint observed during a session.
type DiscoveredHost struct {
	DisplayName  string    `json:"displayName"`
	Host         string    `json:"host"`
	Port         int       `json:"port"`
	Sources      []Source  `json:"sources"`
	LatencyMs    int       `json:"latencyMs,omitempty"`
	MacAddress   string    `json:"macAddress,omitempty"`
	Manufacturer string    `json:"manufacturer,omitempty"`
	LastSeenAt   time.Time `json:"lastSeenAt"`
}

// Key returns the identity used for deduplication across sources.
func (h DiscoveredHost) Key() string {
	return net.JoinHostPort(h.Host, strconv.Itoa(h.Port))
}

// HasSource reports whether the host was observed by the given source.
func (h DiscoveredHost) HasSource(s Source) bool {
	for _, have := range h.Sources {
		if have == s {
			return true
		}
	}
	return false
}

// genericName reports whether the display name carries no information
// beyond the address itself. Such names must never overwrite a real one
// during aggregation.
func (h DiscoveredHost) genericName() bool {
	return h.DisplayName == "" || h.DisplayName == h.Host
}

var (
	// ErrPermissionDenied indicates the platform refused local-network
	// service browsing. Surfaced as a permissionDenied event, not a failure.
	ErrPermissionDenied = errors.New("local network browsing not permitted")
)
