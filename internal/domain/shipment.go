package domain

import (
	"sort"
	"time"
)

// ShipmentPair is one (subscription, attempt) unit within a ShipmentInfo,
// carrying enough identity to resolve the persistent attempt later and the
// already-serialized payload bytes — self-sufficient, no open unit of work
// or live persistent reference required to act on it.
type ShipmentPair struct {
	SiteID         string
	SubscriptionID string
	AttemptID      string

	URL         string
	Dialect     *Dialect
	PayloadData []byte

	// Populated by the engine after the HTTP exchange completes.
	TransportError string
	Request        *RequestRecord
	Response       *ResponseRecord
}

// ShipmentInfo is an opaque parcel produced at commit-prepare time,
// self-contained: once created, it needs no open unit of work or live
// persistent reference to act on it.
type ShipmentInfo struct {
	SiteID    string
	CreatedAt time.Time
	Pairs     []*ShipmentPair
}

// SortedByURL returns pairs sorted by destination URL, to encourage HTTP
// keep-alive reuse across a shipment (spec §4.8.1).
func (s *ShipmentInfo) SortedByURL() []*ShipmentPair {
	sorted := make([]*ShipmentPair, len(s.Pairs))
	copy(sorted, s.Pairs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].URL < sorted[j].URL })
	return sorted
}
