// Package events carries registry change notifications from discovery and
// the network to interested subscribers, such as the websocket watch stream.
package events

import (
	"time"

	"github.com/itsneelabh/nodemesh/pkg/node"
)

// Type identifies what changed.
type Type string

const (
	NodeAnnounced  Type = "node.announced"  // first announcement created a node
	NodeRefreshed  Type = "node.refreshed"  // re-announcement heartbeated a known node
	NodeOffline    Type = "node.offline"    // prune moved a node offline
	NodeRegistered Type = "node.registered" // node added to a network
	RouteConnected Type = "route.connected"
)

// RouteInfo describes a route in an event.
type RouteInfo struct {
	SourceID  string  `json:"source_id"`
	TargetID  string  `json:"target_id"`
	LatencyMs float64 `json:"latency_ms"`
	Active    bool    `json:"active"`
}

// Event is a single registry change.
type Event struct {
	Type      Type                `json:"type"`
	NodeID    string              `json:"node_id,omitempty"`
	Entry     *node.RegistryEntry `json:"entry,omitempty"`
	Route     *RouteInfo          `json:"route,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// NodeEvent builds an event carrying a snapshot of n.
func NodeEvent(t Type, n *node.Node, at time.Time) Event {
	entry := n.RegistryEntry()
	return Event{
		Type:      t,
		NodeID:    n.ID(),
		Entry:     &entry,
		Timestamp: at,
	}
}

// Publisher receives events. Implementations must not block.
type Publisher interface {
	Publish(Event)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(Event)

func (f PublisherFunc) Publish(e Event) { f(e) }

// Discard drops every event.
var Discard Publisher = PublisherFunc(func(Event) {})
