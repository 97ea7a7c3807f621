package network

import "github.com/itsneelabh/nodemesh/pkg/events"

// Route is a directed link between two registered nodes.
type Route struct {
	SourceID  string  `json:"source_id"`
	TargetID  string  `json:"target_id"`
	LatencyMs float64 `json:"latency_ms"`
	Active    bool    `json:"active"`
}

func (r Route) info() *events.RouteInfo {
	return &events.RouteInfo{
		SourceID:  r.SourceID,
		TargetID:  r.TargetID,
		LatencyMs: r.LatencyMs,
		Active:    r.Active,
	}
}

// TopologySummary is an aggregate view of the network. StatusDistribution
// only contains statuses held by at least one node.
type TopologySummary struct {
	TotalNodes         int            `json:"total_nodes"`
	TotalRoutes        int            `json:"total_routes"`
	ActiveRoutes       int            `json:"active_routes"`
	StatusDistribution map[string]int `json:"status_distribution"`
}
