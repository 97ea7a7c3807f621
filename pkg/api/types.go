package api

import (
	"github.com/itsneelabh/nodemesh/pkg/node"
)

// AnnounceRequest is the body of POST /api/v1/announce. A missing
// ttl_seconds uses the configured default TTL.
type AnnounceRequest struct {
	NodeID       string   `json:"node_id"`
	Organ        string   `json:"organ"`
	Endpoint     string   `json:"endpoint"`
	Capabilities []string `json:"capabilities"`
	TTLSeconds   *int     `json:"ttl_seconds,omitempty"`
}

// RegisterNodeRequest is the body of POST /api/v1/network/nodes.
// Online heartbeats the node before it is registered.
type RegisterNodeRequest struct {
	NodeID       string                 `json:"node_id"`
	Organ        string                 `json:"organ"`
	Endpoint     string                 `json:"endpoint"`
	Capabilities []node.Capability      `json:"capabilities"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	Online       bool                   `json:"online"`
}

// ConnectRequest is the body of POST /api/v1/network/routes.
type ConnectRequest struct {
	SourceID  string  `json:"source_id"`
	TargetID  string  `json:"target_id"`
	LatencyMs float64 `json:"latency_ms"`
}

// PruneResponse is returned by POST /api/v1/prune.
type PruneResponse struct {
	Pruned int `json:"pruned"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status       string `json:"status"`
	KnownNodes   int    `json:"known_nodes"`
	ActiveNodes  int    `json:"active_nodes"`
	NetworkNodes int    `json:"network_nodes"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func entries(nodes []*node.Node) []node.RegistryEntry {
	out := make([]node.RegistryEntry, len(nodes))
	for i, n := range nodes {
		out[i] = n.RegistryEntry()
	}
	return out
}
