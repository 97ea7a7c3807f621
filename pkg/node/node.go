package node

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/itsneelabh/nodemesh/core"
)

// Node is a registry participant. Identity is the node ID; organ, endpoint and
// metadata are fixed at construction. Capabilities, status and heartbeat are
// mutable and guarded by the node's own lock, so a node shared between
// registries can be read while another goroutine mutates it.
type Node struct {
	id       string
	organ    string
	endpoint string
	metadata map[string]interface{}
	clock    clock.Clock

	mu            sync.RWMutex
	capabilities  []Capability
	status        Status
	lastHeartbeat time.Time
	heartbeated   bool
}

// Option configures a Node at construction.
type Option func(*Node)

// WithClock sets the time source used for heartbeats.
func WithClock(c clock.Clock) Option {
	return func(n *Node) {
		if c != nil {
			n.clock = c
		}
	}
}

// WithMetadata attaches informational metadata. The map is copied.
func WithMetadata(md map[string]interface{}) Option {
	return func(n *Node) {
		n.metadata = copyMetadata(md)
	}
}

// New creates a node in StatusInitializing with no capabilities and no heartbeat.
// Neither organ nor endpoint is validated.
func New(id, organ, endpoint string, opts ...Option) *Node {
	n := &Node{
		id:       id,
		organ:    organ,
		endpoint: endpoint,
		metadata: map[string]interface{}{},
		clock:    clock.New(),
		status:   StatusInitializing,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Node) ID() string       { return n.id }
func (n *Node) Organ() string    { return n.organ }
func (n *Node) Endpoint() string { return n.endpoint }

// Metadata returns a copy of the node's metadata.
func (n *Node) Metadata() map[string]interface{} {
	return copyMetadata(n.metadata)
}

// Status returns the current status.
func (n *Node) Status() Status {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.status
}

// IsOnline reports whether the status is exactly StatusOnline.
func (n *Node) IsOnline() bool {
	return n.Status() == StatusOnline
}

// LastHeartbeat returns the time of the latest heartbeat; ok is false until
// the first one.
func (n *Node) LastHeartbeat() (t time.Time, ok bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.lastHeartbeat, n.heartbeated
}

// Capabilities returns a copy of the capabilities in registration order.
func (n *Node) Capabilities() []Capability {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]Capability, len(n.capabilities))
	for i, c := range n.capabilities {
		out[i] = c.clone()
	}
	return out
}

// CapabilityNames returns capability names in registration order.
func (n *Node) CapabilityNames() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.capabilityNamesLocked()
}

func (n *Node) capabilityNamesLocked() []string {
	names := make([]string, 0, len(n.capabilities))
	for _, c := range n.capabilities {
		names = append(names, c.Name)
	}
	return names
}

// RegisterCapability appends c. An empty protocol defaults to DefaultProtocol.
// It fails with core.ErrDuplicateCapability when a capability with the same
// name exists; the capability list is unchanged on failure.
func (n *Node) RegisterCapability(c Capability) error {
	if c.Protocol == "" {
		c.Protocol = DefaultProtocol
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	for _, existing := range n.capabilities {
		if existing.Name == c.Name {
			return &core.MeshError{
				Op:   "Node.RegisterCapability",
				Kind: core.KindCapability,
				ID:   n.id,
				Err:  core.ErrDuplicateCapability,
			}
		}
	}
	n.capabilities = append(n.capabilities, c.clone())
	return nil
}

// HasCapability reports whether a capability with exactly this name exists.
func (n *Node) HasCapability(name string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, c := range n.capabilities {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Heartbeat records a liveness signal. The first heartbeat of an initializing
// node brings it online; any other status is left alone.
func (n *Node) Heartbeat() {
	now := n.clock.Now()

	n.mu.Lock()
	defer n.mu.Unlock()

	n.lastHeartbeat = now
	n.heartbeated = true
	if n.status == StatusInitializing {
		n.status = StatusOnline
	}
}

// GoOffline marks the node offline from any status. Calling it again is a no-op.
func (n *Node) GoOffline() {
	n.mu.Lock()
	n.status = StatusOffline
	n.mu.Unlock()
}

// RegistryEntry is the public projection of a node.
// LastHeartbeat is RFC 3339 with nanoseconds, or null before the first heartbeat.
type RegistryEntry struct {
	NodeID        string   `json:"node_id"`
	Organ         string   `json:"organ"`
	Endpoint      string   `json:"endpoint"`
	Status        string   `json:"status"`
	Capabilities  []string `json:"capabilities"`
	LastHeartbeat *string  `json:"last_heartbeat"`
}

// RegistryEntry returns a consistent snapshot of the node.
func (n *Node) RegistryEntry() RegistryEntry {
	n.mu.RLock()
	defer n.mu.RUnlock()

	entry := RegistryEntry{
		NodeID:       n.id,
		Organ:        n.organ,
		Endpoint:     n.endpoint,
		Status:       n.status.String(),
		Capabilities: n.capabilityNamesLocked(),
	}
	if n.heartbeated {
		ts := n.lastHeartbeat.Format(time.RFC3339Nano)
		entry.LastHeartbeat = &ts
	}
	return entry
}

// MarshalJSON encodes the node as its registry entry.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.RegistryEntry())
}

func copyMetadata(md map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}
