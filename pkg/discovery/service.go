package discovery

import (
	"context"
	"sort"
	"sync"

	"github.com/benbjohnson/clock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/itsneelabh/nodemesh/core"
	"github.com/itsneelabh/nodemesh/pkg/events"
	"github.com/itsneelabh/nodemesh/pkg/logger"
	"github.com/itsneelabh/nodemesh/pkg/node"
	"github.com/itsneelabh/nodemesh/pkg/nodestore"
	"github.com/itsneelabh/nodemesh/pkg/telemetry"
)

// Service tracks announcements and the nodes they created.
type Service struct {
	mu            sync.RWMutex
	announcements map[string]Announcement

	store     nodestore.Store
	clock     clock.Clock
	logger    logger.Logger
	publisher events.Publisher
	metrics   *telemetry.RegistryMetrics
	gauges    metric.Registration
}

// Option configures a Service.
type Option func(*Service)

// WithStore sets the node registry. Passing the same store to a
// network.Network makes both share live nodes.
func WithStore(s nodestore.Store) Option {
	return func(svc *Service) {
		if s != nil {
			svc.store = s
		}
	}
}

// WithClock sets the time source for heartbeats and expiry.
func WithClock(c clock.Clock) Option {
	return func(svc *Service) {
		if c != nil {
			svc.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(svc *Service) {
		if l != nil {
			svc.logger = l
		}
	}
}

// WithPublisher sets where registry events are sent.
func WithPublisher(p events.Publisher) Option {
	return func(svc *Service) {
		if p != nil {
			svc.publisher = p
		}
	}
}

// WithMetrics enables metric recording.
func WithMetrics(m *telemetry.RegistryMetrics) Option {
	return func(svc *Service) {
		svc.metrics = m
	}
}

// New creates a discovery service with an empty private registry.
func New(opts ...Option) *Service {
	svc := &Service{
		announcements: make(map[string]Announcement),
		store:         nodestore.NewMemory(),
		clock:         clock.New(),
		logger:        logger.NoOpLogger{},
		publisher:     events.Discard,
	}
	for _, opt := range opts {
		opt(svc)
	}

	if svc.metrics != nil {
		reg, err := svc.metrics.ObserveNodes("discovery", svc.store.Len, svc.ActiveCount)
		if err != nil {
			svc.logger.Warn("Failed to register discovery gauges", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			svc.gauges = reg
		}
	}
	return svc
}

// Close releases metric callbacks. The registry itself stays usable.
func (s *Service) Close() error {
	if s.gauges == nil {
		return nil
	}
	return s.gauges.Unregister()
}

// Announce records a and returns the live node for a.NodeID.
//
// An unknown ID creates a node from the announcement, registers its
// capabilities at version "1.0" and heartbeats it online. A known ID only
// heartbeats the existing node. A zero Timestamp is stamped with the
// service clock.
func (s *Service) Announce(ctx context.Context, a Announcement) *node.Node {
	ctx, span := otel.Tracer(telemetry.TracerDiscovery).Start(ctx, "Discovery.Announce",
		trace.WithAttributes(
			attribute.String("node.id", a.NodeID),
			attribute.String("node.organ", a.Organ),
			attribute.Int("capabilities.count", len(a.Capabilities)),
			attribute.Int("announcement.ttl_seconds", a.TTLSeconds),
		),
	)
	defer span.End()

	if a.Timestamp.IsZero() {
		a.Timestamp = s.clock.Now()
	}
	a.Capabilities = append([]string(nil), a.Capabilities...)

	s.mu.Lock()
	s.announcements[a.NodeID] = a
	n, loaded := s.store.LoadOrAdd(a.NodeID, func() *node.Node {
		return s.buildNode(a)
	})
	if loaded {
		n.Heartbeat()
	}
	s.mu.Unlock()

	span.SetAttributes(attribute.Bool("node.created", !loaded))

	eventType := events.NodeAnnounced
	if loaded {
		eventType = events.NodeRefreshed
		s.logger.Debug("Node announcement refreshed", telemetry.EnrichLogFields(ctx, map[string]interface{}{
			"node_id": a.NodeID,
			"status":  n.Status().String(),
		}))
	} else {
		s.logger.Info("Node announced", telemetry.EnrichLogFields(ctx, map[string]interface{}{
			"node_id":      a.NodeID,
			"organ":        a.Organ,
			"endpoint":     a.Endpoint,
			"capabilities": n.CapabilityNames(),
			"ttl_seconds":  a.TTLSeconds,
		}))
	}

	s.metrics.RecordAnnouncement(ctx, a.Organ, !loaded)
	s.publisher.Publish(events.NodeEvent(eventType, n, s.clock.Now()))
	return n
}

func (s *Service) buildNode(a Announcement) *node.Node {
	n := node.New(a.NodeID, a.Organ, a.Endpoint, node.WithClock(s.clock))
	for _, name := range a.Capabilities {
		if err := n.RegisterCapability(node.NewCapability(name, node.DefaultCapabilityVersion)); err != nil {
			s.logger.Debug("Skipping repeated capability in announcement", map[string]interface{}{
				"node_id":    a.NodeID,
				"capability": name,
			})
		}
	}
	n.Heartbeat()
	return n
}

// PeerFilter narrows FindPeers results.
type PeerFilter func(*node.Node) bool

// ByOrgan keeps nodes whose organ equals organ.
func ByOrgan(organ string) PeerFilter {
	return func(n *node.Node) bool {
		return n.Organ() == organ
	}
}

// ByCapability keeps nodes that declare capability.
func ByCapability(capability string) PeerFilter {
	return func(n *node.Node) bool {
		return n.HasCapability(capability)
	}
}

// FindPeers returns online nodes that pass every filter, in registration order.
func (s *Service) FindPeers(ctx context.Context, filters ...PeerFilter) []*node.Node {
	_, span := otel.Tracer(telemetry.TracerDiscovery).Start(ctx, "Discovery.FindPeers",
		trace.WithAttributes(attribute.Int("filters.count", len(filters))),
	)
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	peers := make([]*node.Node, 0)
next:
	for _, n := range s.store.List() {
		if !n.IsOnline() {
			continue
		}
		for _, keep := range filters {
			if !keep(n) {
				continue next
			}
		}
		peers = append(peers, n)
	}

	span.SetAttributes(attribute.Int("peers.count", len(peers)))
	return peers
}

// PruneExpired drops expired announcements and takes their nodes offline.
// It returns how many nodes went offline. Without new announcements a second
// call returns 0.
func (s *Service) PruneExpired(ctx context.Context) int {
	ctx, span := otel.Tracer(telemetry.TracerDiscovery).Start(ctx, "Discovery.PruneExpired")
	defer span.End()

	now := s.clock.Now()

	s.mu.Lock()
	expired := make([]string, 0)
	for id, a := range s.announcements {
		if a.ExpiredAt(now) {
			expired = append(expired, id)
		}
	}
	sort.Strings(expired)

	offline := make([]*node.Node, 0, len(expired))
	for _, id := range expired {
		delete(s.announcements, id)
		if n, ok := s.store.Get(id); ok {
			n.GoOffline()
			offline = append(offline, n)
		}
	}
	s.mu.Unlock()

	for _, n := range offline {
		s.logger.Info("Node announcement expired", telemetry.EnrichLogFields(ctx, map[string]interface{}{
			"node_id": n.ID(),
			"organ":   n.Organ(),
		}))
		s.publisher.Publish(events.NodeEvent(events.NodeOffline, n, now))
	}

	span.SetAttributes(attribute.Int("pruned.count", len(offline)))
	s.metrics.RecordPruned(ctx, len(offline))
	return len(offline)
}

// ActiveCount returns the number of known nodes that are online.
func (s *Service) ActiveCount() int {
	count := 0
	for _, n := range s.store.List() {
		if n.IsOnline() {
			count++
		}
	}
	return count
}

// KnownCount returns the number of known nodes, whatever their status.
func (s *Service) KnownCount() int {
	return s.store.Len()
}

// Node returns the known node registered under id.
func (s *Service) Node(id string) (*node.Node, error) {
	n, ok := s.store.Get(id)
	if !ok {
		return nil, core.NewEntityError("Discovery.Node", core.KindNode, id, core.ErrUnknownNode)
	}
	return n, nil
}

// Nodes returns all known nodes in registration order.
func (s *Service) Nodes() []*node.Node {
	return s.store.List()
}

// Entries returns registry entries for all known nodes.
func (s *Service) Entries() []node.RegistryEntry {
	nodes := s.store.List()
	entries := make([]node.RegistryEntry, len(nodes))
	for i, n := range nodes {
		entries[i] = n.RegistryEntry()
	}
	return entries
}

// Announcement returns the current announcement for id, if any.
func (s *Service) Announcement(id string) (Announcement, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.announcements[id]
	return a, ok
}
