package network

import (
	"context"
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

// Network is a node registry plus an append-only route list.
type Network struct {
	mu     sync.RWMutex
	routes []Route

	store     nodestore.Store
	clock     clock.Clock
	logger    logger.Logger
	publisher events.Publisher
	metrics   *telemetry.RegistryMetrics
	gauges    metric.Registration
}

// Option configures a Network.
type Option func(*Network)

// WithStore sets the node registry.
func WithStore(s nodestore.Store) Option {
	return func(n *Network) {
		if s != nil {
			n.store = s
		}
	}
}

// WithClock sets the clock used to timestamp events.
func WithClock(c clock.Clock) Option {
	return func(n *Network) {
		if c != nil {
			n.clock = c
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(n *Network) {
		if l != nil {
			n.logger = l
		}
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(n *Network) {
		if p != nil {
			n.publisher = p
		}
	}
}

func WithMetrics(m *telemetry.RegistryMetrics) Option {
	return func(n *Network) {
		n.metrics = m
	}
}

// New creates an empty network.
func New(opts ...Option) *Network {
	n := &Network{
		routes:    make([]Route, 0),
		store:     nodestore.NewMemory(),
		clock:     clock.New(),
		logger:    logger.NoOpLogger{},
		publisher: events.Discard,
	}
	for _, opt := range opts {
		opt(n)
	}

	if n.metrics != nil {
		reg, err := n.metrics.ObserveNodes("network", n.store.Len, n.onlineCount)
		if err != nil {
			n.logger.Warn("Failed to register network gauges", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			n.gauges = reg
		}
	}
	return n
}

// Close releases metric callbacks.
func (n *Network) Close() error {
	if n.gauges == nil {
		return nil
	}
	return n.gauges.Unregister()
}

// RegisterNode adds nd under its ID. It fails with core.ErrDuplicateNode if
// the ID is taken and with core.ErrNilNode for a nil node, leaving the
// registry unchanged.
func (n *Network) RegisterNode(ctx context.Context, nd *node.Node) error {
	if nd == nil {
		err := core.NewMeshError("Network.RegisterNode", core.KindNode, core.ErrNilNode)
		n.metrics.RecordRegistration(ctx, err)
		return err
	}

	ctx, span := otel.Tracer(telemetry.TracerNetwork).Start(ctx, "Network.RegisterNode",
		trace.WithAttributes(
			attribute.String("node.id", nd.ID()),
			attribute.String("node.organ", nd.Organ()),
		),
	)
	defer span.End()

	n.mu.Lock()
	err := n.store.Add(nd)
	n.mu.Unlock()

	n.metrics.RecordRegistration(ctx, err)
	if err != nil {
		telemetry.RecordError(span, err, "node already registered")
		n.logger.Warn("Node registration rejected", telemetry.EnrichLogFields(ctx, map[string]interface{}{
			"node_id": nd.ID(),
			"error":   err.Error(),
		}))
		return err
	}

	n.logger.Info("Node registered", telemetry.EnrichLogFields(ctx, map[string]interface{}{
		"node_id":  nd.ID(),
		"organ":    nd.Organ(),
		"endpoint": nd.Endpoint(),
	}))
	n.publisher.Publish(events.NodeEvent(events.NodeRegistered, nd, n.clock.Now()))
	return nil
}

// Connect appends an active route from source to target. Both IDs must be
// registered; otherwise it fails with core.ErrUnknownNode and no route is
// added.
func (n *Network) Connect(ctx context.Context, source, target string, latencyMs float64) (Route, error) {
	ctx, span := otel.Tracer(telemetry.TracerNetwork).Start(ctx, "Network.Connect",
		trace.WithAttributes(
			attribute.String("route.source", source),
			attribute.String("route.target", target),
			attribute.Float64("route.latency_ms", latencyMs),
		),
	)
	defer span.End()

	n.mu.Lock()
	for _, id := range []string{source, target} {
		if _, ok := n.store.Get(id); !ok {
			n.mu.Unlock()
			err := core.NewEntityError("Network.Connect", core.KindRoute, id, core.ErrUnknownNode)
			telemetry.RecordError(span, err, "unknown route endpoint")
			n.logger.Warn("Route rejected", telemetry.EnrichLogFields(ctx, map[string]interface{}{
				"source_id": source,
				"target_id": target,
				"missing":   id,
			}))
			return Route{}, err
		}
	}
	route := Route{
		SourceID:  source,
		TargetID:  target,
		LatencyMs: latencyMs,
		Active:    true,
	}
	n.routes = append(n.routes, route)
	n.mu.Unlock()

	n.logger.Info("Route connected", telemetry.EnrichLogFields(ctx, map[string]interface{}{
		"source_id":  source,
		"target_id":  target,
		"latency_ms": latencyMs,
	}))
	n.metrics.RecordRoute(ctx)
	n.publisher.Publish(events.Event{
		Type:      events.RouteConnected,
		Route:     route.info(),
		Timestamp: n.clock.Now(),
	})
	return route, nil
}

// FindNodesByCapability returns online nodes that have the capability, in
// registration order.
func (n *Network) FindNodesByCapability(ctx context.Context, capability string) []*node.Node {
	_, span := otel.Tracer(telemetry.TracerNetwork).Start(ctx, "Network.FindNodesByCapability",
		trace.WithAttributes(attribute.String("capability", capability)),
	)
	defer span.End()

	n.mu.RLock()
	defer n.mu.RUnlock()

	found := make([]*node.Node, 0)
	for _, nd := range n.store.List() {
		if nd.IsOnline() && nd.HasCapability(capability) {
			found = append(found, nd)
		}
	}
	span.SetAttributes(attribute.Int("nodes.count", len(found)))
	return found
}

// GetNode returns the live node registered under id.
func (n *Network) GetNode(id string) (*node.Node, error) {
	nd, ok := n.store.Get(id)
	if !ok {
		return nil, core.NewEntityError("Network.GetNode", core.KindNode, id, core.ErrUnknownNode)
	}
	return nd, nil
}

// TopologySummary counts nodes, routes and active routes, and how many nodes
// hold each status.
func (n *Network) TopologySummary(ctx context.Context) TopologySummary {
	_, span := otel.Tracer(telemetry.TracerNetwork).Start(ctx, "Network.TopologySummary")
	defer span.End()

	n.mu.RLock()
	defer n.mu.RUnlock()

	nodes := n.store.List()
	summary := TopologySummary{
		TotalNodes:         len(nodes),
		TotalRoutes:        len(n.routes),
		StatusDistribution: make(map[string]int),
	}
	for _, r := range n.routes {
		if r.Active {
			summary.ActiveRoutes++
		}
	}
	for _, nd := range nodes {
		summary.StatusDistribution[nd.Status().String()]++
	}

	span.SetAttributes(
		attribute.Int("topology.nodes", summary.TotalNodes),
		attribute.Int("topology.routes", summary.TotalRoutes),
	)
	return summary
}

// NodeIDs returns registered IDs in registration order.
func (n *Network) NodeIDs() []string {
	return n.store.IDs()
}

// Nodes returns registered nodes in registration order.
func (n *Network) Nodes() []*node.Node {
	return n.store.List()
}

// Entries returns registry entries for all registered nodes.
func (n *Network) Entries() []node.RegistryEntry {
	nodes := n.store.List()
	entries := make([]node.RegistryEntry, len(nodes))
	for i, nd := range nodes {
		entries[i] = nd.RegistryEntry()
	}
	return entries
}

// Routes returns a copy of the route list in creation order.
func (n *Network) Routes() []Route {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]Route, len(n.routes))
	copy(out, n.routes)
	return out
}

func (n *Network) onlineCount() int {
	count := 0
	for _, nd := range n.store.List() {
		if nd.IsOnline() {
			count++
		}
	}
	return count
}
