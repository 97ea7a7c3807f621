// Package nodemesh is the entry point for embedding the registry.
//
// NewMesh builds a discovery service and a network. They keep separate
// registries unless WithSharedStore is given, in which case a node announced
// through discovery is the same *node.Node the network sees:
//
//	mesh := nodemesh.NewMesh(nodemesh.WithSharedStore())
//	n := mesh.Discovery.Announce(ctx, discovery.NewAnnouncement("n1", "taxis", "http://n1:8080", nil))
//	_, err := mesh.Network.GetNode("n1") // same node as n
//
// The subpackages can also be used directly.
package nodemesh

import (
	"errors"

	"github.com/benbjohnson/clock"

	"github.com/itsneelabh/nodemesh/pkg/discovery"
	"github.com/itsneelabh/nodemesh/pkg/events"
	"github.com/itsneelabh/nodemesh/pkg/logger"
	"github.com/itsneelabh/nodemesh/pkg/network"
	"github.com/itsneelabh/nodemesh/pkg/nodestore"
	"github.com/itsneelabh/nodemesh/pkg/telemetry"
)

// Mesh bundles a discovery service and a network.
type Mesh struct {
	Discovery *discovery.Service
	Network   *network.Network

	// Store is the registry both services share, or nil when they are
	// independent.
	Store nodestore.Store

	// Events is the bus both services publish to, or nil.
	Events *events.Bus
}

type meshOptions struct {
	store   nodestore.Store
	shared  bool
	clock   clock.Clock
	logger  logger.Logger
	bus     *events.Bus
	metrics *telemetry.RegistryMetrics
}

// MeshOption configures NewMesh.
type MeshOption func(*meshOptions)

// WithSharedStore makes discovery and the network share one in-memory
// registry.
func WithSharedStore() MeshOption {
	return func(o *meshOptions) {
		o.shared = true
	}
}

// WithStore shares s between discovery and the network.
func WithStore(s nodestore.Store) MeshOption {
	return func(o *meshOptions) {
		o.shared = true
		o.store = s
	}
}

func WithClock(c clock.Clock) MeshOption {
	return func(o *meshOptions) {
		o.clock = c
	}
}

func WithLogger(l logger.Logger) MeshOption {
	return func(o *meshOptions) {
		o.logger = l
	}
}

// WithEventBus publishes registry events from both services to bus.
func WithEventBus(bus *events.Bus) MeshOption {
	return func(o *meshOptions) {
		o.bus = bus
	}
}

func WithMetrics(m *telemetry.RegistryMetrics) MeshOption {
	return func(o *meshOptions) {
		o.metrics = m
	}
}

// NewMesh creates a mesh. Without WithSharedStore or WithStore the two
// services have independent registries.
func NewMesh(opts ...MeshOption) *Mesh {
	o := &meshOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.shared && o.store == nil {
		o.store = nodestore.NewMemory()
	}

	discoveryOpts := []discovery.Option{
		discovery.WithClock(o.clock),
		discovery.WithLogger(o.logger),
		discovery.WithMetrics(o.metrics),
	}
	networkOpts := []network.Option{
		network.WithClock(o.clock),
		network.WithLogger(o.logger),
		network.WithMetrics(o.metrics),
	}
	if o.store != nil {
		discoveryOpts = append(discoveryOpts, discovery.WithStore(o.store))
		networkOpts = append(networkOpts, network.WithStore(o.store))
	}
	if o.bus != nil {
		discoveryOpts = append(discoveryOpts, discovery.WithPublisher(o.bus))
		networkOpts = append(networkOpts, network.WithPublisher(o.bus))
	}

	return &Mesh{
		Discovery: discovery.New(discoveryOpts...),
		Network:   network.New(networkOpts...),
		Store:     o.store,
		Events:    o.bus,
	}
}

// Shared reports whether both services use the same registry.
func (m *Mesh) Shared() bool {
	return m.Store != nil
}

// Close releases metric callbacks held by both services.
func (m *Mesh) Close() error {
	return errors.Join(m.Discovery.Close(), m.Network.Close())
}
