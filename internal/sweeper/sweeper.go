// Package sweeper runs registry maintenance on an interval: it prunes expired
// announcements and, when a mirror is configured, exports the registry.
package sweeper

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/itsneelabh/nodemesh/core"
	"github.com/itsneelabh/nodemesh/pkg/logger"
	"github.com/itsneelabh/nodemesh/pkg/mirror"
	"github.com/itsneelabh/nodemesh/pkg/network"
	"github.com/itsneelabh/nodemesh/pkg/node"
)

// Discovery is the part of discovery.Service the sweeper drives.
type Discovery interface {
	PruneExpired(ctx context.Context) int
	Entries() []node.RegistryEntry
}

// Topology is the part of network.Network the sweeper exports.
type Topology interface {
	Entries() []node.RegistryEntry
	TopologySummary(ctx context.Context) network.TopologySummary
}

// Result describes one sweep.
type Result struct {
	Pruned    int
	Published int
	MirrorErr error
}

// Sweeper periodically prunes a discovery service.
type Sweeper struct {
	discovery Discovery
	topology  Topology
	mirror    mirror.Mirror
	interval  time.Duration
	clock     clock.Clock
	logger    logger.Logger

	sweeps atomic.Uint64
	pruned atomic.Uint64
}

type Option func(*Sweeper)

// WithInterval sets the time between sweeps.
func WithInterval(d time.Duration) Option {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithTopology adds a network whose nodes and summary are exported.
func WithTopology(t Topology) Option {
	return func(s *Sweeper) {
		s.topology = t
	}
}

// WithMirror enables export after each sweep.
func WithMirror(m mirror.Mirror) Option {
	return func(s *Sweeper) {
		s.mirror = m
	}
}

func WithClock(c clock.Clock) Option {
	return func(s *Sweeper) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(s *Sweeper) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a sweeper for d.
func New(d Discovery, opts ...Option) *Sweeper {
	s := &Sweeper{
		discovery: d,
		interval:  core.DefaultPruneInterval,
		clock:     clock.New(),
		logger:    logger.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := s.clock.Ticker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Sweeper started", map[string]interface{}{
		"interval": s.interval.String(),
		"mirror":   s.mirror != nil,
	})

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Sweeper stopped", map[string]interface{}{
				"sweeps": s.sweeps.Load(),
				"pruned": s.pruned.Load(),
			})
			return nil
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one prune and export pass.
func (s *Sweeper) Sweep(ctx context.Context) Result {
	var res Result

	res.Pruned = s.discovery.PruneExpired(ctx)
	s.sweeps.Add(1)
	s.pruned.Add(uint64(res.Pruned))
	if res.Pruned > 0 {
		s.logger.Info("Pruned expired nodes", map[string]interface{}{
			"pruned": res.Pruned,
		})
	}

	if s.mirror == nil {
		return res
	}

	entries := s.entries()
	if err := s.mirror.PublishEntries(ctx, entries); err != nil {
		res.MirrorErr = err
	} else {
		res.Published = len(entries)
	}
	if s.topology != nil && res.MirrorErr == nil {
		res.MirrorErr = s.mirror.PublishTopology(ctx, s.topology.TopologySummary(ctx))
	}

	if res.MirrorErr != nil {
		s.logger.Warn("Registry export failed", map[string]interface{}{
			"error":     res.MirrorErr.Error(),
			"retryable": core.IsRetryable(res.MirrorErr),
		})
	}
	return res
}

// entries merges discovery and network entries by node ID, discovery first.
func (s *Sweeper) entries() []node.RegistryEntry {
	entries := s.discovery.Entries()
	if s.topology == nil {
		return entries
	}

	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		seen[e.NodeID] = struct{}{}
	}
	for _, e := range s.topology.Entries() {
		if _, ok := seen[e.NodeID]; !ok {
			entries = append(entries, e)
			seen[e.NodeID] = struct{}{}
		}
	}
	return entries
}

// Stats returns the number of sweeps run and nodes pruned so far.
func (s *Sweeper) Stats() (sweeps, pruned uint64) {
	return s.sweeps.Load(), s.pruned.Load()
}
