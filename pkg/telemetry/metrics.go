package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RegistryMetrics records registry activity. A nil *RegistryMetrics is valid
// and records nothing, so components can hold one unconditionally.
type RegistryMetrics struct {
	meter         metric.Meter
	announcements metric.Int64Counter
	pruned        metric.Int64Counter
	registrations metric.Int64Counter
	routes        metric.Int64Counter
}

// NewRegistryMetrics creates the instruments on meter. A nil meter uses the
// global meter provider.
func NewRegistryMetrics(meter metric.Meter) (*RegistryMetrics, error) {
	if meter == nil {
		meter = otel.Meter(InstrumentationName)
	}

	announcements, err := meter.Int64Counter(
		"nodemesh.discovery.announcements",
		metric.WithDescription("Announcements accepted, by outcome"),
	)
	if err != nil {
		return nil, err
	}
	pruned, err := meter.Int64Counter(
		"nodemesh.discovery.pruned",
		metric.WithDescription("Nodes moved offline by expiry sweeps"),
	)
	if err != nil {
		return nil, err
	}
	registrations, err := meter.Int64Counter(
		"nodemesh.network.registrations",
		metric.WithDescription("Node registration attempts, by result"),
	)
	if err != nil {
		return nil, err
	}
	routes, err := meter.Int64Counter(
		"nodemesh.network.routes",
		metric.WithDescription("Routes created"),
	)
	if err != nil {
		return nil, err
	}

	return &RegistryMetrics{
		meter:         meter,
		announcements: announcements,
		pruned:        pruned,
		registrations: registrations,
		routes:        routes,
	}, nil
}

// RecordAnnouncement counts one announcement. created is false for refreshes.
func (m *RegistryMetrics) RecordAnnouncement(ctx context.Context, organ string, created bool) {
	if m == nil {
		return
	}
	outcome := "refreshed"
	if created {
		outcome = "created"
	}
	m.announcements.Add(ctx, 1, metric.WithAttributes(
		attribute.String("organ", organ),
		attribute.String("outcome", outcome),
	))
}

// RecordPruned counts nodes taken offline by one sweep.
func (m *RegistryMetrics) RecordPruned(ctx context.Context, count int) {
	if m == nil || count == 0 {
		return
	}
	m.pruned.Add(ctx, int64(count))
}

// RecordRegistration counts a network registration attempt.
func (m *RegistryMetrics) RecordRegistration(ctx context.Context, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.registrations.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordRoute counts a created route.
func (m *RegistryMetrics) RecordRoute(ctx context.Context) {
	if m == nil {
		return
	}
	m.routes.Add(ctx, 1)
}

// ObserveNodes registers gauges reporting known and online node counts.
// The callbacks run on every collection; the returned registration should be
// unregistered when the observed component goes away.
func (m *RegistryMetrics) ObserveNodes(scope string, known, online func() int) (metric.Registration, error) {
	if m == nil {
		return nil, errors.New("registry metrics not initialized")
	}

	knownGauge, err := m.meter.Int64ObservableGauge(
		"nodemesh.nodes.known",
		metric.WithDescription("Nodes in the registry"),
	)
	if err != nil {
		return nil, err
	}
	onlineGauge, err := m.meter.Int64ObservableGauge(
		"nodemesh.nodes.online",
		metric.WithDescription("Nodes whose status is online"),
	)
	if err != nil {
		return nil, err
	}

	attrs := metric.WithAttributes(attribute.String("scope", scope))
	return m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(knownGauge, int64(known()), attrs)
		o.ObserveInt64(onlineGauge, int64(online()), attrs)
		return nil
	}, knownGauge, onlineGauge)
}
