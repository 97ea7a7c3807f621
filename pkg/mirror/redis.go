package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/itsneelabh/nodemesh/core"
	"github.com/itsneelabh/nodemesh/pkg/logger"
	"github.com/itsneelabh/nodemesh/pkg/network"
	"github.com/itsneelabh/nodemesh/pkg/node"
	"github.com/itsneelabh/nodemesh/pkg/telemetry"
)

// DefaultNamespace prefixes every key when no namespace is configured.
const DefaultNamespace = "nodemesh"

// RedisMirror publishes registry snapshots to Redis.
type RedisMirror struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
	timeout   time.Duration
	breaker   core.CircuitBreaker
	logger    logger.Logger
}

// Option configures a RedisMirror.
type Option func(*RedisMirror)

func WithNamespace(ns string) Option {
	return func(m *RedisMirror) {
		if ns != "" {
			m.namespace = ns
		}
	}
}

// WithTTL sets how long a published node entry lives in Redis.
func WithTTL(ttl time.Duration) Option {
	return func(m *RedisMirror) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithOperationTimeout bounds each publish.
func WithOperationTimeout(d time.Duration) Option {
	return func(m *RedisMirror) {
		m.timeout = d
	}
}

// WithCircuitBreaker guards publishes. Without one every publish hits Redis.
func WithCircuitBreaker(cb core.CircuitBreaker) Option {
	return func(m *RedisMirror) {
		m.breaker = cb
	}
}

func WithLogger(l logger.Logger) Option {
	return func(m *RedisMirror) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewRedisMirror connects to redisURL and verifies the connection.
func NewRedisMirror(ctx context.Context, redisURL string, opts ...Option) (*RedisMirror, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, core.NewMeshError("Mirror.Connect", core.KindConfig,
			fmt.Errorf("invalid Redis URL: %w", core.ErrInvalidConfiguration))
	}

	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.MaxRetries = 3
	opt.MinRetryBackoff = 100 * time.Millisecond
	opt.MaxRetryBackoff = time.Second
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 5 * time.Second
	opt.WriteTimeout = 5 * time.Second

	m := NewRedisMirrorWithClient(redis.NewClient(opt), opts...)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := m.client.Ping(pingCtx).Err(); err != nil {
		_ = m.client.Close()
		m.logger.Error("Failed to connect to Redis", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, core.NewMeshError("Mirror.Connect", core.KindMirror,
			fmt.Errorf("%w: %v", core.ErrConnectionFailed, err))
	}

	m.logger.Info("Connected to Redis mirror", map[string]interface{}{
		"namespace": m.namespace,
		"ttl":       m.ttl.String(),
	})
	return m, nil
}

// NewRedisMirrorWithClient wraps an existing client without pinging it.
func NewRedisMirrorWithClient(client *redis.Client, opts ...Option) *RedisMirror {
	m := &RedisMirror{
		client:    client,
		namespace: DefaultNamespace,
		ttl:       core.DefaultMirrorTTL,
		timeout:   5 * time.Second,
		logger:    logger.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *RedisMirror) nodeKey(id string) string {
	return fmt.Sprintf("%s:nodes:%s", m.namespace, id)
}

func (m *RedisMirror) capabilityKey(name string) string {
	return fmt.Sprintf("%s:capabilities:%s", m.namespace, name)
}

func (m *RedisMirror) organKey(organ string) string {
	return fmt.Sprintf("%s:organs:%s", m.namespace, organ)
}

func (m *RedisMirror) topologyKey() string {
	return m.namespace + ":topology"
}

// PublishEntries writes every entry and its capability and organ indexes in
// one transaction.
func (m *RedisMirror) PublishEntries(ctx context.Context, entries []node.RegistryEntry) error {
	ctx, span := otel.Tracer(telemetry.TracerMirror).Start(ctx, "Mirror.PublishEntries",
		trace.WithAttributes(
			attribute.String("mirror.namespace", m.namespace),
			attribute.Int("entries.count", len(entries)),
		),
	)
	defer span.End()

	if len(entries) == 0 {
		return nil
	}

	err := m.guard(ctx, func(ctx context.Context) error {
		pipe := m.client.TxPipeline()
		for _, entry := range entries {
			data, err := json.Marshal(entry)
			if err != nil {
				return fmt.Errorf("failed to marshal entry for %s: %w", entry.NodeID, err)
			}
			pipe.Set(ctx, m.nodeKey(entry.NodeID), data, m.ttl)

			for _, capability := range entry.Capabilities {
				capKey := m.capabilityKey(capability)
				pipe.SAdd(ctx, capKey, entry.NodeID)
				pipe.Expire(ctx, capKey, m.ttl*2)
			}

			organKey := m.organKey(entry.Organ)
			pipe.SAdd(ctx, organKey, entry.NodeID)
			pipe.Expire(ctx, organKey, m.ttl*2)
		}
		_, err := pipe.Exec(ctx)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err, "publish entries failed")
		m.logger.Warn("Failed to publish registry entries", map[string]interface{}{
			"entries": len(entries),
			"error":   err.Error(),
		})
		return m.wrap("Mirror.PublishEntries", err)
	}

	m.logger.Debug("Published registry entries", map[string]interface{}{
		"entries": len(entries),
	})
	return nil
}

// PublishTopology stores summary under <ns>:topology.
func (m *RedisMirror) PublishTopology(ctx context.Context, summary network.TopologySummary) error {
	ctx, span := otel.Tracer(telemetry.TracerMirror).Start(ctx, "Mirror.PublishTopology",
		trace.WithAttributes(attribute.Int("topology.nodes", summary.TotalNodes)),
	)
	defer span.End()

	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal topology: %w", err)
	}

	err = m.guard(ctx, func(ctx context.Context) error {
		return m.client.Set(ctx, m.topologyKey(), data, m.ttl).Err()
	})
	if err != nil {
		telemetry.RecordError(span, err, "publish topology failed")
		m.logger.Warn("Failed to publish topology", map[string]interface{}{
			"error": err.Error(),
		})
		return m.wrap("Mirror.PublishTopology", err)
	}
	return nil
}

// Entry reads back a published node entry.
func (m *RedisMirror) Entry(ctx context.Context, id string) (node.RegistryEntry, error) {
	var entry node.RegistryEntry

	data, err := m.client.Get(ctx, m.nodeKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return entry, core.NewEntityError("Mirror.Entry", core.KindNode, id, core.ErrUnknownNode)
	}
	if err != nil {
		return entry, m.wrap("Mirror.Entry", err)
	}
	if err := json.Unmarshal(data, &entry); err != nil {
		return entry, fmt.Errorf("failed to decode entry for %s: %w", id, err)
	}
	return entry, nil
}

// NodesWithCapability returns the IDs indexed under capability.
func (m *RedisMirror) NodesWithCapability(ctx context.Context, capability string) ([]string, error) {
	ids, err := m.client.SMembers(ctx, m.capabilityKey(capability)).Result()
	if err != nil {
		return nil, m.wrap("Mirror.NodesWithCapability", err)
	}
	return ids, nil
}

// Ping checks Redis connectivity.
func (m *RedisMirror) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx).Err(); err != nil {
		return m.wrap("Mirror.Ping", err)
	}
	return nil
}

// Close closes the Redis client.
func (m *RedisMirror) Close() error {
	return m.client.Close()
}

func (m *RedisMirror) guard(ctx context.Context, fn func(context.Context) error) error {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	if m.breaker == nil {
		return fn(ctx)
	}
	return m.breaker.Execute(ctx, func() error {
		return fn(ctx)
	})
}

// wrap tags Redis failures with ErrMirrorUnavailable. Breaker rejections
// already carry ErrCircuitOpen and pass through.
func (m *RedisMirror) wrap(op string, err error) error {
	if errors.Is(err, core.ErrCircuitOpen) {
		return err
	}
	return core.NewMeshError(op, core.KindMirror, fmt.Errorf("%w: %v", core.ErrMirrorUnavailable, err))
}

var _ Mirror = (*RedisMirror)(nil)
