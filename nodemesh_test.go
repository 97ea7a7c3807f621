package nodemesh

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/nodemesh/pkg/events"
	"github.com/itsneelabh/nodemesh/pkg/nodestore"
)

func TestNewMesh_IndependentByDefault(t *testing.T) {
	mesh := NewMesh()
	ctx := context.Background()

	mesh.Discovery.Announce(ctx, NewAnnouncement("n1", "taxis", "http://n1", []string{"route"}))

	assert.False(t, mesh.Shared())
	_, err := mesh.Network.GetNode("n1")
	assert.ErrorIs(t, err, ErrUnknownNode)
	assert.Empty(t, mesh.Network.NodeIDs())
}

func TestNewMesh_SharedStore(t *testing.T) {
	mock := clock.NewMock()
	mesh := NewMesh(WithSharedStore(), WithClock(mock))
	ctx := context.Background()
	require.True(t, mesh.Shared())

	announced := mesh.Discovery.Announce(ctx, Announcement{
		NodeID:       "n1",
		Organ:        "taxis",
		Endpoint:     "http://n1",
		Capabilities: []string{"route"},
		Timestamp:    mock.Now(),
		TTLSeconds:   10,
	})

	seen, err := mesh.Network.GetNode("n1")
	require.NoError(t, err)
	assert.Same(t, announced, seen)

	err = mesh.Network.RegisterNode(ctx, NewNode("n1", "taxis", "http://n1"))
	assert.ErrorIs(t, err, ErrDuplicateNode)

	require.NoError(t, mesh.Network.RegisterNode(ctx, NewNode("n2", "kinesis", "http://n2")))
	_, err = mesh.Network.Connect(ctx, "n1", "n2", 3)
	require.NoError(t, err)
	assert.Len(t, mesh.Network.FindNodesByCapability(ctx, "route"), 1)

	// Expiry in discovery is visible to the network.
	mock.Add(11 * time.Second)
	assert.Equal(t, 1, mesh.Discovery.PruneExpired(ctx))

	summary := mesh.Network.TopologySummary(ctx)
	assert.Equal(t, map[string]int{"offline": 1, "initializing": 1}, summary.StatusDistribution)
	assert.Empty(t, mesh.Network.FindNodesByCapability(ctx, "route"))
	assert.Equal(t, 2, mesh.Discovery.KnownCount())
}

func TestNewMesh_WithStore(t *testing.T) {
	store := nodestore.NewMemoryStore()
	mesh := NewMesh(WithStore(store))

	require.NoError(t, mesh.Network.RegisterNode(context.Background(), NewNode("n1", "", "")))

	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 1, mesh.Discovery.KnownCount())
	assert.Equal(t, 0, mesh.Discovery.ActiveCount())
}

func TestNewMesh_EventBus(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	ch, cancel := bus.Subscribe(4)
	defer cancel()

	mesh := NewMesh(WithEventBus(bus))
	ctx := context.Background()
	mesh.Discovery.Announce(ctx, NewAnnouncement("n1", "taxis", "", nil))
	require.NoError(t, mesh.Network.RegisterNode(ctx, NewNode("n2", "", "")))

	assert.Equal(t, events.NodeAnnounced, (<-ch).Type)
	assert.Equal(t, events.NodeRegistered, (<-ch).Type)
	assert.Same(t, bus, mesh.Events)
	assert.NoError(t, mesh.Close())
}
