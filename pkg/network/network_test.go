package network

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/nodemesh/core"
	"github.com/itsneelabh/nodemesh/pkg/events"
	"github.com/itsneelabh/nodemesh/pkg/node"
)

func onlineNode(t *testing.T, id string, caps ...string) *node.Node {
	t.Helper()
	n := node.New(id, "taxis", "http://"+id+":8080")
	for _, c := range caps {
		require.NoError(t, n.RegisterCapability(node.NewCapability(c, "1.0")))
	}
	n.Heartbeat()
	return n
}

func TestRegisterNode(t *testing.T) {
	net := New()
	ctx := context.Background()

	n1 := onlineNode(t, "n1")
	require.NoError(t, net.RegisterNode(ctx, n1))

	got, err := net.GetNode("n1")
	require.NoError(t, err)
	assert.Same(t, n1, got)
}

func TestRegisterNode_Duplicate(t *testing.T) {
	net := New()
	ctx := context.Background()

	first := onlineNode(t, "n1")
	require.NoError(t, net.RegisterNode(ctx, first))

	err := net.RegisterNode(ctx, node.New("n1", "kinesis", "http://other"))

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDuplicateNode)
	assert.True(t, core.IsConflict(err))
	assert.Equal(t, []string{"n1"}, net.NodeIDs())

	got, _ := net.GetNode("n1")
	assert.Same(t, first, got)
}

func TestRegisterNode_Nil(t *testing.T) {
	net := New()

	var err error
	require.NotPanics(t, func() {
		err = net.RegisterNode(context.Background(), nil)
	})

	assert.ErrorIs(t, err, core.ErrNilNode)
	assert.Empty(t, net.NodeIDs())
}

func TestGetNode_Unknown(t *testing.T) {
	_, err := New().GetNode("missing")

	assert.ErrorIs(t, err, core.ErrUnknownNode)

	var meshErr *core.MeshError
	require.ErrorAs(t, err, &meshErr)
	assert.Equal(t, "missing", meshErr.ID)
}

// Connect two nodes and summarize: one initializing node, one online.
func TestConnect_Summary(t *testing.T) {
	net := New()
	ctx := context.Background()

	require.NoError(t, net.RegisterNode(ctx, node.New("a", "taxis", "http://a")))
	require.NoError(t, net.RegisterNode(ctx, onlineNode(t, "b")))

	route, err := net.Connect(ctx, "a", "b", 5.0)
	require.NoError(t, err)
	assert.Equal(t, Route{SourceID: "a", TargetID: "b", LatencyMs: 5.0, Active: true}, route)

	summary := net.TopologySummary(ctx)
	assert.Equal(t, 2, summary.TotalNodes)
	assert.Equal(t, 1, summary.TotalRoutes)
	assert.Equal(t, 1, summary.ActiveRoutes)
	assert.Equal(t, map[string]int{"initializing": 1, "online": 1}, summary.StatusDistribution)
}

func TestConnect_UnknownNode(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		target  string
		missing string
	}{
		{"unknown source", "ghost", "b", "ghost"},
		{"unknown target", "b", "ghost", "ghost"},
		{"both unknown", "x", "y", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net := New()
			ctx := context.Background()
			require.NoError(t, net.RegisterNode(ctx, onlineNode(t, "b")))

			_, err := net.Connect(ctx, tt.source, tt.target, 0)

			assert.ErrorIs(t, err, core.ErrUnknownNode)
			var meshErr *core.MeshError
			require.ErrorAs(t, err, &meshErr)
			assert.Equal(t, tt.missing, meshErr.ID)
			assert.Empty(t, net.Routes())
			assert.Equal(t, 0, net.TopologySummary(ctx).TotalRoutes)
		})
	}
}

func TestConnect_AllowsParallelEdgesAndSelfLoops(t *testing.T) {
	net := New()
	ctx := context.Background()
	require.NoError(t, net.RegisterNode(ctx, onlineNode(t, "a")))
	require.NoError(t, net.RegisterNode(ctx, onlineNode(t, "b")))

	for _, pair := range [][2]string{{"a", "b"}, {"a", "b"}, {"b", "a"}, {"a", "a"}} {
		_, err := net.Connect(ctx, pair[0], pair[1], 1.5)
		require.NoError(t, err)
	}

	routes := net.Routes()
	require.Len(t, routes, 4)
	assert.Equal(t, "a", routes[3].SourceID)
	assert.Equal(t, "a", routes[3].TargetID)
	assert.Equal(t, 4, net.TopologySummary(ctx).ActiveRoutes)
}

func TestFindNodesByCapability(t *testing.T) {
	net := New()
	ctx := context.Background()

	offline := onlineNode(t, "n3", "route")
	offline.GoOffline()

	require.NoError(t, net.RegisterNode(ctx, onlineNode(t, "n1", "route")))
	require.NoError(t, net.RegisterNode(ctx, onlineNode(t, "n2", "price")))
	require.NoError(t, net.RegisterNode(ctx, offline))
	require.NoError(t, net.RegisterNode(ctx, onlineNode(t, "n4", "route", "price")))

	ids := func(nodes []*node.Node) []string {
		out := make([]string, len(nodes))
		for i, n := range nodes {
			out[i] = n.ID()
		}
		return out
	}

	assert.Equal(t, []string{"n1", "n4"}, ids(net.FindNodesByCapability(ctx, "route")))
	assert.Equal(t, []string{"n2", "n4"}, ids(net.FindNodesByCapability(ctx, "price")))
	assert.Empty(t, net.FindNodesByCapability(ctx, "missing"))
}

func TestTopologySummary_Empty(t *testing.T) {
	summary := New().TopologySummary(context.Background())

	assert.Equal(t, 0, summary.TotalNodes)
	assert.NotNil(t, summary.StatusDistribution)
	assert.Empty(t, summary.StatusDistribution)
}

func TestNodeIDs_InsertionOrder(t *testing.T) {
	net := New()
	ctx := context.Background()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, net.RegisterNode(ctx, node.New(id, "", "")))
	}

	assert.Equal(t, []string{"c", "a", "b"}, net.NodeIDs())
}

func TestNetwork_PublishesEvents(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	ch, cancel := bus.Subscribe(8)
	defer cancel()

	net := New(WithPublisher(bus))
	ctx := context.Background()
	require.NoError(t, net.RegisterNode(ctx, onlineNode(t, "a")))
	_, err := net.Connect(ctx, "a", "a", 2)
	require.NoError(t, err)

	var got []events.Event
	for i := 0; i < 2; i++ {
		select {
		case e := <-ch:
			got = append(got, e)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}

	assert.Equal(t, events.NodeRegistered, got[0].Type)
	assert.Equal(t, "a", got[0].NodeID)
	assert.Equal(t, events.RouteConnected, got[1].Type)
	require.NotNil(t, got[1].Route)
	assert.Equal(t, 2.0, got[1].Route.LatencyMs)
}

func TestNetwork_ConcurrentRegistration(t *testing.T) {
	net := New()
	ctx := context.Background()

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers*workers)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < workers; i++ {
				if err := net.RegisterNode(ctx, node.New(fmt.Sprintf("n%d", i), "taxis", "")); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	assert.Len(t, net.NodeIDs(), workers)

	rejected := 0
	for err := range errs {
		assert.ErrorIs(t, err, core.ErrDuplicateNode)
		rejected++
	}
	assert.Equal(t, workers*(workers-1), rejected)
}
