package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/nodemesh/pkg/node"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(4)
	defer cancel()

	n := node.New("n1", "taxis", "http://n1")
	n.Heartbeat()
	bus.Publish(NodeEvent(NodeAnnounced, n, time.Unix(100, 0)))

	select {
	case e := <-ch:
		assert.Equal(t, NodeAnnounced, e.Type)
		assert.Equal(t, "n1", e.NodeID)
		require.NotNil(t, e.Entry)
		assert.Equal(t, "online", e.Entry.Status)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBus_FullBufferDrops(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(1)
	defer cancel()

	bus.Publish(Event{Type: RouteConnected})
	bus.Publish(Event{Type: RouteConnected})

	assert.Len(t, ch, 1)
	assert.Equal(t, uint64(1), bus.Dropped())
}

func TestBus_Cancel(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(0)
	assert.Equal(t, 1, bus.Subscribers())
	assert.Equal(t, DefaultBufferSize, cap(ch))

	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, bus.Subscribers())

	// publishing after unsubscribe must not panic
	bus.Publish(Event{Type: NodeOffline})
}

func TestBus_Close(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(1)

	bus.Close()
	bus.Close()
	cancel()

	_, open := <-ch
	assert.False(t, open)

	late, _ := bus.Subscribe(1)
	_, open = <-late
	assert.False(t, open, "subscribing to a closed bus yields a closed channel")

	bus.Publish(Event{Type: NodeOffline})
}

func TestPublisherFunc(t *testing.T) {
	var got []Type
	p := PublisherFunc(func(e Event) { got = append(got, e.Type) })

	p.Publish(Event{Type: NodeRegistered})
	Discard.Publish(Event{Type: NodeRegistered})

	assert.Equal(t, []Type{NodeRegistered}, got)
}
