package nodestore

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/nodemesh/core"
	"github.com/itsneelabh/nodemesh/pkg/node"
)

func TestMemoryStore_AddAndGet(t *testing.T) {
	s := NewMemoryStore()
	n1 := node.New("n1", "taxis", "http://n1")

	require.NoError(t, s.Add(n1))

	got, ok := s.Get("n1")
	require.True(t, ok)
	assert.Same(t, n1, got)

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestMemoryStore_AddDuplicate(t *testing.T) {
	s := NewMemoryStore()
	first := node.New("n1", "taxis", "http://n1")
	require.NoError(t, s.Add(first))

	err := s.Add(node.New("n1", "theoria", "http://other"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDuplicateNode)
	assert.Equal(t, 1, s.Len())

	got, _ := s.Get("n1")
	assert.Same(t, first, got, "original node is kept")
}

func TestMemoryStore_InsertionOrder(t *testing.T) {
	s := NewMemoryStore()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.Add(node.New(id, "taxis", "http://"+id)))
	}

	assert.Equal(t, []string{"c", "a", "b"}, s.IDs())

	list := s.List()
	require.Len(t, list, 3)
	assert.Equal(t, "c", list[0].ID())
	assert.Equal(t, "b", list[2].ID())
}

func TestMemoryStore_LoadOrAdd(t *testing.T) {
	s := NewMemoryStore()
	builds := 0
	build := func() *node.Node {
		builds++
		return node.New("n1", "taxis", "http://n1")
	}

	created, loaded := s.LoadOrAdd("n1", build)
	assert.False(t, loaded)

	again, loaded := s.LoadOrAdd("n1", build)
	assert.True(t, loaded)
	assert.Same(t, created, again)
	assert.Equal(t, 1, builds, "build only runs for new IDs")
}

func TestMemoryStore_ConcurrentLoadOrAdd(t *testing.T) {
	s := NewMemoryStore()
	var builds int32

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("n%d", i%5)
			s.LoadOrAdd(id, func() *node.Node {
				atomic.AddInt32(&builds, 1)
				return node.New(id, "taxis", "http://"+id)
			})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, s.Len())
	assert.Equal(t, int32(5), atomic.LoadInt32(&builds))
}

func TestNewMemory_ReturnsStore(t *testing.T) {
	var s Store = NewMemory()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.IDs())
}
