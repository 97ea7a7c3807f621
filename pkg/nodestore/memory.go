package nodestore

import (
	"sync"

	"github.com/itsneelabh/nodemesh/core"
	"github.com/itsneelabh/nodemesh/pkg/node"
)

// MemoryStore is the in-memory Store implementation.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes map[string]*node.Node
	order []string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes: make(map[string]*node.Node),
	}
}

// NewMemory is a helper returning the in-memory implementation as a Store.
func NewMemory() Store {
	return NewMemoryStore()
}

func (s *MemoryStore) Get(id string) (*node.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	return n, ok
}

func (s *MemoryStore) Add(n *node.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[n.ID()]; exists {
		return core.NewEntityError("NodeStore.Add", core.KindNode, n.ID(), core.ErrDuplicateNode)
	}
	s.insertLocked(n)
	return nil
}

func (s *MemoryStore) LoadOrAdd(id string, build func() *node.Node) (*node.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.nodes[id]; ok {
		return n, true
	}
	n := build()
	s.insertLocked(n)
	return n, false
}

func (s *MemoryStore) insertLocked(n *node.Node) {
	s.nodes[n.ID()] = n
	s.order = append(s.order, n.ID())
}

func (s *MemoryStore) List() []*node.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*node.Node, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.nodes[id])
	}
	return out
}

func (s *MemoryStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
