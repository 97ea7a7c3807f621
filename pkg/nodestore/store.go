// Package nodestore holds node registries. A Store can be private to one
// component or injected into several so they share the same live nodes.
package nodestore

import "github.com/itsneelabh/nodemesh/pkg/node"

// Store is a node registry keyed by node ID. Entries are never removed.
// Iteration order is insertion order.
type Store interface {
	// Get returns the node registered under id.
	Get(id string) (*node.Node, bool)

	// Add inserts n, failing with core.ErrDuplicateNode if the ID is taken.
	Add(n *node.Node) error

	// LoadOrAdd returns the node registered under id, or builds, inserts and
	// returns a new one. build runs while the store is locked, so the new
	// node is fully formed before any reader can see it. loaded reports
	// whether the node already existed.
	LoadOrAdd(id string, build func() *node.Node) (n *node.Node, loaded bool)

	// List returns all nodes in insertion order.
	List() []*node.Node

	// IDs returns all node IDs in insertion order.
	IDs() []string

	// Len returns the number of registered nodes.
	Len() int
}
