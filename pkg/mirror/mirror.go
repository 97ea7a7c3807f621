// Package mirror exports registry snapshots to Redis so that tooling outside
// the process can inspect the registry. It is write-only from the registry's
// point of view: nothing published here is read back into discovery or the
// network.
//
// Key layout under the configured namespace:
//
//	<ns>:nodes:<id>              JSON registry entry, expires after the mirror TTL
//	<ns>:capabilities:<name>     set of node IDs, expires after twice the TTL
//	<ns>:organs:<organ>          set of node IDs, expires after twice the TTL
//	<ns>:topology                JSON topology summary
package mirror

import (
	"context"

	"github.com/itsneelabh/nodemesh/pkg/network"
	"github.com/itsneelabh/nodemesh/pkg/node"
)

// Mirror receives registry snapshots.
type Mirror interface {
	PublishEntries(ctx context.Context, entries []node.RegistryEntry) error
	PublishTopology(ctx context.Context, summary network.TopologySummary) error
	Close() error
}
