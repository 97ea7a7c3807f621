// Package network keeps a registry of nodes and the directed routes between
// them.
//
// Nodes are added once with RegisterNode and never removed. Connect appends a
// route between two registered nodes; routes are never deduplicated, so
// parallel edges, self-loops and cycles are all allowed. TopologySummary
// reports node and route counts with a per-status breakdown.
package network
