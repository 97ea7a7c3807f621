// Package discovery implements the announcement-driven discovery service.
//
// Nodes make themselves known by announcing. The first announcement for a
// node ID creates the node, registers one capability per declared name and
// brings it online with a heartbeat. Later announcements for the same ID only
// refresh the heartbeat and replace the stored announcement; the node's
// organ, endpoint and capabilities are never changed by them.
//
// # Expiry
//
// Every announcement carries a TTL. Nothing expires on its own: PruneExpired
// removes announcements whose TTL has run out and moves their nodes offline.
// internal/sweeper calls it on an interval.
//
//	svc := discovery.New(discovery.WithLogger(log))
//	svc.Announce(ctx, discovery.NewAnnouncement("n1", "taxis", "http://n1:8080", []string{"route"}))
//
//	peers := svc.FindPeers(ctx, discovery.ByOrgan("taxis"), discovery.ByCapability("route"))
//
// # Shared Registries
//
// By default a Service owns a private registry. WithStore injects a
// nodestore.Store that can also back a network.Network, in which case both
// observe the same live nodes.
package discovery
