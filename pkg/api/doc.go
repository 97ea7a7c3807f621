// Package api exposes the discovery service and the network over HTTP.
//
// All endpoints speak JSON. Nodes are always rendered as registry entries:
//
//	{"node_id":"n1","organ":"taxis","endpoint":"http://n1:8080",
//	 "status":"online","capabilities":["route"],"last_heartbeat":"..."}
//
// Discovery:
//
//	POST /api/v1/announce                      announce a node
//	GET  /api/v1/peers?organ=&capability=      online peers
//	GET  /api/v1/registry                      every known node
//	POST /api/v1/prune                         prune expired announcements
//
// Network:
//
//	GET  /api/v1/network/nodes                 registered nodes
//	POST /api/v1/network/nodes                 register a node (409 on duplicate)
//	GET  /api/v1/network/nodes/{id}            one node (404 when unknown)
//	GET  /api/v1/network/routes                routes in creation order
//	POST /api/v1/network/routes                connect two nodes (404 when unknown)
//	GET  /api/v1/network/topology              topology summary
//	GET  /api/v1/network/capabilities/{name}   online nodes with a capability
//
// GET /api/v1/watch upgrades to a websocket that streams registry events, and
// GET /health reports registry counts.
package api
