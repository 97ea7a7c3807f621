// Package node defines the registry participant: its identity, declared
// capabilities, operational status and heartbeat.
//
// A node starts in StatusInitializing. Heartbeat promotes it to StatusOnline
// the first time; GoOffline moves it to StatusOffline from anywhere. Nodes are
// held by pointer, so registries that share a node observe each other's
// mutations.
//
//	n := node.New("n1", "taxis", "http://n1")
//	if err := n.RegisterCapability(node.NewCapability("routing", "1.0")); err != nil {
//	    return err
//	}
//	n.Heartbeat()
//	entry := n.RegistryEntry() // {"node_id":"n1","status":"online",...}
package node
