// Package cluster holds the local view of the cluster being brought up: its
// nodes, their stable FQDN identities and the host IDs the management plane
// assigned to them.
//
// Nodes are keyed by FQDN. The management plane only knows hosts by its own
// opaque IDs, so every host it reports must be correlated back to a node with
// [Registry.Resolve] and [Registry.Associate] before it is used. A host that
// matches no node is a configuration mismatch and yields a
// *bringup.LookupError.
package cluster
