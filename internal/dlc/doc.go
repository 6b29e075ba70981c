// Package dlc tracks the MAC connections of one cluster on behalf of the
// data link control layer.
//
// A Connection is created by a local establish or by a connection
// indication from the MAC layer, moves through CLOSED, OPEN_PENDING and
// OPEN, and is destroyed once it is CLOSED and no higher layer instance is
// bound to it. The Manager drives these transitions, issues the matching
// mac.Service requests and routes received data to the C-plane or U-plane.
//
// Nothing here locks. All calls for one cluster must be serialized by the
// caller; cluster.Cluster does this with a single worker goroutine.
package dlc
