// Package chat implements the real-time coordination core of the Parlor
// server: connection identity, room membership, ordered message relay, and
// derived presence state (rosters and typing indicators).
//
// Each room is owned by a single Coordinator goroutine that serializes every
// mutation and broadcast for that room, so observers never see membership or
// typing updates out of causal order. The Hub owns the room map, routes
// transport events to the right coordinator, and retires rooms that have sat
// empty past their idle TTL. The package is transport-agnostic: the transport
// layer registers each connection as a Session and receives outbound events
// through it.
package chat
