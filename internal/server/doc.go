// Package server implements the HTTP and WebSocket transport for Parlor.
//
// The implementation is organized into specialized files for configuration,
// hub bootstrap, clients, routing, and HTTP handlers to keep the codebase
// maintainable and testable as the project grows. The coordination logic
// itself lives in internal/chat; this package only decodes inbound event
// envelopes, feeds them to the hub, and writes outbound events back.
package server
