// Package audit implements async event dispatching for client authentication activity.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, zap, no-op).
//   - [Dispatcher]: ordered queue that stamps events and either evicts the oldest or waits when full.
//   - [Event]: structured record with id, timestamp, type, user, platform, request id, metadata.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit; that responsibility belongs to the Client and flow functions.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import glazeAuth or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
