// Package audit implements async dispatching of security events.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, zap, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: structured security record with timestamp, risk, user, hashed IP, metadata.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit; that responsibility belongs to the Engine, flow functions and server middleware.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import careauth or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
