// Package internal contains helper utilities that are intentionally private to careauth,
// such as secure random generation and identifier fingerprinting.
//
// # Sub-packages
//
//   - audit: async security event dispatch (Dispatcher + Sink implementations)
//   - flows: pure-function orchestrators for every Engine operation
//   - rate: Redis-backed fixed-window admission counters
//   - security: effective security posture report
//   - stores: dual-key account record store
//
// # What this package must NOT do
//
//   - Export types that appear in the public careauth API.
//   - Be imported by any package outside the careauth module.
package internal
