// Package stores provides the Redis-backed account store.
//
// # Design
//
// One logical account record is written under two keys: <prefix>:<email>
// and <prefix>:id:<id>. Every mutation goes through [AccountStore.Save],
// which issues both SETs in a single pipeline without MULTI. Concurrent
// writers of the same record are last-writer-wins, and a crash between the
// two SETs can leave the keys briefly divergent. Callers that need to detect
// divergence compare [AccountStore.GetByEmail] with [AccountStore.GetByID].
//
// # Architecture boundaries
//
// This package owns persistence of account records. It does NOT hash
// passwords, enforce lockout or make authentication decisions; those
// responsibilities belong to the flow functions in internal/flows.
//
// # What this package must NOT do
//
//   - Import careauth or any sibling internal package.
//   - Log or expose password hashes.
//   - Wrap the two writes in a transaction that could leave one key stale on retry.
package stores
