// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunRegister, RunLogin, RunProfile, RunOAuthLogin, etc.)
// accepts a typed dependency struct and returns results without side-effects
// beyond those dependencies. This keeps the Engine type thin and lets the
// lockout state machine be tested with an in-memory store.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the account store, password hasher,
// token issuer, security event emitter and metrics. They do NOT own any of
// these resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import careauth (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency interfaces.
package flows
