// Package careauth provides the account core of a healthcare platform:
// password registration and login with lockout, profile reads and updates,
// OAuth sign-in through five providers and stateless HS256 session tokens.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// careauth is the public surface. It exposes [Engine], [Builder], [Config] and
// value types ([AuthResult], [User], [SecurityEvent]). Flow orchestration,
// account persistence, rate limiting and audit dispatch live under internal/
// and are never exported.
//
// # Storage
//
// Each account is stored twice in Redis, under user:<email> and user:id:<id>.
// Every mutation rewrites both keys through one pipeline. The pipeline is not
// transactional; a crash between the two SETs leaves the keys diverged until
// the next mutation of that account.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores or encoding details in its public API.
//   - Return password hashes, raw tokens or provider responses inside errors.
//   - Import any sub-package that re-imports careauth (no import cycles).
package careauth
