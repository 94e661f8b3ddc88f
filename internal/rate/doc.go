// Package rate provides Redis-backed fixed-window request counters keyed by
// bucket and client IP.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Keys have
// the form rate_limit:<bucket>:<ip>:<windowStartMillis>, so a new window
// starts a new key and old keys age out on their own.
//
// # What this package must NOT do
//
//   - Decide which routes use which bucket (that lives in server).
//   - Be imported outside the careauth module.
package rate
