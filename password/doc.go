// Package password implements password hashing, verification and strength scoring.
//
// # Formats
//
// New hashes are PBKDF2-HMAC-SHA256 records:
//
//	{"hash":"<128 hex>","salt":"<64 hex>","iterations":100000,"algorithm":"PBKDF2-SHA256"}
//
// Older accounts may still carry the deprecated single-string digest
// hex(SHA-256(password + secret)). [Stored] holds either representation and
// round-trips both through JSON, so a record can be read, migrated and written
// back without format sniffing at the call site.
//
// # Architecture boundaries
//
// This package owns hashing, verification and strength scoring only. When to
// migrate a legacy digest, and what to persist, is decided by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other careauth package except internal helpers.
//   - Log plaintext passwords or hash parameters at runtime.
package password
