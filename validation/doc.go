// Package validation applies declarative per-field rules to decoded JSON
// payloads.
//
// A [Schema] is a safelist: declared fields are checked and normalized, fields
// the schema does not name are ignored rather than rejected. Errors are
// cumulative per field so a client receives every problem in one round trip.
//
// Patterns are matched against the normalized value, so a sanitized string
// (HTML-escaped) is what the pattern sees.
package validation
