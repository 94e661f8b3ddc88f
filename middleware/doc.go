// Package middleware exposes echo middleware that authenticates requests
// against a careauth.Engine.
//
// # Guards
//
//   - [Bearer] rejects requests without a valid bearer token.
//   - [OptionalBearer] attaches claims when a valid token is present and
//     never rejects.
//
// Both read the Authorization header, call Engine.VerifyToken, and store the
// verified claims on the echo context for [ClaimsFromContext].
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Render error bodies (the server's error handler maps returned errors).
package middleware
