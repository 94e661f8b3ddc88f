// Package jwt issues and verifies the stateless HS256 session tokens that
// carry {userId, email, role, iat, exp}.
//
// Exactly one algorithm and one claim shape are accepted. Tokens carry no kid
// and there is no server-side revocation: a token is valid until exp.
package jwt
