// Package oauth resolves third-party identities for the supported sign-in
// providers.
//
// Each provider turns the credentials a browser collected (an authorization
// code, or for Microsoft an access token obtained client-side) into an
// [Identity]. Code exchange goes through golang.org/x/oauth2; profile lookups
// use the resulting bearer token. Failures are reported as *[Error] values
// carrying a client-safe message and one of the package sentinels.
package oauth
