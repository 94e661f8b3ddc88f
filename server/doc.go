// Package server mounts a careauth.Engine on echo.
//
// Routes live under /api/auth (register, login, profile, logout, oauth and
// the popup callback page), plus /health and /metrics. The package owns the
// HTTP-only concerns: status mapping, security headers, CORS, per-IP rate
// limits and the suspicious path filter.
package server
