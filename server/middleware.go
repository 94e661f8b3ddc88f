package server

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/careauth"
	"github.com/MrEthical07/careauth/internal/rate"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const (
	headerRateLimitRemaining = "X-Rate-Limit-Remaining"
	headerCFConnectingIP     = "CF-Connecting-IP"

	nonceKey = "csp-nonce"
)

var suspiciousPathFragments = []string{
	"/etc/", "/passwd", "/admin/", "/secret", "/root/", "/home/",
	"/var/", "/tmp/", "/proc/", "/sys/", "/boot/", "/usr/bin/",
	"/windows/", "/system32/", "..", "admin", "secret",
}

var cspDirectives = []string{
	"default-src 'self'",
	"script-src 'self' 'nonce-{nonce}' https://js.stripe.com https://maps.googleapis.com https://www.google.com https://apis.google.com",
	"style-src 'self' 'nonce-{nonce}' https://fonts.googleapis.com",
	"font-src 'self' https://fonts.gstatic.com",
	"img-src 'self' data: https: blob:",
	"connect-src 'self' https://api.stripe.com https://maps.googleapis.com https://brainsait.io https://*.brainsait.io https://graph.microsoft.com https://login.microsoftonline.com https://api.github.com https://www.linkedin.com https://public-api.wordpress.com",
	"frame-src 'self' https://js.stripe.com https://www.google.com",
	"worker-src 'self' blob:",
	"child-src 'self'",
	"object-src 'none'",
	"base-uri 'self'",
	"form-action 'self'",
	"frame-ancestors 'none'",
	"upgrade-insecure-requests",
	"block-all-mixed-content",
}

// clientIP trusts the edge proxy headers in order: CF-Connecting-IP, then
// the first X-Forwarded-For hop.
func clientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get(headerCFConnectingIP)); ip != "" {
		return ip
	}
	if xff := r.Header.Get(echo.HeaderXForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return "unknown"
}

// requestContext copies the client address, user agent and request id into
// the request context so engine security events carry them.
func (s *Server) requestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		ctx := careauth.WithClientIP(req.Context(), c.RealIP())
		ctx = careauth.WithUserAgent(ctx, req.UserAgent())
		ctx = careauth.WithRequestID(ctx, c.Response().Header().Get(echo.HeaderXRequestID))
		c.SetRequest(req.WithContext(ctx))
		return next(c)
	}
}

func secureConfig(environment string) middleware.SecureConfig {
	cfg := middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}
	if environment != careauth.EnvDevelopment {
		cfg.HSTSMaxAge = 31536000
		cfg.HSTSPreloadEnabled = true
	}
	return cfg
}

func contentSecurityPolicy(environment, nonce string) string {
	directives := cspDirectives
	if environment == careauth.EnvDevelopment {
		directives = make([]string, 0, len(cspDirectives))
		for _, d := range cspDirectives {
			if d != "upgrade-insecure-requests" {
				directives = append(directives, d)
			}
		}
	}
	return strings.ReplaceAll(strings.Join(directives, "; "), "{nonce}", nonce)
}

// securityHeaders sets the headers echo's Secure middleware does not cover,
// including a CSP with a per-request nonce.
func (s *Server) securityHeaders(next echo.HandlerFunc) echo.HandlerFunc {
	environment := s.engine.Environment()
	return func(c echo.Context) error {
		nonce, err := careauth.GenerateSecureToken(16)
		if err != nil {
			return err
		}
		c.Set(nonceKey, nonce)

		h := c.Response().Header()
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=(), payment=(self)")
		h.Set("Cross-Origin-Embedder-Policy", "require-corp")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		h.Set("Cross-Origin-Resource-Policy", "same-origin")
		h.Set(echo.HeaderCacheControl, "no-cache, no-store, must-revalidate, private")
		h.Set("Pragma", "no-cache")
		h.Set("Expires", "0")
		h.Set(echo.HeaderContentSecurityPolicy, contentSecurityPolicy(environment, nonce))
		return next(c)
	}
}

// suspiciousPathFilter answers 404 for probes of system files and admin
// pages outside the API.
func (s *Server) suspiciousPathFilter(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		path := c.Request().URL.Path
		if strings.HasPrefix(path, "/api/") || !isSuspiciousPath(path) {
			return next(c)
		}
		s.engine.EmitSecurity(c.Request().Context(), careauth.EventSuspiciousPath, careauth.RiskMedium, "", "", func() map[string]string {
			return map[string]string{
				"path":   path,
				"method": c.Request().Method,
			}
		})
		return echo.ErrNotFound
	}
}

func isSuspiciousPath(path string) bool {
	lower := strings.ToLower(path)
	for _, fragment := range suspiciousPathFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

// rateLimit counts the request against bucket for the client IP. Limiter
// backend failures let the request through.
func (s *Server) rateLimit(bucket rate.Bucket) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if s.limiter == nil {
			return next
		}
		if _, ok := s.limiter.Limit(bucket); !ok {
			s.logger.Warn("no rate limit configured for bucket, requests are not counted",
				zap.String("bucket", string(bucket)),
			)
			return next
		}
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			decision, err := s.limiter.Allow(ctx, bucket, c.RealIP())
			switch {
			case errors.Is(err, rate.ErrRateLimited):
				s.engine.RecordRateLimited()
				s.engine.EmitSecurity(ctx, careauth.EventRateLimitExceeded, careauth.RiskMedium, "", "", func() map[string]string {
					return map[string]string{
						"bucket": string(bucket),
						"path":   c.Request().URL.Path,
						"limit":  strconv.Itoa(decision.Limit),
					}
				})
				h := c.Response().Header()
				h.Set(headerRateLimitRemaining, "0")
				h.Set(echo.HeaderRetryAfter, strconv.Itoa(retryAfterSeconds(decision.ResetAt)))
				return careauth.ErrRateLimited
			case err != nil:
				s.logger.Warn("rate limiter unavailable, allowing request",
					zap.String("bucket", string(bucket)),
					zap.Error(err),
				)
				return next(c)
			}
			c.Response().Header().Set(headerRateLimitRemaining, strconv.Itoa(decision.Remaining))
			return next(c)
		}
	}
}

func retryAfterSeconds(resetAt time.Time) int {
	return max(1, int(math.Ceil(time.Until(resetAt).Seconds())))
}
