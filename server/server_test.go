package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/careauth"
	"github.com/MrEthical07/careauth/oauth"
	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeProvider struct {
	name     string
	identity oauth.Identity
}

func (p fakeProvider) Name() string { return p.name }

func (p fakeProvider) Identify(_ context.Context, creds oauth.Credentials) (oauth.Identity, error) {
	if creds.Code == "" {
		return oauth.Identity{}, oauth.ErrMissingCode
	}
	return p.identity, nil
}

type testServer struct {
	*Server
	events <-chan careauth.SecurityEvent
	mr     *miniredis.Miniredis
}

func newTestServer(t *testing.T, cfg Config) *testServer {
	t.Helper()
	return newLoggedTestServer(t, cfg, nil)
}

func newLoggedTestServer(t *testing.T, cfg Config, zl *zap.Logger) *testServer {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	sink := careauth.NewChannelSink(64)
	engineCfg := careauth.DefaultConfig()
	engineCfg.JWT.Secret = []byte(testSecret)
	engine, err := careauth.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithSecuritySink(sink).
		WithOAuthProvider(fakeProvider{name: oauth.GitHub, identity: oauth.Identity{
			Email: "octo@clinic.org", GivenName: "Octo", FamilyName: "Cat", ProviderID: "42",
		}}).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	srv, err := New(engine, rdb, cfg, zl)
	require.NoError(t, err)
	return &testServer{Server: srv, events: sink.Events(), mr: mr}
}

func unlimited() Config {
	cfg := DefaultConfig()
	cfg.RateLimit.Enabled = false
	return cfg
}

func (ts *testServer) do(method, path, body string, header ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) waitEvent(t *testing.T, name string) careauth.SecurityEvent {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ts.events:
			if ev.Event == name {
				return ev
			}
		case <-timeout:
			t.Fatalf("security event %q not emitted", name)
		}
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

const registerBody = `{"firstName":"Layla","lastName":"Omar","email":"Layla@Clinic.org","password":"Str0ng!Passw0rd","role":"doctor"}`

func TestHealth(t *testing.T) {
	ts := newTestServer(t, unlimited())
	rec := ts.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "1.0.0", body["version"])
	assert.Equal(t, careauth.EnvDevelopment, body["environment"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestRegisterAndDuplicate(t *testing.T) {
	ts := newTestServer(t, unlimited())

	rec := ts.do(http.MethodPost, "/api/auth/register", registerBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "bearer", body["token_type"])
	assert.NotEmpty(t, body["access_token"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "layla@clinic.org", user["email"])
	assert.Equal(t, "doctor", user["role"])
	assert.NotContains(t, user, "passwordHash")

	rec = ts.do(http.MethodPost, "/api/auth/register", registerBody)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "User already exists", decode(t, rec)["error"])
}

func TestRegisterValidationAndPolicy(t *testing.T) {
	ts := newTestServer(t, unlimited())

	rec := ts.do(http.MethodPost, "/api/auth/register", `{"email":"nope"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Validation failed", body["error"])
	details := body["details"].(map[string]any)
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "firstName")
	ts.waitEvent(t, careauth.EventInvalidRegistrationData)

	weak := `{"firstName":"A","lastName":"B","email":"a@b.co","password":"Aaaa1111!"}`
	rec = ts.do(http.MethodPost, "/api/auth/register", weak)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, "Password does not meet security requirements", body["error"])
	assert.NotEmpty(t, body["details"])
}

func TestMalformedJSON(t *testing.T) {
	ts := newTestServer(t, unlimited())
	for _, path := range []string{"/api/auth/register", "/api/auth/login"} {
		rec := ts.do(http.MethodPost, path, `{"email":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid JSON in request body", decode(t, rec)["error"])
	}
}

func TestLoginLockoutOverHTTP(t *testing.T) {
	ts := newTestServer(t, unlimited())
	require.Equal(t, http.StatusCreated, ts.do(http.MethodPost, "/api/auth/register", registerBody).Code)

	wrong := `{"email":"layla@clinic.org","password":"Wrong!Passw0rd"}`
	right := `{"email":"layla@clinic.org","password":"Str0ng!Passw0rd"}`

	rec := ts.do(http.MethodPost, "/api/auth/login", right)
	require.Equal(t, http.StatusOK, rec.Code)

	for i := 0; i < 5; i++ {
		rec = ts.do(http.MethodPost, "/api/auth/login", wrong)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid credentials", decode(t, rec)["error"])
	}

	rec = ts.do(http.MethodPost, "/api/auth/login", right)
	assert.Equal(t, http.StatusLocked, rec.Code)
	assert.Equal(t, "Account is temporarily locked due to multiple failed login attempts", decode(t, rec)["error"])
}

func TestProfileRoutes(t *testing.T) {
	ts := newTestServer(t, unlimited())
	rec := ts.do(http.MethodPost, "/api/auth/register", registerBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	token := decode(t, rec)["access_token"].(string)

	rec = ts.do(http.MethodGet, "/api/auth/profile", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", decode(t, rec)["error"])

	rec = ts.do(http.MethodGet, "/api/auth/profile", "", echo.HeaderAuthorization, "Bearer a.b.c")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token", decode(t, rec)["error"])
	ts.waitEvent(t, careauth.EventInvalidToken)

	rec = ts.do(http.MethodGet, "/api/auth/profile", "", echo.HeaderAuthorization, "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	user := decode(t, rec)["user"].(map[string]any)
	assert.Equal(t, "Layla", user["firstName"])

	rec = ts.do(http.MethodPut, "/api/auth/profile", `{"phone":"+966 55 123 4567"}`, echo.HeaderAuthorization, "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	user = decode(t, rec)["user"].(map[string]any)
	assert.Equal(t, "+966551234567", user["phone"])
	assert.NotEmpty(t, user["updatedAt"])

	rec = ts.do(http.MethodPut, "/api/auth/profile", `{"phone":"call me"}`, echo.HeaderAuthorization, "Bearer "+token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation failed", decode(t, rec)["error"])
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t, unlimited())

	rec := ts.do(http.MethodPost, "/api/auth/logout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Logged out successfully", decode(t, rec)["message"])

	rec = ts.do(http.MethodPost, "/api/auth/register", registerBody)
	token := decode(t, rec)["access_token"].(string)
	rec = ts.do(http.MethodPost, "/api/auth/logout", "", echo.HeaderAuthorization, "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	ev := ts.waitEvent(t, careauth.EventLogout)
	assert.Equal(t, "layla@clinic.org", ev.Email)
}

func TestOAuthRoutes(t *testing.T) {
	ts := newTestServer(t, unlimited())

	rec := ts.do(http.MethodPost, "/api/auth/oauth/github", `{"code":"abc","state":"xyz"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	user := body["user"].(map[string]any)
	assert.Equal(t, "octo@clinic.org", user["email"])
	assert.Equal(t, true, user["isVerified"])
	assert.NotContains(t, user, "oauthProviders")

	rec = ts.do(http.MethodPost, "/api/auth/oauth/github", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["error"])

	rec = ts.do(http.MethodPost, "/api/auth/oauth/github", fmt.Sprintf(`{"code":%q}`, strings.Repeat("c", 3000)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, "Validation failed", body["error"])
	assert.Equal(t, []any{"Must be no more than 2048 characters"}, body["details"].(map[string]any)["code"])

	rec = ts.do(http.MethodPost, "/api/auth/oauth/facebook", `{"code":"abc"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Endpoint not found", decode(t, rec)["error"])
}

func TestUnknownAuthEndpoint(t *testing.T) {
	ts := newTestServer(t, unlimited())
	rec := ts.do(http.MethodGet, "/api/auth/reset-password", "", "User-Agent", "probe/1.0")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Endpoint not found", decode(t, rec)["error"])

	ev := ts.waitEvent(t, careauth.EventEndpointNotFound)
	assert.Equal(t, careauth.RiskLow, ev.Risk)
	assert.Equal(t, "/api/auth/reset-password", ev.Metadata["path"])
	assert.Equal(t, "probe/1.0", ev.UserAgent)
	assert.NotEmpty(t, ev.RequestID)
}

func TestSuspiciousPath(t *testing.T) {
	ts := newTestServer(t, unlimited())
	rec := ts.do(http.MethodGet, "/../../etc/passwd", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", decode(t, rec)["error"])
	ev := ts.waitEvent(t, careauth.EventSuspiciousPath)
	assert.Equal(t, careauth.RiskMedium, ev.Risk)

	rec = ts.do(http.MethodGet, "/wp-Admin/login.php", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	ts.waitEvent(t, careauth.EventSuspiciousPath)
}

func TestCallbackPage(t *testing.T) {
	ts := newTestServer(t, unlimited())

	rec := ts.do(http.MethodGet, "/api/auth/callback?code=abc&state=s1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/html")
	page := rec.Body.String()
	assert.Contains(t, page, "Authentication Successful")
	assert.Contains(t, page, `"code":"abc"`)
	assert.Contains(t, page, `"success":true`)

	csp := rec.Header().Get(echo.HeaderContentSecurityPolicy)
	start := strings.Index(csp, "'nonce-")
	require.GreaterOrEqual(t, start, 0, csp)
	nonce := strings.TrimSuffix(strings.SplitN(csp[start+len("'nonce-"):], "'", 2)[0], "'")
	assert.Contains(t, page, `<script nonce="`+nonce+`">`)
	assert.NotContains(t, page, "'*'")
	assert.Contains(t, page, "localhost:3000")

	rec = ts.do(http.MethodGet, "/api/auth/callback?error=access_denied", "")
	assert.Contains(t, rec.Body.String(), "Authentication failed: access_denied")

	rec = ts.do(http.MethodGet, "/api/auth/callback?code=abc", "")
	assert.Contains(t, rec.Body.String(), "Invalid callback parameters")

	rec = ts.do(http.MethodGet, "/api/auth/callback?error=%3C%2Fscript%3E%3Cscript%3Ealert(1)", "")
	assert.NotContains(t, rec.Body.String(), "</script><script>alert(1)")
}

func TestCallbackPagePostsOnlyToConfiguredOrigins(t *testing.T) {
	cfg := unlimited()
	cfg.AllowedOrigins = []string{"https://portal.example"}
	ts := newTestServer(t, cfg)

	page := ts.do(http.MethodGet, "/api/auth/callback?code=abc&state=s1", "").Body.String()
	assert.Contains(t, page, "portal.example")
	assert.NotContains(t, page, "localhost")
	assert.NotContains(t, page, "'*'")
}

func TestSecurityHeadersAndCORS(t *testing.T) {
	ts := newTestServer(t, unlimited())

	rec := ts.do(http.MethodGet, "/health", "")
	h := rec.Header()
	assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", h.Get("X-Frame-Options"))
	assert.Equal(t, "1; mode=block", h.Get("X-XSS-Protection"))
	assert.Equal(t, "strict-origin-when-cross-origin", h.Get("Referrer-Policy"))
	assert.Equal(t, "same-origin", h.Get("Cross-Origin-Opener-Policy"))
	assert.Equal(t, "no-cache, no-store, must-revalidate, private", h.Get(echo.HeaderCacheControl))
	assert.Empty(t, h.Get("Strict-Transport-Security"))
	assert.NotContains(t, h.Get(echo.HeaderContentSecurityPolicy), "upgrade-insecure-requests")
	assert.NotEmpty(t, h.Get(echo.HeaderXRequestID))

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:5174")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	pre := httptest.NewRecorder()
	ts.Handler().ServeHTTP(pre, req)
	assert.Equal(t, "http://localhost:5174", pre.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "true", pre.Header().Get(echo.HeaderAccessControlAllowCredentials))

	req = httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set(echo.HeaderOrigin, "https://evil.example")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	pre = httptest.NewRecorder()
	ts.Handler().ServeHTTP(pre, req)
	assert.Empty(t, pre.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestRateLimitRegistration(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())

	for i := 0; i < 3; i++ {
		body := fmt.Sprintf(`{"firstName":"A","lastName":"B","email":"user%d@clinic.org","password":"Str0ng!Passw0rd"}`, i)
		rec := ts.do(http.MethodPost, "/api/auth/register", body, headerCFConnectingIP, "203.0.113.9")
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, fmt.Sprint(2-i), rec.Header().Get(headerRateLimitRemaining))
	}

	rec := ts.do(http.MethodPost, "/api/auth/register", registerBody, headerCFConnectingIP, "203.0.113.9")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Rate limit exceeded", decode(t, rec)["error"])
	assert.Equal(t, "0", rec.Header().Get(headerRateLimitRemaining))
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderRetryAfter))
	ev := ts.waitEvent(t, careauth.EventRateLimitExceeded)
	assert.Equal(t, "registration", ev.Metadata["bucket"])
	assert.Equal(t, uint64(1), ts.engine.MetricsSnapshot().Counters[careauth.MetricRateLimited])

	rec = ts.do(http.MethodPost, "/api/auth/register", registerBody, headerCFConnectingIP, "198.51.100.7")
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRateLimitUnconfiguredBucketWarns(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	cfg := DefaultConfig()
	cfg.RateLimit.Limits = map[string]int{"auth": 7}
	ts := newLoggedTestServer(t, cfg, zap.New(core))

	warned := map[string]bool{}
	for _, entry := range logs.FilterMessageSnippet("no rate limit configured").All() {
		warned[entry.ContextMap()["bucket"].(string)] = true
	}
	assert.True(t, warned["api"])
	assert.True(t, warned["registration"])
	assert.True(t, warned["oauth"])
	assert.False(t, warned["auth"])

	rec := ts.do(http.MethodPost, "/api/auth/login", `{"email":"nobody@clinic.org","password":"Wr0ng!Pass"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "6", rec.Header().Get(headerRateLimitRemaining))
}

func TestRateLimitFailsOpen(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())
	ts.mr.SetError("LOADING")

	rec := ts.do(http.MethodGet, "/api/auth/callback?code=a&state=b", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(headerRateLimitRemaining))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "unknown", clientIP(req))

	req.Header.Set(echo.HeaderXForwardedFor, " 10.1.1.1, 172.16.0.1")
	assert.Equal(t, "10.1.1.1", clientIP(req))

	req.Header.Set(headerCFConnectingIP, "198.51.100.2")
	assert.Equal(t, "198.51.100.2", clientIP(req))
}

func TestStatusForUnknownErrorsHidesDetail(t *testing.T) {
	status, body := statusFor(errors.New("redis: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Internal server error", body.Error)
	assert.Nil(t, body.Details)

	status, _ = statusFor(fmt.Errorf("%w: boom", careauth.ErrStoreUnavailable))
	assert.Equal(t, http.StatusInternalServerError, status)

	status, body = statusFor(echo.ErrMethodNotAllowed)
	assert.Equal(t, http.StatusMethodNotAllowed, status)
	assert.Equal(t, "Method Not Allowed", body.Error)
}

func TestNewRequiresEngine(t *testing.T) {
	_, err := New(nil, nil, DefaultConfig(), nil)
	assert.Error(t, err)
}

func TestCORSOrigins(t *testing.T) {
	assert.Contains(t, CORSOrigins(careauth.EnvProduction), "https://care.brainsait.io")
	assert.Equal(t, CORSOrigins(careauth.EnvProduction), CORSOrigins("qa"))
	assert.Len(t, CORSOrigins(careauth.EnvStaging), 2)

	origins := CORSOrigins(careauth.EnvDevelopment)
	origins[0] = "mutated"
	assert.NotEqual(t, "mutated", CORSOrigins(careauth.EnvDevelopment)[0])
}
